// Package server accepts TCP connections and serves each one with an
// http1.Connection on its own goroutine.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	reuseport "github.com/kavu/go_reuseport"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yourusername/ember/pkg/ember/http1"
	"github.com/yourusername/ember/pkg/ember/socket"
)

// Config holds server configuration
type Config struct {
	// Addr is the TCP address to listen on (e.g., ":8080")
	// Default: ":8080"
	Addr string

	// ReusePort listens with SO_REUSEPORT so several processes can share Addr.
	ReusePort bool

	// ReadTimeout bounds the read of a connection's first request.
	// Default: 30 seconds
	ReadTimeout time.Duration

	// IdleTimeout bounds the wait for each following keep-alive request.
	// Default: 60 seconds
	IdleTimeout time.Duration

	// WriteTimeout bounds each response write. 0 means no deadline.
	WriteTimeout time.Duration

	// MaxConnections is the maximum number of concurrent connections.
	// 0 means unlimited
	MaxConnections int

	// MaxKeepAliveRequests is the maximum number of requests per connection.
	// 0 means unlimited
	MaxKeepAliveRequests int

	// AcceptRate limits accepted connections per second across all clients.
	// 0 disables the limit.
	AcceptRate  float64
	AcceptBurst int

	// ClientRate limits new connections per second from one remote IP.
	// Connections over the limit are closed without a response.
	// 0 disables the limit.
	ClientRate  float64
	ClientBurst int

	// Cork wraps response writes in TCP_CORK.
	// Default: true
	Cork bool

	// Socket tuning applied to every accepted connection.
	// nil uses socket.DefaultConfig().
	Socket *socket.Config
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
		Cork:        true,
	}
}

// Server serves ember requests.
type Server struct {
	config Config
	router *http1.Router
	log    zerolog.Logger
	stats  Stats

	acceptLimiter *rate.Limiter
	clients       *clientLimiter

	// Shutdown coordination
	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	shutdown  atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup

	// Connection tracking
	conns   map[net.Conn]*http1.Connection
	connsMu sync.Mutex

	// Connection semaphore (for limiting concurrent connections)
	connSem chan struct{}
}

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown
// or Close.
var ErrServerClosed = errors.New("server: closed")

// New creates a server dispatching to router.
func New(config Config, router *http1.Router, logger zerolog.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Socket == nil {
		config.Socket = socket.DefaultConfig()
	}

	s := &Server{
		config:    config,
		router:    router,
		log:       logger,
		listeners: make(map[net.Listener]struct{}),
		done:      make(chan struct{}),
		conns:     make(map[net.Conn]*http1.Connection),
	}
	s.stats.StartTime = time.Now()

	if config.MaxConnections > 0 {
		s.connSem = make(chan struct{}, config.MaxConnections)
	}
	if config.AcceptRate > 0 {
		burst := config.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		s.acceptLimiter = rate.NewLimiter(rate.Limit(config.AcceptRate), burst)
	}
	if config.ClientRate > 0 {
		s.clients = newClientLimiter(config.ClientRate, config.ClientBurst)
	}

	return s
}

// Stats returns server statistics
func (s *Server) Stats() *Stats {
	return &s.stats
}

// Listen opens the configured listener, with SO_REUSEPORT when enabled.
func (s *Server) Listen() (net.Listener, error) {
	var (
		ln  net.Listener
		err error
	)
	if s.config.ReusePort {
		ln, err = reuseport.Listen("tcp", s.config.Addr)
	} else {
		ln, err = net.Listen("tcp", s.config.Addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	if err := socket.ApplyListener(ln, s.config.Socket); err != nil && !errors.Is(err, socket.ErrNotTCP) {
		s.log.Debug().Err(err).Msg("listener tuning incomplete")
	}
	return ln, nil
}

// ListenAndServe listens on the configured address and serves requests
// until ctx is done or the server is shut down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or the server is shut
// down. It returns nil when ctx ends, ErrServerClosed after Shutdown or
// Close, and the accept error if ln fails permanently. ln is closed on
// return. Connections still open when Serve returns finish their current
// request and then close.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.trackListener(ln) {
		ln.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(ln)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-connCtx.Done():
		case <-s.done:
		}
		ln.Close()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("serving")

	var tempDelay time.Duration
	for {
		if s.shutdown.Load() {
			return ErrServerClosed
		}

		// Acquire connection slot if limit is set
		if s.connSem != nil {
			select {
			case s.connSem <- struct{}{}:
			case <-s.done:
				return ErrServerClosed
			case <-ctx.Done():
				return nil
			}
		}

		if s.acceptLimiter != nil {
			if err := s.acceptLimiter.Wait(connCtx); err != nil {
				s.releaseSlot()
				if s.shutdown.Load() {
					return ErrServerClosed
				}
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.releaseSlot()
			if s.shutdown.Load() {
				return ErrServerClosed
			}
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			s.stats.AcceptErrors.Add(1)
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.log.Warn().Err(err).Dur("retry_in", tempDelay).Msg("accept failed")
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		if s.clients != nil && !s.clients.allow(conn.RemoteAddr()) {
			s.stats.RejectedConnections.Add(1)
			conn.Close()
			s.releaseSlot()
			continue
		}

		if !s.beginConnection() {
			conn.Close()
			s.releaseSlot()
			return ErrServerClosed
		}

		s.stats.TotalConnections.Add(1)

		// Handle connection in goroutine
		go s.handleConnection(connCtx, conn)
	}
}

// handleConnection serves one connection until it closes.
func (s *Server) handleConnection(ctx context.Context, netConn net.Conn) {
	defer s.wg.Done()
	defer s.releaseSlot()
	defer netConn.Close()

	log := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", netConn.RemoteAddr().String()).
		Logger()

	if err := socket.Apply(netConn, s.config.Socket); err != nil {
		log.Debug().Err(err).Msg("socket tuning failed")
	}

	c := http1.NewConnection(netConn, s.router, http1.ConnectionConfig{
		Logger:       log,
		Cork:         s.config.Cork,
		ReadTimeout:  s.config.ReadTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		WriteTimeout: s.config.WriteTimeout,
		MaxRequests:  s.config.MaxKeepAliveRequests,
		Observer:     &s.stats,
	})

	s.trackConnection(netConn, c)
	defer s.untrackConnection(netConn)

	log.Debug().Msg("connection opened")
	if err := c.Serve(ctx); err != nil {
		log.Debug().Err(err).Int("requests", c.RequestCount()).Msg("connection ended with error")
		return
	}
	log.Debug().Int("requests", c.RequestCount()).Msg("connection closed")
}

func (s *Server) releaseSlot() {
	if s.connSem != nil {
		<-s.connSem
	}
}

// beginConnection counts a connection goroutine in wg unless the server is
// stopped. Holding mu orders it against stop, so Shutdown never waits on a
// group that grows afterwards.
func (s *Server) beginConnection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
}

// trackConnection adds a connection to tracking
func (s *Server) trackConnection(conn net.Conn, c *http1.Connection) {
	s.connsMu.Lock()
	s.conns[conn] = c
	s.connsMu.Unlock()

	s.stats.ActiveConnections.Add(1)
}

// untrackConnection removes a connection from tracking
func (s *Server) untrackConnection(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()

	s.stats.ActiveConnections.Add(-1)
}

// closeConnections closes tracked connections; with idleOnly it skips
// connections in the middle of a request.
func (s *Server) closeConnections(idleOnly bool) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for conn, c := range s.conns {
		if idleOnly {
			if st := c.State(); st != http1.StateIdle && st != http1.StateNew {
				continue
			}
		}
		conn.Close()
	}
}

// stop marks the server as shut down and closes its listeners.
// It reports false if the server was already stopped.
func (s *Server) stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shutdown.CompareAndSwap(false, true) {
		return false
	}
	for ln := range s.listeners {
		ln.Close()
	}
	close(s.done)
	return true
}

const shutdownPollInterval = 50 * time.Millisecond

// Shutdown stops accepting, closes idle connections and waits for active
// ones to finish their current request. If ctx expires first, remaining
// connections are closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()

	for {
		s.closeConnections(true)
		select {
		case <-finished:
			s.log.Info().Msg("server stopped")
			return nil
		case <-ctx.Done():
			s.closeConnections(false)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close immediately closes the server and all active connections
func (s *Server) Close() error {
	s.stop()
	s.closeConnections(false)
	s.wg.Wait()
	return nil
}
