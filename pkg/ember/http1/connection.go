package http1

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/ember/pkg/ember/socket"
)

// Outcome is the terminal result of processing one request.
type Outcome uint8

const (
	// OutcomeDispatched means a handler produced the response that was sent.
	OutcomeDispatched Outcome = iota

	// OutcomeErrorResponse means a default response was sent instead
	// (parse failure, unmatched route, handler failure).
	OutcomeErrorResponse

	// OutcomeClosed means nothing was sent: the peer closed the connection
	// or the read failed.
	OutcomeClosed
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeErrorResponse:
		return "error_response"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionState represents the state of a served connection.
type ConnectionState int32

const (
	StateNew ConnectionState = iota
	StateActive
	StateIdle
	StateClosed
)

// String returns the string representation of the connection state
func (s ConnectionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Observer is notified after every request that produced an outcome.
// status is 0 when nothing was sent.
type Observer interface {
	RequestDone(status uint16, outcome Outcome, err error)
}

// ConnectionConfig holds configuration for a served connection.
type ConnectionConfig struct {
	// Logger receives per-request debug events and write failures.
	Logger zerolog.Logger

	// Cork wraps each response write in TCP_CORK on/off.
	Cork bool

	// ReadTimeout bounds the read of the first request.
	// 0 means no deadline.
	ReadTimeout time.Duration

	// IdleTimeout bounds the wait for each following keep-alive request.
	// 0 falls back to ReadTimeout.
	IdleTimeout time.Duration

	// WriteTimeout bounds each response write. 0 means no deadline.
	WriteTimeout time.Duration

	// MaxRequests closes the connection after that many requests.
	// 0 means unlimited.
	MaxRequests int

	// ResponseHeaderSize is the capacity of the header scratch buffer.
	// Default: DefaultResponseHeaderSize
	ResponseHeaderSize int

	// Observer, if set, is told about every request.
	Observer Observer
}

// DefaultConnectionConfig returns the default connection configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Logger:             zerolog.Nop(),
		Cork:               true,
		ReadTimeout:        30 * time.Second,
		IdleTimeout:        60 * time.Second,
		ResponseHeaderSize: DefaultResponseHeaderSize,
	}
}

// Connection drives request processing on one client connection.
//
// A Connection is used by a single goroutine. State and RequestCount may be
// read concurrently (lock-free) by the server for shutdown and metrics.
type Connection struct {
	state    atomic.Int32
	requests atomic.Int32
	lastUse  atomic.Int64

	conn   net.Conn
	router *Router
	config ConnectionConfig
	log    zerolog.Logger

	// scratch for the response header block, reused across requests
	header []byte
}

// NewConnection creates a connection driver for conn.
func NewConnection(conn net.Conn, router *Router, config ConnectionConfig) *Connection {
	if config.ResponseHeaderSize <= 0 {
		config.ResponseHeaderSize = DefaultResponseHeaderSize
	}
	c := &Connection{
		conn:   conn,
		router: router,
		config: config,
		log:    config.Logger,
		header: make([]byte, config.ResponseHeaderSize),
	}
	c.setState(StateNew)
	return c
}

// State returns the current connection state (lock-free)
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *Connection) setState(state ConnectionState) {
	c.state.Store(int32(state))
	c.lastUse.Store(time.Now().UnixNano())
}

// RequestCount returns the number of requests processed so far.
func (c *Connection) RequestCount() int {
	return int(c.requests.Load())
}

// IdleTime returns how long the connection has been waiting for a request.
func (c *Connection) IdleTime() time.Duration {
	if c.State() == StateActive {
		return 0
	}
	return time.Since(time.Unix(0, c.lastUse.Load()))
}

// RemoteAddr returns the remote network address
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Serve processes requests until the peer closes, a request is not
// keep-alive, MaxRequests is reached or ctx is done. It does not close the
// underlying net.Conn.
//
// Allocation behavior: 0 allocs/op per request (pooled Request)
func (c *Connection) Serve(ctx context.Context) error {
	defer c.setState(StateClosed)

	req := AcquireRequest()
	defer ReleaseRequest(req)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.setReadDeadline(); err != nil {
			return err
		}

		outcome, err := c.ProcessRequest(req)
		if outcome == OutcomeClosed {
			if errors.Is(err, ErrReadFailure) && isTimeout(err) {
				// idle keep-alive connection timed out
				return nil
			}
			return err
		}
		n := c.requests.Add(1)

		if !req.KeepAlive() {
			return nil
		}
		if c.config.MaxRequests > 0 && int(n) >= c.config.MaxRequests {
			return nil
		}

		req.Reset()
		c.setState(StateIdle)
	}
}

// ProcessRequest performs one full exchange on the connection using req:
// read, parse, dispatch and write. The error reports why a request failed;
// it is nil for a dispatched request and for a clean close.
func (c *Connection) ProcessRequest(req *Request) (Outcome, error) {
	err := ReadRequest(c.conn, req)
	c.setState(StateActive)

	switch {
	case err == nil:
	case errors.Is(err, ErrConnectionClosed):
		c.observe(0, OutcomeClosed, nil)
		return OutcomeClosed, nil
	case errors.Is(err, ErrReadFailure):
		c.log.Debug().Err(err).Msg("request read failed")
		c.observe(0, OutcomeClosed, err)
		return OutcomeClosed, err
	default:
		return c.respondDefault(req, StatusForError(err), err)
	}

	resp, ok := c.router.Dispatch(req)
	if !ok {
		return c.respondDefault(req, StatusNotFound, nil)
	}
	if resp == nil {
		return c.respondDefault(req, StatusInternalServerError, ErrNoResponse)
	}
	if ResponseHeaderSize(req, resp) > len(c.header) {
		return c.respondDefault(req, StatusInternalServerError, ErrResponseHeaderTooLarge)
	}

	if werr := c.writeResponse(req); werr != nil {
		c.observe(resp.Status, OutcomeClosed, werr)
		return OutcomeClosed, werr
	}
	c.observe(resp.Status, OutcomeDispatched, nil)
	return OutcomeDispatched, nil
}

// respondDefault sends the default response for status. cause is returned
// as the request error.
func (c *Connection) respondDefault(req *Request, status uint16, cause error) (Outcome, error) {
	resp := DefaultResponse(req, status)
	if size := ResponseHeaderSize(req, resp); size > len(c.header) {
		c.header = make([]byte, size)
	}

	c.log.Debug().
		Uint16("status", status).
		AnErr("cause", cause).
		Msg("sending default response")

	if werr := c.writeResponse(req); werr != nil {
		c.observe(status, OutcomeClosed, werr)
		return OutcomeClosed, werr
	}
	c.observe(status, OutcomeErrorResponse, cause)
	return OutcomeErrorResponse, cause
}

// writeResponse serializes the header block into the scratch buffer and
// writes it followed by the body (omitted for HEAD), corked when enabled.
func (c *Connection) writeResponse(req *Request) error {
	resp := req.response

	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}

	if c.config.Cork {
		if err := socket.Cork(c.conn, true); err != nil {
			c.log.Debug().Err(err).Msg("cork failed")
		}
		defer func() {
			if err := socket.Cork(c.conn, false); err != nil {
				c.log.Debug().Err(err).Msg("uncork failed")
			}
		}()
	}

	n := PrepareResponseHeader(req, c.header)
	if _, err := c.conn.Write(c.header[:n]); err != nil {
		c.log.Debug().Err(err).Msg("response header write failed")
		return err
	}

	if req.method == MethodHEAD || len(resp.Body) == 0 {
		return nil
	}
	if _, err := c.conn.Write(resp.Body); err != nil {
		c.log.Debug().Err(err).Msg("response body write failed")
		return err
	}
	return nil
}

func (c *Connection) setReadDeadline() error {
	timeout := c.config.ReadTimeout
	if c.requests.Load() > 0 && c.config.IdleTimeout > 0 {
		timeout = c.config.IdleTimeout
	}
	if timeout <= 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(timeout))
}

func (c *Connection) observe(status uint16, outcome Outcome, err error) {
	if c.config.Observer != nil {
		c.config.Observer.RequestDone(status, outcome, err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
