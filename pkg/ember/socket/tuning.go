// Package socket applies TCP tuning to accepted connections and listeners
// and toggles TCP_CORK around response writes.
//
// Options that every platform supports go through net.TCPConn. Linux-only
// options (TCP_CORK, TCP_QUICKACK, TCP_DEFER_ACCEPT, TCP_FASTOPEN and the
// keepalive timers) are in tuning_linux.go and are no-ops elsewhere.
package socket

import (
	"errors"
	"net"
	"syscall"
)

// Config represents socket tuning configuration.
// Zero values mean "use system defaults".
type Config struct {
	// TCP_NODELAY - disable Nagle's algorithm
	NoDelay bool

	// SO_RCVBUF / SO_SNDBUF in bytes, 0 keeps the system default
	RecvBuffer int
	SendBuffer int

	// TCP_QUICKACK (Linux only)
	QuickAck bool

	// TCP_DEFER_ACCEPT on the listener (Linux only)
	DeferAccept bool

	// TCP_FASTOPEN on the listener (Linux only)
	FastOpen bool

	// SO_KEEPALIVE, with probe timers tuned on Linux
	KeepAlive bool
}

// DefaultConfig returns the configuration used for accepted HTTP
// connections.
func DefaultConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  256 * 1024,
		SendBuffer:  256 * 1024,
		QuickAck:    true,
		DeferAccept: true,
		FastOpen:    true,
		KeepAlive:   true,
	}
}

// ErrNotTCP is returned by ApplyListener for listeners it cannot tune.
var ErrNotTCP = errors.New("socket: not a TCP socket")

// Apply applies cfg to an accepted connection. Connections that are not
// *net.TCPConn (pipes, in-memory listeners) are left untouched. Only a
// TCP_NODELAY failure is reported; buffer and keepalive options are best
// effort.
func Apply(conn net.Conn, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(cfg.NoDelay); err != nil {
		return err
	}
	if cfg.RecvBuffer > 0 {
		_ = tcpConn.SetReadBuffer(cfg.RecvBuffer)
	}
	if cfg.SendBuffer > 0 {
		_ = tcpConn.SetWriteBuffer(cfg.SendBuffer)
	}
	if cfg.KeepAlive {
		_ = tcpConn.SetKeepAlive(true)
	}

	return control(tcpConn, func(fd uintptr) error {
		applyPlatformOptions(int(fd), cfg)
		return nil
	})
}

// ApplyListener applies the listener-level options of cfg. Listeners that
// are not TCP return ErrNotTCP.
func ApplyListener(ln net.Listener, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpListener, ok := ln.(*net.TCPListener)
	if !ok {
		return ErrNotTCP
	}

	return control(tcpListener, func(fd uintptr) error {
		return applyListenerOptions(int(fd), cfg)
	})
}

// Cork sets (on=true) or clears TCP_CORK on conn. While corked, partial
// frames are held back so a header and body written separately leave in
// as few segments as possible. Non-TCP connections and non-Linux platforms
// are a no-op.
func Cork(conn net.Conn, on bool) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	return control(tcpConn, func(fd uintptr) error {
		return setCork(int(fd), on)
	})
}

func control(sc syscall.Conn, fn func(fd uintptr) error) error {
	rawConn, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	var opErr error
	if err := rawConn.Control(func(fd uintptr) {
		opErr = fn(fd)
	}); err != nil {
		return err
	}
	return opErr
}
