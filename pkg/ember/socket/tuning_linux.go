//go:build linux

package socket

import "golang.org/x/sys/unix"

// Keepalive probe timers: first probe after 60s idle, then every 10s,
// drop after 3 misses.
const (
	keepAliveIdle     = 60
	keepAliveInterval = 10
	keepAliveCount    = 3

	// TCP_USER_TIMEOUT in milliseconds
	userTimeoutMillis = 10000

	deferAcceptSeconds = 5
	fastOpenQueueLen   = 256
)

func applyPlatformOptions(fd int, cfg *Config) {
	// QUICKACK is not sticky; the kernel clears it after the next ACK.
	if cfg.QuickAck {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	}

	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, userTimeoutMillis)

	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepAliveIdle)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepAliveInterval)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount)
	}
}

func applyListenerOptions(fd int, cfg *Config) error {
	var lastErr error

	if cfg.DeferAccept {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, deferAcceptSeconds); err != nil {
			lastErr = err
		}
	}

	// Fails when the kernel has TFO disabled.
	if cfg.FastOpen {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_FASTOPEN, fastOpenQueueLen); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

func setCork(fd int, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_CORK, v)
}
