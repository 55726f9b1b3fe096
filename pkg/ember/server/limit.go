package server

import (
	"net"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// A client's bucket is dropped after clientBucketTTL without connections.
const (
	clientBucketTTL     = 5 * time.Minute
	clientBucketCleanup = time.Minute
)

// clientLimiter rate-limits new connections per remote IP.
type clientLimiter struct {
	limit rate.Limit
	burst int

	buckets *gocache.Cache
	mu      sync.Mutex
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: gocache.New(clientBucketTTL, clientBucketCleanup),
	}
}

// allow reports whether a new connection from addr may proceed.
func (l *clientLimiter) allow(addr net.Addr) bool {
	key := clientKey(addr)

	l.mu.Lock()
	defer l.mu.Unlock()

	if v, found := l.buckets.Get(key); found {
		l.buckets.SetDefault(key, v)
		return v.(*rate.Limiter).Allow()
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	l.buckets.SetDefault(key, lim)
	return lim.Allow()
}

// clientKey returns the host part of addr, or the whole address when it
// carries no port (pipes, unix sockets).
func clientKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}
