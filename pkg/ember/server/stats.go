package server

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/ember/pkg/ember/http1"
)

const metricsNamespace = "ember"

// Stats represents server statistics. Counters are updated lock-free from
// connection goroutines; Stats also implements prometheus.Collector.
type Stats struct {
	// Total number of connections accepted
	TotalConnections atomic.Uint64

	// Current number of active connections
	ActiveConnections atomic.Int64

	// Connections closed right after accept by the per-client limiter
	RejectedConnections atomic.Uint64

	// Number of accept errors
	AcceptErrors atomic.Uint64

	// Total number of responses sent
	TotalRequests atomic.Uint64

	// Responses by status class, index status/100 (1xx..5xx); index 0
	// holds codes below 100
	responses [6]atomic.Uint64

	// Request failures by kind
	ParseErrors   atomic.Uint64
	HandlerErrors atomic.Uint64
	ReadErrors    atomic.Uint64
	WriteErrors   atomic.Uint64

	// Server start time
	StartTime time.Time
}

var _ http1.Observer = (*Stats)(nil)

// RequestDone records the result of one request.
func (s *Stats) RequestDone(status uint16, outcome http1.Outcome, err error) {
	switch {
	case outcome == http1.OutcomeClosed && errors.Is(err, http1.ErrReadFailure):
		s.ReadErrors.Add(1)
		return
	case outcome == http1.OutcomeClosed && err != nil:
		s.WriteErrors.Add(1)
		return
	case outcome == http1.OutcomeClosed:
		return
	}

	s.TotalRequests.Add(1)
	class := int(status / 100)
	if class >= len(s.responses) {
		class = 0
	}
	s.responses[class].Add(1)

	switch {
	case errors.Is(err, http1.ErrNoResponse), errors.Is(err, http1.ErrResponseHeaderTooLarge):
		s.HandlerErrors.Add(1)
	case err != nil:
		s.ParseErrors.Add(1)
	}
}

// Responses returns the number of responses sent with a status in class
// (2 for 2xx, 4 for 4xx).
func (s *Stats) Responses(class int) uint64 {
	if class < 0 || class >= len(s.responses) {
		return 0
	}
	return s.responses[class].Load()
}

// Duration returns the time since the server started
func (s *Stats) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// RequestsPerSecond returns the average requests per second
func (s *Stats) RequestsPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.TotalRequests.Load()) / duration
}

var (
	descConnections = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "server", "connections_total"),
		"Total number of connections accepted",
		nil, nil,
	)
	descActiveConnections = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "server", "active_connections"),
		"Current number of open connections",
		nil, nil,
	)
	descRejectedConnections = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "server", "rejected_connections_total"),
		"Connections closed by the per-client accept limiter",
		nil, nil,
	)
	descAcceptErrors = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "server", "accept_errors_total"),
		"Total number of accept errors",
		nil, nil,
	)
	descRequests = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "requests_total"),
		"Total number of responses sent",
		nil, nil,
	)
	descResponses = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "responses_total"),
		"Responses sent by status class",
		[]string{"class"}, nil,
	)
	descErrors = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "request_errors_total"),
		"Request failures by kind",
		[]string{"kind"}, nil,
	)
)

var statusClasses = [6]string{"other", "1xx", "2xx", "3xx", "4xx", "5xx"}

// Describe implements prometheus.Collector.
func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- descConnections
	ch <- descActiveConnections
	ch <- descRejectedConnections
	ch <- descAcceptErrors
	ch <- descRequests
	ch <- descResponses
	ch <- descErrors
}

// Collect implements prometheus.Collector.
func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(descConnections, prometheus.CounterValue, float64(s.TotalConnections.Load()))
	ch <- prometheus.MustNewConstMetric(descActiveConnections, prometheus.GaugeValue, float64(s.ActiveConnections.Load()))
	ch <- prometheus.MustNewConstMetric(descRejectedConnections, prometheus.CounterValue, float64(s.RejectedConnections.Load()))
	ch <- prometheus.MustNewConstMetric(descAcceptErrors, prometheus.CounterValue, float64(s.AcceptErrors.Load()))
	ch <- prometheus.MustNewConstMetric(descRequests, prometheus.CounterValue, float64(s.TotalRequests.Load()))

	for i := range s.responses {
		ch <- prometheus.MustNewConstMetric(descResponses, prometheus.CounterValue, float64(s.responses[i].Load()), statusClasses[i])
	}

	ch <- prometheus.MustNewConstMetric(descErrors, prometheus.CounterValue, float64(s.ParseErrors.Load()), "parse")
	ch <- prometheus.MustNewConstMetric(descErrors, prometheus.CounterValue, float64(s.HandlerErrors.Load()), "handler")
	ch <- prometheus.MustNewConstMetric(descErrors, prometheus.CounterValue, float64(s.ReadErrors.Load()), "read")
	ch <- prometheus.MustNewConstMetric(descErrors, prometheus.CounterValue, float64(s.WriteErrors.Load()), "write")
}
