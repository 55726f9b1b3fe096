package http1

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

const helloBody = "Hello, World!"

func testRouter() *Router {
	r := NewRouter()
	r.Add("/", HandlerFunc(func(req *Request) *Response {
		return req.Respond(StatusOK, "text/plain", []byte(helloBody))
	}))
	r.Add("/nil", HandlerFunc(func(req *Request) *Response {
		return nil
	}))
	r.Add("/fat", HandlerFunc(func(req *Request) *Response {
		resp := req.Respond(StatusOK, "text/plain", nil)
		resp.AddHeader("X-Large", strings.Repeat("v", 200))
		return resp
	}))
	return r
}

type observed struct {
	status  uint16
	outcome Outcome
	err     error
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observed
}

func (o *recordingObserver) RequestDone(status uint16, outcome Outcome, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observed{status, outcome, err})
}

func newTestConnection(conn *mockConn, router *Router) *Connection {
	cfg := DefaultConnectionConfig()
	return NewConnection(conn, router, cfg)
}

func TestProcessRequestDispatched(t *testing.T) {
	conn := newMockConn("GET / HTTP/1.1\r\n\r\n")
	c := newTestConnection(conn, testRouter())

	req := AcquireRequest()
	defer ReleaseRequest(req)

	outcome, err := c.ProcessRequest(req)
	if err != nil {
		t.Fatalf("ProcessRequest failed: %v", err)
	}
	if outcome != OutcomeDispatched {
		t.Errorf("outcome = %v, want %v", outcome, OutcomeDispatched)
	}

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Length: 13\r\n" +
		"Content-Type: text/plain\r\n" +
		"Connection: Keep-Alive\r\n" +
		"Server: ember\r\n\r\n" + helloBody
	if got := conn.GetWritten(); got != want {
		t.Errorf("written = %q, want %q", got, want)
	}
}

func TestProcessRequestHeadOmitsBody(t *testing.T) {
	conn := newMockConn("HEAD / HTTP/1.1\r\n\r\n")
	c := newTestConnection(conn, testRouter())

	req := AcquireRequest()
	defer ReleaseRequest(req)

	if _, err := c.ProcessRequest(req); err != nil {
		t.Fatalf("ProcessRequest failed: %v", err)
	}

	got := conn.GetWritten()
	if !strings.Contains(got, "\r\nContent-Length: 13\r\n") {
		t.Errorf("written = %q, want Content-Length: 13", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\n") {
		t.Errorf("written = %q, want header block only", got)
	}
}

func TestProcessRequestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		status   string
		wantErr  error
		closeHdr bool
	}{
		{"method", "POST / HTTP/1.1\r\n\r\n", "HTTP/1.0 405 Method Not Allowed\r\n", ErrMethodNotAllowed, true},
		{"bad request", "GET foo HTTP/1.1\r\n\r\n", "HTTP/1.1 400 Bad Request\r\n", ErrBadRequest, true},
		{"bad version", "GET / HTTP/2.0\r\n\r\n", "HTTP/1.0 400 Bad Request\r\n", ErrBadRequest, true},
		{"too large", strings.Repeat("G", ReadBufferSize), "HTTP/1.0 413 Request Too Large\r\n", ErrRequestTooLarge, true},
		{"nil response", "GET /nil HTTP/1.1\r\n\r\n", "HTTP/1.1 500 Internal Server Error\r\n", ErrNoResponse, false},
		{"header too large", "GET /fat HTTP/1.1\r\n\r\n", "HTTP/1.1 500 Internal Server Error\r\n", ErrResponseHeaderTooLarge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newMockConn(tt.raw)
			cfg := DefaultConnectionConfig()
			cfg.ResponseHeaderSize = 200
			c := NewConnection(conn, testRouter(), cfg)

			req := AcquireRequest()
			defer ReleaseRequest(req)

			outcome, err := c.ProcessRequest(req)
			if outcome != OutcomeErrorResponse {
				t.Errorf("outcome = %v, want %v", outcome, OutcomeErrorResponse)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}

			got := conn.GetWritten()
			if !strings.HasPrefix(got, tt.status) {
				t.Errorf("written = %q, want prefix %q", got, tt.status)
			}
			if tt.closeHdr && !strings.Contains(got, "\r\nConnection: Close\r\n") {
				t.Errorf("written = %q, want Connection: Close", got)
			}
			if !strings.HasSuffix(got, "</h1></body></html>") {
				t.Errorf("written = %q, want HTML body", got)
			}
		})
	}
}

func TestProcessRequestNotFound(t *testing.T) {
	r := NewRouter()
	r.Add("/a", HandlerFunc(func(req *Request) *Response {
		return req.Respond(StatusOK, "text/plain", nil)
	}))

	conn := newMockConn("GET /x HTTP/1.1\r\n\r\n")
	c := newTestConnection(conn, r)

	req := AcquireRequest()
	defer ReleaseRequest(req)

	outcome, err := c.ProcessRequest(req)
	if err != nil {
		t.Errorf("error = %v, want nil", err)
	}
	if outcome != OutcomeErrorResponse {
		t.Errorf("outcome = %v, want %v", outcome, OutcomeErrorResponse)
	}

	got := conn.GetWritten()
	if !strings.HasPrefix(got, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("written = %q, want 404 status line", got)
	}
	if !strings.Contains(got, "\r\nConnection: Keep-Alive\r\n") {
		t.Errorf("written = %q, want Connection: Keep-Alive", got)
	}
}

func TestProcessRequestZeroRead(t *testing.T) {
	conn := newMockConn()
	c := newTestConnection(conn, testRouter())

	req := AcquireRequest()
	defer ReleaseRequest(req)

	outcome, err := c.ProcessRequest(req)
	if err != nil {
		t.Errorf("error = %v, want nil", err)
	}
	if outcome != OutcomeClosed {
		t.Errorf("outcome = %v, want %v", outcome, OutcomeClosed)
	}
	if got := conn.GetWritten(); got != "" {
		t.Errorf("written = %q, want nothing", got)
	}
}

func TestServeKeepAlive(t *testing.T) {
	conn := newMockConn(
		"GET / HTTP/1.1\r\n\r\n",
		"GET /missing HTTP/1.1\r\nHost: x\r\n\r\n",
		"HEAD / HTTP/1.1\r\n\r\n",
	)
	r := NewRouter()
	r.Add("/", HandlerFunc(func(req *Request) *Response {
		if len(req.URL()) > 1 {
			return DefaultResponse(req, StatusNotFound)
		}
		return req.Respond(StatusOK, "text/plain", []byte(helloBody))
	}))
	c := newTestConnection(conn, r)

	if err := c.Serve(context.Background()); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	got := conn.GetWritten()
	if n := strings.Count(got, "Server: ember\r\n\r\n"); n != 3 {
		t.Errorf("responses written = %d, want 3\n%s", n, got)
	}
	if c.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", c.RequestCount())
	}
	if c.State() != StateClosed {
		t.Errorf("State = %v, want %v", c.State(), StateClosed)
	}
}

func TestServeStopsWithoutKeepAlive(t *testing.T) {
	tests := []struct {
		name  string
		first string
	}{
		{"1.0 default", "GET / HTTP/1.0\r\n\r\n"},
		{"1.1 close", "GET / HTTP/1.1\r\nConnection: close\r\n\r\n"},
		{"parse error", "DELETE / HTTP/1.1\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newMockConn(tt.first, "GET / HTTP/1.1\r\n\r\n")
			c := newTestConnection(conn, testRouter())

			_ = c.Serve(context.Background())

			if conn.ReadCount() != 1 {
				t.Errorf("reads = %d, want 1", conn.ReadCount())
			}
			if n := strings.Count(conn.GetWritten(), "Server: ember\r\n\r\n"); n != 1 {
				t.Errorf("responses written = %d, want 1", n)
			}
		})
	}
}

func TestServeMaxRequests(t *testing.T) {
	conn := newMockConn(
		"GET / HTTP/1.1\r\n\r\n",
		"GET / HTTP/1.1\r\n\r\n",
		"GET / HTTP/1.1\r\n\r\n",
	)
	cfg := DefaultConnectionConfig()
	cfg.MaxRequests = 2
	c := NewConnection(conn, testRouter(), cfg)

	if err := c.Serve(context.Background()); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if conn.ReadCount() != 2 {
		t.Errorf("reads = %d, want 2", conn.ReadCount())
	}
}

func TestServeCanceledContext(t *testing.T) {
	conn := newMockConn("GET / HTTP/1.1\r\n\r\n")
	c := newTestConnection(conn, testRouter())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Serve(ctx); err != nil {
		t.Errorf("Serve = %v, want nil", err)
	}
	if conn.ReadCount() != 0 {
		t.Errorf("reads = %d, want 0", conn.ReadCount())
	}
}

func TestServeObserver(t *testing.T) {
	conn := newMockConn(
		"GET / HTTP/1.1\r\n\r\n",
		"GET /nil HTTP/1.1\r\n\r\n",
		"PUT / HTTP/1.1\r\n\r\n",
	)
	obs := &recordingObserver{}
	cfg := DefaultConnectionConfig()
	cfg.Observer = obs
	c := NewConnection(conn, testRouter(), cfg)

	_ = c.Serve(context.Background())

	want := []observed{
		{StatusOK, OutcomeDispatched, nil},
		{StatusInternalServerError, OutcomeErrorResponse, ErrNoResponse},
		{StatusMethodNotAllowed, OutcomeErrorResponse, ErrMethodNotAllowed},
	}
	if len(obs.events) != len(want) {
		t.Fatalf("observed %d events, want %d: %+v", len(obs.events), len(want), obs.events)
	}
	for i, ev := range obs.events {
		if ev.status != want[i].status || ev.outcome != want[i].outcome || !errors.Is(ev.err, want[i].err) {
			t.Errorf("event %d = %+v, want %+v", i, ev, want[i])
		}
	}
}

func BenchmarkProcessRequest(b *testing.B) {
	raw := "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"
	router := testRouter()
	req := AcquireRequest()
	defer ReleaseRequest(req)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		conn := newMockConn(raw)
		c := NewConnection(conn, router, DefaultConnectionConfig())
		req.Reset()
		if _, err := c.ProcessRequest(req); err != nil {
			b.Fatal(err)
		}
	}
}
