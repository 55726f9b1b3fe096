package http1

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// mockConn implements net.Conn for testing. Each Read returns the next
// queued chunk, so a test controls exactly what one read delivers.
type mockConn struct {
	chunks    []string
	writeData *strings.Builder
	closed    bool
	reads     int
	deadline  time.Time
	mu        sync.Mutex
}

func newMockConn(chunks ...string) *mockConn {
	return &mockConn{
		chunks:    chunks,
		writeData: &strings.Builder{},
	}
}

func (m *mockConn) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chunks) == 0 {
		return 0, io.EOF
	}
	m.reads++
	n = copy(b, m.chunks[0])
	m.chunks = m.chunks[1:]
	return n, nil
}

func (m *mockConn) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeData.Write(b)
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080}
}

func (m *mockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}
}

func (m *mockConn) SetDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	return nil
}

func (m *mockConn) SetReadDeadline(t time.Time) error {
	return m.SetDeadline(t)
}

func (m *mockConn) SetWriteDeadline(t time.Time) error {
	return m.SetDeadline(t)
}

func (m *mockConn) GetWritten() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeData.String()
}

func (m *mockConn) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// errReader fails every read with err.
type errReader struct {
	err error
}

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

// parse is a test shortcut around ParseRequest on a fresh request.
func parse(raw string) (*Request, error) {
	req := &Request{}
	err := ParseRequest([]byte(raw), req)
	return req, err
}
