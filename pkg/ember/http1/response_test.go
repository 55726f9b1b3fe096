package http1

import (
	"strconv"
	"strings"
	"testing"
)

func renderHeader(t testing.TB, req *Request) string {
	t.Helper()

	resp := req.Response()
	dst := make([]byte, ResponseHeaderSize(req, resp))
	n := PrepareResponseHeader(req, dst)
	if n != len(dst) {
		t.Errorf("PrepareResponseHeader wrote %d bytes, ResponseHeaderSize = %d", n, len(dst))
	}
	return string(dst[:n])
}

func TestPrepareResponseHeaderExact(t *testing.T) {
	req, err := parse("GET / HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	req.SetResponse(req.Respond(StatusOK, "text/plain", []byte("hello")))

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Length: 5\r\n" +
		"Content-Type: text/plain\r\n" +
		"Connection: Keep-Alive\r\n" +
		"Server: ember\r\n\r\n"

	if got := renderHeader(t, req); got != want {
		t.Errorf("header block = %q, want %q", got, want)
	}
}

func TestPrepareResponseHeaderOrderedHeaders(t *testing.T) {
	req, err := parse("GET /old HTTP/1.0\r\n\r\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	resp := req.Respond(StatusMovedPermanently, "text/html", nil)
	resp.AddHeader("Location", "/new")
	resp.AddHeader("X-Trace", "abc")
	resp.AddHeader("Cache-Control", "no-cache")
	req.SetResponse(resp)

	want := "HTTP/1.0 301 Moved Permanently\r\n" +
		"Content-Length: 0\r\n" +
		"Content-Type: text/html\r\n" +
		"Connection: Close\r\n" +
		"Location: /new\r\n" +
		"X-Trace: abc\r\n" +
		"Cache-Control: no-cache\r\n" +
		"Server: ember\r\n\r\n"

	if got := renderHeader(t, req); got != want {
		t.Errorf("header block = %q, want %q", got, want)
	}
}

func TestPrepareResponseHeaderStatusDigits(t *testing.T) {
	tests := []struct {
		status uint16
		line   string
	}{
		{0, "HTTP/1.1 000 Invalid\r\n"},
		{7, "HTTP/1.1 007 Invalid\r\n"},
		{42, "HTTP/1.1 042 Invalid\r\n"},
		{404, "HTTP/1.1 404 Not Found\r\n"},
		{413, "HTTP/1.1 413 Request Too Large\r\n"},
		{599, "HTTP/1.1 599 Invalid\r\n"},
		{999, "HTTP/1.1 999 Invalid\r\n"},
	}

	for _, tt := range tests {
		req, err := parse("GET / HTTP/1.1\r\n\r\n")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		req.SetResponse(req.Respond(tt.status, "text/plain", nil))

		got := renderHeader(t, req)
		if !strings.HasPrefix(got, tt.line) {
			t.Errorf("status %d: header block = %q, want prefix %q", tt.status, got, tt.line)
		}
	}
}

func TestPrepareResponseHeaderDefaultMime(t *testing.T) {
	req, err := parse("GET / HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	req.SetResponse(req.Respond(StatusOK, "", []byte("x")))

	if got := renderHeader(t, req); !strings.Contains(got, "\r\nContent-Type: text/plain\r\n") {
		t.Errorf("header block = %q, want text/plain content type", got)
	}
}

func TestPrepareResponseHeaderLargeContentLength(t *testing.T) {
	req, err := parse("GET / HTTP/1.1\r\n\r\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	resp := req.Respond(StatusOK, "application/octet-stream", nil)
	resp.ContentLength = 1234567890
	req.SetResponse(resp)

	want := "\r\nContent-Length: 1234567890\r\n"
	if got := renderHeader(t, req); !strings.Contains(got, want) {
		t.Errorf("header block = %q, want %q", got, want)
	}
}

func TestDefaultResponse(t *testing.T) {
	tests := []struct {
		status uint16
		body   string
	}{
		{StatusNotFound, "<html><head><title>404 Not Found</title></head><body><h1>404 Not Found</h1></body></html>"},
		{StatusBadRequest, "<html><head><title>400 Bad Request</title></head><body><h1>400 Bad Request</h1></body></html>"},
		{StatusRequestEntityTooLarge, "<html><head><title>413 Request Too Large</title></head><body><h1>413 Request Too Large</h1></body></html>"},
	}

	for _, tt := range tests {
		req := AcquireRequest()

		resp := DefaultResponse(req, tt.status)
		if req.Response() != resp {
			t.Errorf("status %d: DefaultResponse did not set the request response", tt.status)
		}
		if string(resp.Body) != tt.body {
			t.Errorf("status %d: body = %q, want %q", tt.status, resp.Body, tt.body)
		}
		if resp.MimeType != "text/html" {
			t.Errorf("status %d: MimeType = %q, want text/html", tt.status, resp.MimeType)
		}
		if resp.ContentLength != len(tt.body) {
			t.Errorf("status %d: ContentLength = %d, want %d", tt.status, resp.ContentLength, len(tt.body))
		}

		// Never parsed: HTTP/1.0 and Close.
		got := renderHeader(t, req)
		wantLine := "HTTP/1.0 " + strconv.Itoa(int(tt.status)) + " " + StatusText(tt.status) + "\r\n"
		if !strings.HasPrefix(got, wantLine) {
			t.Errorf("status %d: header block = %q, want prefix %q", tt.status, got, wantLine)
		}
		if !strings.Contains(got, "\r\nConnection: Close\r\n") {
			t.Errorf("status %d: header block = %q, want Connection: Close", tt.status, got)
		}

		ReleaseRequest(req)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		code uint16
		want string
	}{
		{200, "OK"},
		{301, "Moved Permanently"},
		{403, "Forbidden"},
		{405, "Method Not Allowed"},
		{500, "Internal Server Error"},
		{299, "Invalid"},
		{1000, "Invalid"},
		{65535, "Invalid"},
	}

	for _, tt := range tests {
		if got := StatusText(tt.code); got != tt.want {
			t.Errorf("StatusText(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestFormatUint(t *testing.T) {
	tests := []uint64{0, 1, 9, 10, 99, 100, 12345, 1<<32 - 1, 1<<64 - 1}

	for _, v := range tests {
		var scratch [uintBufferSize]byte
		want := strconv.FormatUint(v, 10)
		if got := string(formatUint(&scratch, v)); got != want {
			t.Errorf("formatUint(%d) = %q, want %q", v, got, want)
		}
		if got := uintLen(v); got != len(want) {
			t.Errorf("uintLen(%d) = %d, want %d", v, got, len(want))
		}
	}
}

func BenchmarkPrepareResponseHeader(b *testing.B) {
	req, err := parse("GET / HTTP/1.1\r\n\r\n")
	if err != nil {
		b.Fatal(err)
	}
	resp := req.Respond(StatusOK, "text/plain", []byte("Hello, World!"))
	resp.AddHeader("Cache-Control", "no-cache")
	req.SetResponse(resp)
	dst := make([]byte, DefaultResponseHeaderSize)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		PrepareResponseHeader(req, dst)
	}
}
