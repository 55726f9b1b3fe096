package http1

import (
	"github.com/valyala/bytebufferpool"
)

// Header is one handler-supplied response header.
type Header struct {
	Name  string
	Value string
}

// Response describes what a handler answers. Headers are serialized in
// slice order after the standard Content-Length, Content-Type and
// Connection headers.
//
// An empty MimeType is sent as text/plain.
type Response struct {
	Status        uint16
	ContentLength int
	MimeType      string
	Headers       []Header

	// Body is written after the header block, except for HEAD requests.
	Body []byte
}

// AddHeader appends a header, keeping insertion order.
func (r *Response) AddHeader(name, value string) {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// Reset clears the response, keeping the header slice capacity.
func (r *Response) Reset() {
	r.Status = 0
	r.ContentLength = 0
	r.MimeType = ""
	r.Headers = r.Headers[:0]
	r.Body = nil
}

// ResponseHeaderSize returns the exact number of bytes PrepareResponseHeader
// writes for resp answering req. Callers use it to size the output buffer.
func ResponseHeaderSize(req *Request, resp *Response) int {
	size := len(respHTTPPrefix) + len(httpVersions[HTTP10]) + 1 + statusDigits + 1 +
		len(StatusText(resp.Status)) +
		len(respContentLength) + uintLen(contentLength(resp)) +
		len(respContentType) + len(mimeType(resp)) +
		len(respConnection) + len(connectionTypes[boolIndex(req.keepAlive)])
	for i := range resp.Headers {
		size += len(respCRLF) + len(resp.Headers[i].Name) + len(respHeaderSep) + len(resp.Headers[i].Value)
	}
	return size + len(respServerAndEnd)
}

// PrepareResponseHeader renders the status line and header block for the
// request's response into dst and returns the number of bytes written:
//
//	HTTP/<version> <status> <reason>\r\n
//	Content-Length: <n>\r\n
//	Content-Type: <mime>\r\n
//	Connection: <Keep-Alive|Close>
//	(\r\n<name>: <value>)*
//	\r\nServer: ember\r\n\r\n
//
// The status is rendered as exactly three digits; codes must be in [0, 999].
// No bounds checking is done: dst must hold at least
// ResponseHeaderSize(req, resp) bytes.
//
// Allocation behavior: 0 allocs/op
func PrepareResponseHeader(req *Request, dst []byte) int {
	resp := req.response
	var scratch [uintBufferSize]byte

	n := copy(dst, respHTTPPrefix)
	n += copy(dst[n:], httpVersions[req.version])
	dst[n] = ' '
	n++
	dst[n] = decimalDigits[(resp.Status/100)%10]
	dst[n+1] = decimalDigits[(resp.Status/10)%10]
	dst[n+2] = decimalDigits[resp.Status%10]
	n += statusDigits
	dst[n] = ' '
	n++
	n += copy(dst[n:], StatusText(resp.Status))

	n += copy(dst[n:], respContentLength)
	n += copy(dst[n:], formatUint(&scratch, contentLength(resp)))
	n += copy(dst[n:], respContentType)
	n += copy(dst[n:], mimeType(resp))
	n += copy(dst[n:], respConnection)
	n += copy(dst[n:], connectionTypes[boolIndex(req.keepAlive)])

	for i := range resp.Headers {
		n += copy(dst[n:], respCRLF)
		n += copy(dst[n:], resp.Headers[i].Name)
		n += copy(dst[n:], respHeaderSep)
		n += copy(dst[n:], resp.Headers[i].Value)
	}

	n += copy(dst[n:], respServerAndEnd)
	return n
}

// DefaultResponse builds the canned HTML response for status on the
// request-owned response storage and makes it the request's response.
// Used for parse failures, unmatched routes and handlers that give up.
func DefaultResponse(req *Request, status uint16) *Response {
	bb := req.errBody
	if bb == nil {
		bb = bytebufferpool.Get()
		req.errBody = bb
	}
	bb.Reset()

	text := StatusText(status)
	var scratch [uintBufferSize]byte
	code := formatUint(&scratch, uint64(status))

	bb.WriteString("<html><head><title>")
	bb.Write(code)
	bb.WriteString(" ")
	bb.WriteString(text)
	bb.WriteString("</title></head><body><h1>")
	bb.Write(code)
	bb.WriteString(" ")
	bb.WriteString(text)
	bb.WriteString("</h1></body></html>")

	resp := req.Respond(status, defaultErrorMime, bb.B)
	req.response = resp
	return resp
}

func mimeType(resp *Response) string {
	if resp.MimeType == "" {
		return defaultMimeType
	}
	return resp.MimeType
}

func contentLength(resp *Response) uint64 {
	if resp.ContentLength < 0 {
		return 0
	}
	return uint64(resp.ContentLength)
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}
