package http1

import (
	"sync"

	"github.com/valyala/bytebufferpool"
)

// Request is one inbound HTTP exchange.
//
// The request owns the buffer the exchange is read into. URL() and header
// spans are index pairs into that buffer: they are valid until Reset or
// ReleaseRequest and must be copied (URLString) if kept longer. The buffer
// is filled by a single read and mutated in place exactly once (terminators
// are written over CR and the byte before "HTTP/").
//
// A Request must not be used from concurrently running goroutines.
type Request struct {
	buf [ReadBufferSize]byte
	n   int

	method  Method
	version Version

	urlStart int
	urlEnd   int

	// lowercased first byte of the Connection value, 0 when absent
	connection byte
	keepAlive  bool

	response *Response

	// storage for Respond and DefaultResponse
	resp    Response
	errBody *bytebufferpool.ByteBuffer
}

var requestPool = sync.Pool{
	New: func() interface{} {
		return &Request{}
	},
}

// AcquireRequest returns an empty Request from the pool.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets req and returns it to the pool.
// Slices obtained from req must not be used afterwards.
func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

// Method returns the parsed method.
func (r *Request) Method() Method {
	return r.method
}

// Version returns the parsed protocol version.
func (r *Request) Version() Version {
	return r.version
}

// URL returns the request path relative to the matched route prefix once
// dispatched. Zero-copy reference into the request buffer.
func (r *Request) URL() []byte {
	return r.buf[r.urlStart:r.urlEnd]
}

// URLString returns a copy of URL that outlives the request.
func (r *Request) URLString() string {
	return string(r.buf[r.urlStart:r.urlEnd])
}

// ConnectionByte returns the lowercased first byte of the Connection header
// value, or 0 if the header was absent.
func (r *Request) ConnectionByte() byte {
	return r.connection
}

// KeepAlive reports whether the connection stays open after this exchange.
func (r *Request) KeepAlive() bool {
	return r.keepAlive
}

// Response returns the response set by the handler, or nil.
func (r *Request) Response() *Response {
	return r.response
}

// SetResponse records the response that will be serialized for this request.
func (r *Request) SetResponse(resp *Response) {
	r.response = resp
}

// Respond fills the request-owned response and returns it. Handlers can
// return the result directly; nothing is allocated. Content length is taken
// from body.
func (r *Request) Respond(status uint16, mimeType string, body []byte) *Response {
	r.resp.Status = status
	r.resp.MimeType = mimeType
	r.resp.Body = body
	r.resp.ContentLength = len(body)
	r.resp.Headers = r.resp.Headers[:0]
	return &r.resp
}

// rebase moves the start of the URL forward by n bytes.
func (r *Request) rebase(n int) {
	r.urlStart += n
	if r.urlStart > r.urlEnd {
		r.urlStart = r.urlEnd
	}
}

// Reset clears the request for reuse. The read buffer is not zeroed; it is
// overwritten by the next read and terminated at the bytes-read boundary.
func (r *Request) Reset() {
	r.n = 0
	r.method = MethodUnknown
	r.version = HTTP10
	r.urlStart = 0
	r.urlEnd = 0
	r.connection = 0
	r.keepAlive = false
	r.response = nil
	r.resp.Reset()
	if r.errBody != nil {
		bytebufferpool.Put(r.errBody)
		r.errBody = nil
	}
}
