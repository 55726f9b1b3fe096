// Package http1 implements the request-processing core of the ember HTTP/1.x server:
// single-read zero-copy request parsing, prefix routing and allocation-free
// response header serialization.
package http1

// Method identifies a recognized request method.
// Only GET and HEAD are served; every other verb is answered with 405.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGET
	MethodHEAD
)

// String returns the method token.
func (m Method) String() string {
	switch m {
	case MethodGET:
		return "GET"
	case MethodHEAD:
		return "HEAD"
	default:
		return ""
	}
}

// Version is the protocol version of a parsed request.
// The zero value is HTTP10, which is also what error responses use when
// the request line was never parsed.
type Version uint8

const (
	HTTP10 Version = iota
	HTTP11

	numVersions
)

// Version strings indexed by Version. The array length is tied to the
// enumeration so adding a version without a string fails to compile.
var httpVersions = [numVersions]string{
	HTTP10: "1.0",
	HTTP11: "1.1",
}

// String returns "HTTP/1.0" or "HTTP/1.1".
func (v Version) String() string {
	if v >= numVersions {
		return ""
	}
	return "HTTP/" + httpVersions[v]
}

// Connection header values indexed by the keep-alive flag (0 = close).
var connectionTypes = [2]string{
	"Close",
	"Keep-Alive",
}

// Request tokens matched at the start of the request line.
var (
	methodGETToken  = []byte("GET ")
	methodHEADToken = []byte("HEAD ")
)

// versionMarker is the fixed-width protocol literal the request line ends with.
// The path/version split steps back len(versionMarker)+1 bytes from the CR.
const versionMarker = "HTTP/X.X"

var httpPrefix = []byte("HTTP/")

// Recognized request header names.
// Only Connection is retained; the rest are recognized and dropped.
var (
	headerConnection      = []byte("Connection")
	headerHost            = []byte("Host")
	headerIfModifiedSince = []byte("If-Modified-Since")
	headerRange           = []byte("Range")
	headerReferer         = []byte("Referer")
	headerCookie          = []byte("Cookie")
)

// Response header block fragments.
const (
	respHTTPPrefix     = "HTTP/"
	respContentLength  = "\r\nContent-Length: "
	respContentType    = "\r\nContent-Type: "
	respConnection     = "\r\nConnection: "
	respServerAndEnd   = "\r\nServer: " + ServerName + "\r\n\r\n"
	respHeaderSep      = ": "
	respCRLF           = "\r\n"
	decimalDigits      = "0123456789"
	defaultMimeType    = "text/plain"
	defaultErrorMime   = "text/html"
	uintBufferSize     = 20
	statusDigits       = 3
	minHeaderLineBytes = 4
)

// ServerName is the product name sent in the Server response header.
const ServerName = "ember"

// Buffer limits
const (
	// ReadBufferSize is the capacity of the single read per request.
	// A read that fills it completely is rejected as too large.
	ReadBufferSize = 6 * 1024

	// DefaultResponseHeaderSize is the default capacity of a connection's
	// response header scratch buffer. Responses whose header block does not
	// fit are replaced by a 500.
	DefaultResponseHeaderSize = 1024
)
