package http1

const (
	StatusContinue           uint16 = 100
	StatusSwitchingProtocols uint16 = 101

	StatusOK             uint16 = 200
	StatusCreated        uint16 = 201
	StatusAccepted       uint16 = 202
	StatusNoContent      uint16 = 204
	StatusPartialContent uint16 = 206

	StatusMovedPermanently  uint16 = 301
	StatusFound             uint16 = 302
	StatusSeeOther          uint16 = 303
	StatusNotModified       uint16 = 304
	StatusTemporaryRedirect uint16 = 307
	StatusPermanentRedirect uint16 = 308

	StatusBadRequest                   uint16 = 400
	StatusUnauthorized                 uint16 = 401
	StatusForbidden                    uint16 = 403
	StatusNotFound                     uint16 = 404
	StatusMethodNotAllowed             uint16 = 405
	StatusNotAcceptable                uint16 = 406
	StatusRequestTimeout               uint16 = 408
	StatusGone                         uint16 = 410
	StatusLengthRequired               uint16 = 411
	StatusPreconditionFailed           uint16 = 412
	StatusRequestEntityTooLarge        uint16 = 413
	StatusRequestURITooLong            uint16 = 414
	StatusUnsupportedMediaType         uint16 = 415
	StatusRequestedRangeNotSatisfiable uint16 = 416
	StatusTeapot                       uint16 = 418
	StatusTooManyRequests              uint16 = 429
	StatusRequestHeaderFieldsTooLarge  uint16 = 431

	StatusInternalServerError     uint16 = 500
	StatusNotImplemented          uint16 = 501
	StatusBadGateway              uint16 = 502
	StatusServiceUnavailable      uint16 = 503
	StatusGatewayTimeout          uint16 = 504
	StatusHTTPVersionNotSupported uint16 = 505
)

// statusTableSize bounds the codes the serializer can render with its
// three-digit table (0..999). Codes without a phrase report "Invalid".
const statusTableSize = 1000

const invalidStatusText = "Invalid"

var statusText = [statusTableSize]string{
	StatusContinue:           "Continue",
	StatusSwitchingProtocols: "Switching Protocols",

	StatusOK:             "OK",
	StatusCreated:        "Created",
	StatusAccepted:       "Accepted",
	StatusNoContent:      "No Content",
	StatusPartialContent: "Partial Content",

	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",

	StatusBadRequest:                   "Bad Request",
	StatusUnauthorized:                 "Unauthorized",
	StatusForbidden:                    "Forbidden",
	StatusNotFound:                     "Not Found",
	StatusMethodNotAllowed:             "Method Not Allowed",
	StatusNotAcceptable:                "Not Acceptable",
	StatusRequestTimeout:               "Request Timeout",
	StatusGone:                         "Gone",
	StatusLengthRequired:               "Length Required",
	StatusPreconditionFailed:           "Precondition Failed",
	StatusRequestEntityTooLarge:        "Request Too Large",
	StatusRequestURITooLong:            "Request URI Too Long",
	StatusUnsupportedMediaType:         "Unsupported Media Type",
	StatusRequestedRangeNotSatisfiable: "Requested Range Not Satisfiable",
	StatusTeapot:                       "I'm a teapot",
	StatusTooManyRequests:              "Too Many Requests",
	StatusRequestHeaderFieldsTooLarge:  "Request Header Fields Too Large",

	StatusInternalServerError:     "Internal Server Error",
	StatusNotImplemented:          "Not Implemented",
	StatusBadGateway:              "Bad Gateway",
	StatusServiceUnavailable:      "Service Unavailable",
	StatusGatewayTimeout:          "Gateway Timeout",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for code, or "Invalid".
func StatusText(code uint16) string {
	if int(code) >= statusTableSize {
		return invalidStatusText
	}
	if s := statusText[code]; s != "" {
		return s
	}
	return invalidStatusText
}
