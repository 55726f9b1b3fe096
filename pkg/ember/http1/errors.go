package http1

import "errors"

// Request errors. Pre-allocated so the failure paths do not allocate.
var (
	// ErrConnectionClosed indicates the peer closed the connection
	// (zero-byte read). Not a failure; no response is sent.
	ErrConnectionClosed = errors.New("http1: connection closed")

	// ErrReadFailure wraps an I/O error from the single request read.
	ErrReadFailure = errors.New("http1: read failure")

	// ErrRequestTooLarge indicates the read filled the entire request buffer.
	ErrRequestTooLarge = errors.New("http1: request too large")

	// ErrMethodNotAllowed indicates a verb other than GET or HEAD.
	ErrMethodNotAllowed = errors.New("http1: method not allowed")

	// ErrBadRequest indicates a malformed request line: missing CR, missing
	// HTTP/ marker, unsupported major version, unrooted path or a line too
	// short to hold the version.
	ErrBadRequest = errors.New("http1: bad request")
)

// Response errors
var (
	// ErrResponseHeaderTooLarge indicates the handler's headers do not fit
	// the response header scratch buffer.
	ErrResponseHeaderTooLarge = errors.New("http1: response header too large")

	// ErrNoResponse indicates a handler returned a nil Response.
	ErrNoResponse = errors.New("http1: handler produced no response")
)

// StatusForError maps a request error to the status of its default response.
// Errors that carry no response map to 0.
func StatusForError(err error) uint16 {
	switch {
	case errors.Is(err, ErrRequestTooLarge):
		return StatusRequestEntityTooLarge
	case errors.Is(err, ErrMethodNotAllowed):
		return StatusMethodNotAllowed
	case errors.Is(err, ErrBadRequest):
		return StatusBadRequest
	case errors.Is(err, ErrResponseHeaderTooLarge), errors.Is(err, ErrNoResponse):
		return StatusInternalServerError
	default:
		return 0
	}
}
