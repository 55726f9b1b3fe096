package http1

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ReadRequest performs the single read for an exchange into req's buffer and
// parses it. The request must be freshly reset.
//
// Results:
//   - nil: method, URL, version, connection byte and keep-alive are set
//   - ErrConnectionClosed: zero-byte read, nothing to answer
//   - ErrReadFailure (wrapping the I/O error): treat as closed
//   - ErrRequestTooLarge, ErrMethodNotAllowed, ErrBadRequest: answer with
//     the default response for StatusForError(err)
//
// Allocation behavior: 0 allocs/op
func ReadRequest(src io.Reader, req *Request) error {
	n, err := src.Read(req.buf[:])
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return ErrConnectionClosed
		}
		return fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if n == len(req.buf) {
		return ErrRequestTooLarge
	}
	return parseRequest(req, n)
}

// ParseRequest parses data as if it had been read in one call. data is copied
// into req's buffer; it is rejected as too large if it would fill the buffer.
func ParseRequest(data []byte, req *Request) error {
	if len(data) == 0 {
		return ErrConnectionClosed
	}
	if len(data) >= len(req.buf) {
		return ErrRequestTooLarge
	}
	n := copy(req.buf[:], data)
	return parseRequest(req, n)
}

// parseRequest runs the request-line parser, the header parser and the flag
// deriver over buf[:n]. n is strictly less than len(buf).
func parseRequest(req *Request, n int) error {
	buf := req.buf[:n+1]
	buf[n] = 0
	req.n = n

	p := skipLeadingWhitespace(buf)
	if buf[p] == 0 {
		return ErrBadRequest
	}

	p, err := identifyMethod(req, buf, p, n)
	if err != nil {
		return err
	}

	p, err = identifyPath(req, buf, p, n)
	if err != nil {
		return err
	}

	parseHeaders(req, buf, p, n)
	computeFlags(req)
	return nil
}

// skipLeadingWhitespace returns the index of the first byte that is not a
// space, tab, CR or LF. Stops at the terminator.
func skipLeadingWhitespace(buf []byte) int {
	p := 0
	for buf[p] != 0 {
		switch buf[p] {
		case ' ', '\t', '\r', '\n':
			p++
			continue
		}
		break
	}
	return p
}

// indexCR returns the index of the first '\r' in buf[from:from+limit], or -1.
func indexCR(buf []byte, from, limit int) int {
	if from >= len(buf) {
		return -1
	}
	window := buf[from:]
	if limit < len(window) {
		window = window[:limit]
	}
	i := bytes.IndexByte(window, '\r')
	if i < 0 {
		return -1
	}
	return from + i
}

// indexLF returns the index of the first '\n' at or after from, or -1.
// The search stops at the first 0 byte, whether it was sent by the client
// or is the terminator written at the bytes-read boundary.
func indexLF(buf []byte, from, end int) int {
	return indexBeforeNUL(buf, from, end, '\n')
}

// indexBeforeNUL returns the index of the first c in buf[from:end], or -1
// if c is absent or a 0 byte comes before it.
func indexBeforeNUL(buf []byte, from, end int, c byte) int {
	if from >= end {
		return -1
	}
	window := buf[from:end]
	i := bytes.IndexByte(window, c)
	if i < 0 || bytes.IndexByte(window[:i], 0) >= 0 {
		return -1
	}
	return from + i
}

// identifyMethod matches the method token and its separating space at p and
// returns the index right after them.
func identifyMethod(req *Request, buf []byte, p, end int) (int, error) {
	rest := buf[p:end]
	switch {
	case bytes.HasPrefix(rest, methodGETToken):
		req.method = MethodGET
		return p + len(methodGETToken), nil
	case bytes.HasPrefix(rest, methodHEADToken):
		req.method = MethodHEAD
		return p + len(methodHEADToken), nil
	}
	return 0, ErrMethodNotAllowed
}

// identifyPath splits "<path> HTTP/1.x\r" starting at p. The CR is searched
// within limit bytes; the version is located by stepping back over the
// fixed-width "HTTP/X.X" literal instead of scanning forward for a space.
func identifyPath(req *Request, buf []byte, p, limit int) (int, error) {
	eol := indexCR(buf, p, limit)
	if eol < 0 {
		return 0, ErrBadRequest
	}
	buf[eol] = 0

	// Need the separator byte, the marker and at least one path byte.
	if eol-p < len(versionMarker)+2 {
		return 0, ErrBadRequest
	}

	space := eol - len(versionMarker) - 1
	if buf[space+1] != 'H' || !bytes.Equal(buf[space+1:space+1+len(httpPrefix)], httpPrefix) {
		return 0, ErrBadRequest
	}
	buf[space] = 0

	// "HTTP/M.m": major at +6, minor at +8 relative to the separator.
	if buf[space+6] != '1' {
		return 0, ErrBadRequest
	}
	if buf[space+8] == '0' {
		req.version = HTTP10
	} else {
		req.version = HTTP11
	}

	if buf[p] != '/' {
		return 0, ErrBadRequest
	}
	req.urlStart = p
	req.urlEnd = space

	return eol + 1, nil
}

// parseHeaders scans the remaining lines for the recognized header names.
//
// Policy: a line that does not match (unknown name, missing ": ", missing
// CR, CR not followed by LF) is skipped, never rejected, so one bad header
// cannot abort an otherwise valid request. Only the Connection value is kept.
// The scan has no blank-line detection and runs to the end of the read or
// to the first 0 byte, whichever comes first.
func parseHeaders(req *Request, buf []byte, start, end int) {
	for p := start; p < end && buf[p] != 0; p++ {
		if p+minHeaderLineBytes >= end {
			break
		}

		if name := matchHeaderName(buf[p:end]); name != nil {
			vs, next, ok := matchHeaderValue(buf, p+len(name), end)
			if ok && bytesEqualCaseInsensitive(name, headerConnection) {
				// An empty value reads the terminator: 0 | 0x20.
				req.connection = buf[vs] | 0x20
			}
			// Host, If-Modified-Since, Range, Referer and Cookie are
			// recognized and dropped.
			p = next
		}

		p = indexLF(buf, p, end)
		if p < 0 {
			break
		}
	}
}

// matchHeaderName returns the recognized header name line starts with.
func matchHeaderName(line []byte) []byte {
	for _, name := range recognizedHeaders {
		if len(line) > len(name) && bytesEqualCaseInsensitive(line[:len(name)], name) {
			return name
		}
	}
	return nil
}

var recognizedHeaders = [...][]byte{
	headerConnection,
	headerHost,
	headerIfModifiedSince,
	headerRange,
	headerReferer,
	headerCookie,
}

// matchHeaderValue checks for ": " at p, terminates the value at its CR and
// checks the LF. It returns the value start and the index the line scan
// resumes from: the LF on success, otherwise the byte after the last one
// examined (the mismatched ':' or ' ', or the CR not followed by LF).
// buf[end] is the terminator, so reading it is always in bounds.
func matchHeaderValue(buf []byte, p, end int) (vs, next int, ok bool) {
	if buf[p] != ':' {
		return 0, p + 1, false
	}
	if buf[p+1] != ' ' {
		return 0, p + 2, false
	}
	vs = p + 2

	ve := indexBeforeNUL(buf, vs, end, '\r')
	if ve < 0 {
		return 0, vs, false
	}
	buf[ve] = 0

	next = ve + 1
	if buf[next] != '\n' {
		return 0, next, false
	}
	return vs, next, true
}

// computeFlags derives keep-alive from the version and the Connection byte.
func computeFlags(req *Request) {
	if req.version == HTTP11 {
		req.keepAlive = req.connection != 'c'
	} else {
		req.keepAlive = req.connection == 'k'
	}
}

// bytesEqualCaseInsensitive compares two ASCII byte slices ignoring case.
func bytesEqualCaseInsensitive(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if toLower(a[i]) != toLower(b[i]) {
			return false
		}
	}
	return true
}

func toLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}
