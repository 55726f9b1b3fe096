// Package handlers provides the built-in ember handlers and builds a router
// from configured routes.
package handlers

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/yourusername/ember/pkg/ember/http1"
)

// HelloWorld is the body of the hello handler.
const HelloWorld = "Hello, world!"

// text serves a fixed payload.
type text struct {
	status uint16
	mime   string
	body   []byte
}

// Text returns a handler that answers every request with body.
// A zero status means 200; an empty mime means text/plain.
func Text(status uint16, mime string, body []byte) http1.Handler {
	if status == 0 {
		status = http1.StatusOK
	}
	if mime == "" {
		mime = "text/plain"
	}
	return &text{status: status, mime: mime, body: body}
}

// Hello returns the hello-world handler.
func Hello() http1.Handler {
	return Text(http1.StatusOK, "text/plain", []byte(HelloWorld))
}

func (h *text) Handle(req *http1.Request) *http1.Response {
	return req.Respond(h.status, h.mime, h.body)
}

// JSON returns a handler serving v encoded once with go-json.
func JSON(status uint16, v any) (http1.Handler, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("handlers: encode json: %w", err)
	}
	return Text(status, "application/json", body), nil
}

type redirect struct {
	status   uint16
	location string
}

// Redirect returns a handler answering with status and a Location header.
// A zero status means 302.
func Redirect(status uint16, location string) http1.Handler {
	if status == 0 {
		status = http1.StatusFound
	}
	return &redirect{status: status, location: location}
}

func (h *redirect) Handle(req *http1.Request) *http1.Response {
	resp := req.Respond(h.status, "text/plain", nil)
	resp.AddHeader("Location", h.location)
	return resp
}
