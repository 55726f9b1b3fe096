package http1

import "github.com/yourusername/ember/pkg/ember/trie"

// Handler produces the response for a dispatched request. req.URL() is
// relative to the matched prefix. Returning nil makes the driver answer 500.
type Handler interface {
	Handle(req *Request) *Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *Request) *Response

// Handle calls f(req).
func (f HandlerFunc) Handle(req *Request) *Response {
	return f(req)
}

// URLMap binds a path prefix to its handler.
type URLMap struct {
	Prefix  string
	Handler Handler
}

// Router resolves request paths to handlers by longest registered prefix.
// Routes must all be added before the router serves requests.
type Router struct {
	routes *trie.Trie[*URLMap]
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{routes: trie.New[*URLMap]()}
}

// Add registers h under prefix. A later Add for the same prefix wins.
func (r *Router) Add(prefix string, h Handler) {
	r.routes.Add(prefix, &URLMap{Prefix: prefix, Handler: h})
}

// Len returns the number of registered prefixes.
func (r *Router) Len() int {
	return r.routes.Len()
}

// Dispatch finds the handler for req, rebases the URL past the matched
// prefix and invokes the handler. The handler's result becomes the request's
// response. ok is false when no prefix matches.
//
// Example: with a route "/a/b", "/a/b/c" is handed to the handler as "/c".
func (r *Router) Dispatch(req *Request) (resp *Response, ok bool) {
	m, n, found := r.routes.LookupPrefix(req.URL())
	if !found {
		return nil, false
	}
	req.rebase(n)

	resp = m.Handler.Handle(req)
	req.response = resp
	return resp, true
}
