package router

import "github.com/searchktools/fire-server/core/http"

// Route is one registration in a Table.
type Route[H any] struct {
	Method  http.Method
	Pattern *Pattern
	Handler H
}

// Table is an append-only list of routes. Resolve scans it newest first, so
// a later registration shadows an earlier one matching the same request.
// A Table must not be modified once it is being resolved concurrently.
type Table[H any] struct {
	routes []Route[H]
}

// NewTable creates an empty route table
func NewTable[H any]() *Table[H] {
	return &Table[H]{}
}

// Register adds a route. It panics on an invalid pattern.
func (t *Table[H]) Register(method http.Method, pattern string, handler H) {
	t.routes = append(t.routes, Route[H]{
		Method:  method,
		Pattern: MustCompile(pattern),
		Handler: handler,
	})
}

// Resolve returns the handler of the most recently registered route whose
// method (exact or ANY) and pattern match.
func (t *Table[H]) Resolve(method http.Method, path string) (H, map[string]string, bool) {
	for i := len(t.routes) - 1; i >= 0; i-- {
		r := &t.routes[i]
		if !r.Method.Matches(method) {
			continue
		}
		if params, ok := r.Pattern.Match(path); ok {
			return r.Handler, params, true
		}
	}
	var zero H
	return zero, nil, false
}

// Routes returns the registrations in registration order.
func (t *Table[H]) Routes() []Route[H] {
	return t.routes
}

// Len returns the number of routes
func (t *Table[H]) Len() int {
	return len(t.routes)
}
