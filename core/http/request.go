package http

import (
	"strings"
	"time"

	"github.com/searchktools/fire-server/core/codec"
)

// Request is a parsed HTTP request. It is not modified after parsing except
// for its path parameters, which the dispatcher sets once before calling the
// matched handler.
type Request struct {
	Method  Method
	Path    string
	Version string
	Query   Query
	Headers Headers
	Body    []byte

	// Address is the client address as host:port.
	Address    string
	ReceivedAt time.Time

	params    map[string]string
	paramsSet bool
	socket    *Socket
}

// NewRequest builds a request outside the parser, for tests and internal
// redirects. It has no socket until WithSocket is called.
func NewRequest(method Method, path string) *Request {
	return &Request{Method: method, Path: path, Version: "HTTP/1.1", ReceivedAt: time.Now()}
}

// WithSocket returns a copy of r bound to s.
func (r *Request) WithSocket(s *Socket) *Request {
	out := r.Clone()
	out.socket = s
	if addr := s.RemoteAddr(); addr != nil {
		out.Address = addr.String()
	}
	return out
}

// Socket returns the connection the request arrived on. It is nil for
// requests built outside the connection handler.
func (r *Request) Socket() *Socket {
	return r.socket
}

// Header returns the first value of the named header, case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers.Get(name)
}

// Param returns a path parameter bound by the matched route.
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.params[name]
	return v, ok
}

// Params returns all path parameters. Nil until a route matched.
func (r *Request) Params() map[string]string {
	return r.params
}

// SetParams binds path parameters. Only the first call has an effect.
func (r *Request) SetParams(p map[string]string) {
	if r.paramsSet {
		return
	}
	if p == nil {
		p = map[string]string{}
	}
	r.params = p
	r.paramsSet = true
}

// KeepAlive reports whether the client allows the connection to be reused.
// HTTP/1.1 defaults to keep-alive; HTTP/1.0 needs an explicit opt-in.
func (r *Request) KeepAlive() bool {
	conn := strings.ToLower(r.Header(HeaderConnection))
	if hasToken(conn, "close") {
		return false
	}
	if r.Version == "HTTP/1.0" {
		return hasToken(conn, "keep-alive")
	}
	return true
}

// Form decodes an application/x-www-form-urlencoded body with the same
// rules as the URL query.
func (r *Request) Form() (Query, error) {
	return ParseQuery(string(r.Body))
}

// Decode unmarshals the body with c.
func (r *Request) Decode(c codec.Codec, v any) error {
	return c.Decode(r.Body, v)
}

// Clone returns a copy that can be modified by middleware without touching r.
func (r *Request) Clone() *Request {
	out := *r
	out.Headers = r.Headers.Clone()
	out.Query = append(Query(nil), r.Query...)
	return &out
}

func hasToken(list, token string) bool {
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == token {
			return true
		}
	}
	return false
}
