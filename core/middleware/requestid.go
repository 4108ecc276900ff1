package middleware

import (
	"github.com/oklog/ulid/v2"

	"github.com/searchktools/fire-server/core/http"
)

// RequestID tags every request and its response with an id. An id sent by
// the client is kept.
type RequestID struct {
	Base

	header   string
	generate func() string
}

// NewRequestID creates the middleware using the X-Request-ID header and
// ULIDs for new ids.
func NewRequestID() *RequestID {
	return &RequestID{
		header:   http.HeaderRequestID,
		generate: func() string { return ulid.Make().String() },
	}
}

// Header changes the header name.
func (m *RequestID) Header(name string) *RequestID {
	m.header = name
	return m
}

func (m *RequestID) Pre(req *http.Request, err error) Result {
	if err != nil || req == nil || req.Headers.Has(m.header) {
		return Continue()
	}

	tagged := req.Clone()
	tagged.Headers.Add(m.header, m.generate())
	return Replace(tagged)
}

func (m *RequestID) Post(req *http.Request, res *http.Response, err error) Result {
	if err != nil || req == nil || res.Headers.Has(m.header) {
		return Continue()
	}

	id := req.Header(m.header)
	if id == "" {
		return Continue()
	}
	return Add(res.Header(m.header, id))
}
