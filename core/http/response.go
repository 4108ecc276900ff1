package http

import (
	"fmt"
	"io"
	nethttp "net/http"

	"github.com/searchktools/fire-server/core/codec"
)

// Common content types
const (
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
	ContentTypeJSON = "application/json"
)

// Response is what a handler or middleware sends back. The setters mutate
// and return the receiver so calls can be chained in any order.
type Response struct {
	Code         int
	ReasonPhrase string
	Body         []byte
	Headers      Headers

	// CloseConn forces the connection to close after this response,
	// whatever the request asked for.
	CloseConn bool

	stream io.Reader
}

// NewResponse returns a 200 response with body "OK".
func NewResponse() *Response {
	return &Response{Code: 200, Body: []byte("OK")}
}

// Textf builds a text/plain response with a formatted body.
func Textf(status int, format string, args ...any) *Response {
	return NewResponse().Status(status).Text(fmt.Sprintf(format, args...)).Content(ContentTypeText)
}

// Status sets the status code.
func (r *Response) Status(code int) *Response {
	r.Code = code
	return r
}

// Reason overrides the reason phrase.
func (r *Response) Reason(reason string) *Response {
	r.ReasonPhrase = reason
	return r
}

// Text sets the body to s.
func (r *Response) Text(s string) *Response {
	r.Body = []byte(s)
	r.stream = nil
	return r
}

// Bytes sets the body to b.
func (r *Response) Bytes(b []byte) *Response {
	r.Body = b
	r.stream = nil
	return r
}

// Header appends a header.
func (r *Response) Header(name, value string) *Response {
	r.Headers.Add(name, value)
	return r
}

// Content sets the Content-Type header, replacing any previous one.
func (r *Response) Content(contentType string) *Response {
	r.Headers.Set(HeaderContentType, contentType)
	return r
}

// Close marks the connection for closing once this response is written.
func (r *Response) Close() *Response {
	r.CloseConn = true
	return r
}

// Stream sends the body from src using chunked transfer encoding.
func (r *Response) Stream(src io.Reader) *Response {
	r.stream = src
	r.Body = nil
	return r
}

// Streamed reports whether the body comes from a reader.
func (r *Response) Streamed() bool {
	return r.stream != nil
}

// Encode marshals v with c into the body and sets the matching
// Content-Type. An encoding failure turns the response into a 500.
func (r *Response) Encode(c codec.Codec, v any) *Response {
	data, err := c.Encode(v)
	if err != nil {
		return r.Status(500).Text(c.Name() + " encode error: " + err.Error()).Content(ContentTypeText)
	}
	return r.Bytes(data).Content(c.ContentType())
}

// reason returns the phrase for the status line.
func (r *Response) reason() string {
	if r.ReasonPhrase != "" {
		return r.ReasonPhrase
	}
	if text := nethttp.StatusText(r.Code); text != "" {
		return text
	}
	return "Unknown"
}
