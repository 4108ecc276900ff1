package http

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError is a malformed-request failure. Reason is the short diagnostic
// sent back to the client.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "http: parse: " + strings.ToLower(e.Reason)
}

// Parse errors
var (
	ErrNoSeparator   = &ParseError{Reason: "No separator"}
	ErrNoMethod      = &ParseError{Reason: "No method"}
	ErrNoPath        = &ParseError{Reason: "No path"}
	ErrNoVersion     = &ParseError{Reason: "No HTTP version"}
	ErrNoRequestLine = &ParseError{Reason: "No request line"}
	ErrInvalidQuery  = &ParseError{Reason: "Invalid query"}
	ErrInvalidHeader = &ParseError{Reason: "Invalid header"}
	ErrInvalidMethod = &ParseError{Reason: "Invalid method"}
	ErrInvalidChunk  = &ParseError{Reason: "Invalid chunk"}
)

// StreamError means the connection failed mid-request. No response is
// attempted for it.
type StreamError struct {
	Reason string
	Err    error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("http: stream: %s: %v", e.Reason, e.Err)
	}
	return "http: stream: " + e.Reason
}

func (e *StreamError) Unwrap() error { return e.Err }

// ErrUnexpectedEOF is returned when the peer disappears inside a body.
var ErrUnexpectedEOF = &StreamError{Reason: "unexpected eof"}

// ErrConnClosed signals that the peer closed the connection before sending
// any byte of a new request.
var ErrConnClosed = errors.New("http: connection closed by peer")

// HandleErrorKind tells not-found and panic failures apart.
type HandleErrorKind int

const (
	NotFound HandleErrorKind = iota + 1
	Panic
)

// HandleError is a failure after parsing: no route matched, or a handler or
// middleware panicked.
type HandleError struct {
	Kind   HandleErrorKind
	Method Method
	Path   string

	// Request is the request being served when a panic happened. It is nil
	// when the request never parsed, in which case RequestErr holds why.
	Request    *Request
	RequestErr error
	Message    string
}

// NewNotFound builds the not-found handling error.
func NewNotFound(method Method, path string) *HandleError {
	return &HandleError{Kind: NotFound, Method: method, Path: path}
}

// NewPanic builds the panic handling error.
func NewPanic(req *Request, reqErr error, message string) *HandleError {
	return &HandleError{Kind: Panic, Request: req, RequestErr: reqErr, Message: message}
}

func (e *HandleError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("http: cannot %s %s", e.Method, e.Path)
	case Panic:
		return "http: handler panicked: " + e.Message
	default:
		return "http: handle error"
	}
}

// IOError wraps any other I/O failure that still gets a 500 response.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }
