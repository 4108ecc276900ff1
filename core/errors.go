package core

import (
	"errors"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/core/middleware"
)

// StartupError prevents the server from starting. It is never sent to a
// client.
type StartupError struct {
	Reason string
}

func (e *StartupError) Error() string {
	return "core: startup: " + e.Reason
}

// Startup errors
var (
	ErrInvalidIP            = &StartupError{Reason: "invalid ip"}
	ErrNoState              = &StartupError{Reason: "stateful route registered without state"}
	ErrInvalidSocketTimeout = &StartupError{Reason: "invalid socket timeout"}
)

// ErrNoResponse means no phase produced a response.
var ErrNoResponse = middleware.ErrNoResponse

// ErrorHandler builds the response for a panicking handler or middleware.
// req is nil when the request never parsed; reqErr then holds why.
type ErrorHandler func(req *http.Request, reqErr error, message string) *http.Response

// DefaultErrorHandler answers 500 with the panic message.
func DefaultErrorHandler(_ *http.Request, _ error, message string) *http.Response {
	return http.Textf(500, "Internal Server Error :/\nError: %s", message)
}

// ErrorResponse maps an error left over after the middleware phases to the
// response sent to the client. Panics are delegated to onPanic; when it
// returns nil or panics itself, DefaultErrorHandler answers instead.
func ErrorResponse(err error, onPanic ErrorHandler) *http.Response {
	if onPanic == nil {
		onPanic = DefaultErrorHandler
	}

	var (
		parseErr  *http.ParseError
		handleErr *http.HandleError
		ioErr     *http.IOError
	)
	switch {
	case errors.As(err, &parseErr):
		return http.Textf(400, "%s", parseErr.Reason)
	case errors.As(err, &handleErr):
		if handleErr.Kind == http.NotFound {
			return http.Textf(404, "Cannot %s %s", handleErr.Method, handleErr.Path)
		}
		return panicResponse(onPanic, handleErr)
	case errors.As(err, &ioErr):
		return http.Textf(500, "%s", ioErr.Error())
	case errors.Is(err, ErrNoResponse):
		return http.Textf(500, "No response")
	default:
		return http.Textf(500, "%s", err.Error())
	}
}

func panicResponse(onPanic ErrorHandler, e *http.HandleError) (res *http.Response) {
	defer func() {
		if recover() != nil || res == nil {
			res = DefaultErrorHandler(e.Request, e.RequestErr, e.Message)
		}
	}()
	return onPanic(e.Request, e.RequestErr, e.Message)
}
