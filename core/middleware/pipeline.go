package middleware

import (
	"errors"
	"fmt"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/logger"
)

// ErrNoResponse means no phase produced a response for a parsed request.
var ErrNoResponse = errors.New("middleware: no response produced")

// Dispatch resolves and runs the route for req.
type Dispatch func(req *http.Request) (*http.Response, error)

// Pipeline holds the attached middleware. Hooks run most recently attached
// first in every phase.
type Pipeline struct {
	middleware []Middleware
	log        logger.Logger
}

// NewPipeline creates an empty pipeline
func NewPipeline(log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		middleware: make([]Middleware, 0, 8),
		log:        log,
	}
}

// Use attaches a middleware
func (p *Pipeline) Use(mw Middleware) *Pipeline {
	p.middleware = append(p.middleware, mw)
	return p
}

// Len returns the number of attached middleware
func (p *Pipeline) Len() int {
	return len(p.middleware)
}

// Run executes the pre, dispatch and post phases.
//
// It returns the request as last seen (nil if it never parsed) and either
// the response to write or the error to turn into one. A panic in any hook
// or in dispatch becomes a *http.HandleError of kind Panic and ends the
// run.
func (p *Pipeline) Run(req *http.Request, reqErr error, dispatch Dispatch) (*http.Request, *http.Response, error) {
	var res *http.Response

	for i := len(p.middleware) - 1; i >= 0; i-- {
		mw := p.middleware[i]
		var out Result
		if msg, panicked := capture(func() { out = mw.Pre(req, reqErr) }); panicked {
			return req, nil, http.NewPanic(req, reqErr, msg)
		}

		switch out.Action {
		case ActionReplace:
			if out.Request != nil {
				req, reqErr = out.Request, nil
			}
		case ActionSend:
			res = out.Response
		}
		if res != nil {
			break
		}
	}

	var err error
	switch {
	case res != nil:
	case reqErr != nil:
		err = reqErr
	default:
		if msg, panicked := capture(func() { res, err = dispatch(req) }); panicked {
			res, err = nil, http.NewPanic(req, nil, msg)
		} else if res == nil && err == nil {
			err = ErrNoResponse
		}
	}

	for i := len(p.middleware) - 1; i >= 0; i-- {
		mw := p.middleware[i]
		var out Result
		if msg, panicked := capture(func() { out = mw.Post(req, res, err) }); panicked {
			return req, nil, http.NewPanic(req, reqErr, msg)
		}

		switch out.Action {
		case ActionAdd:
			if out.Response != nil {
				res, err = out.Response, nil
			}
		case ActionSend:
			if out.Response != nil {
				return req, out.Response, nil
			}
		}
	}

	return req, res, err
}

// End runs every End hook. Panics are logged and dropped.
func (p *Pipeline) End(req *http.Request, res *http.Response) {
	for i := len(p.middleware) - 1; i >= 0; i-- {
		mw := p.middleware[i]
		if msg, panicked := capture(func() { mw.End(req, res) }); panicked {
			p.log.Error("end middleware panicked",
				"middleware", fmt.Sprintf("%T", mw),
				"panic", msg,
			)
		}
	}
}

// capture runs fn and reports the stringified panic value, if any.
func capture(fn func()) (msg string, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			msg, panicked = fmt.Sprint(r), true
		}
	}()
	fn()
	return "", false
}
