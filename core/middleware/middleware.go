// Package middleware runs the pre, dispatch, post and end phases of a
// request and ships the stock extensions (rate limiting, request ids,
// access logging, Date header, metrics, CORS).
package middleware

import "github.com/searchktools/fire-server/core/http"

// Action is what a hook asks the pipeline to do next.
type Action uint8

const (
	// ActionContinue leaves the in-flight values untouched.
	ActionContinue Action = iota
	// ActionReplace swaps the request seen by later middleware and the route.
	// Pre phase only.
	ActionReplace
	// ActionAdd swaps the response seen by later middleware. Post phase only.
	ActionAdd
	// ActionSend stops the phase and sends Response as-is.
	ActionSend
)

// Result is returned by Pre and Post hooks.
type Result struct {
	Action   Action
	Request  *http.Request
	Response *http.Response
}

// Continue leaves the request or response unchanged.
func Continue() Result {
	return Result{Action: ActionContinue}
}

// Replace hands req to the remaining middleware and the route.
func Replace(req *http.Request) Result {
	return Result{Action: ActionReplace, Request: req}
}

// Add hands res to the remaining post middleware.
func Add(res *http.Response) Result {
	return Result{Action: ActionAdd, Response: res}
}

// Send short-circuits the current phase with res.
func Send(res *http.Response) Result {
	return Result{Action: ActionSend, Response: res}
}

// Middleware hooks into every request. Implementations are called from
// many connections at once and must synchronize their own state.
//
// req is nil when the request failed to parse; err then holds the parse
// error. In Post, err is non-nil exactly when res is nil.
type Middleware interface {
	Pre(req *http.Request, err error) Result
	Post(req *http.Request, res *http.Response, err error) Result
	// End runs after the response was written. It is for side effects only.
	End(req *http.Request, res *http.Response)
}

// Base implements every hook as a no-op. Embed it and override what you need.
type Base struct{}

func (Base) Pre(*http.Request, error) Result { return Continue() }

func (Base) Post(*http.Request, *http.Response, error) Result { return Continue() }

func (Base) End(*http.Request, *http.Response) {}
