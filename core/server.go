package core

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/core/middleware"
	"github.com/searchktools/fire-server/core/router"
	"github.com/searchktools/fire-server/logger"
)

// Version is reported in the default Server header.
const Version = "0.4.0"

// Handler serves a request.
type Handler func(req *http.Request) *http.Response

// StatefulHandler serves a request with access to the shared state.
type StatefulHandler[S any] func(state S, req *http.Request) *http.Response

type route[S any] struct {
	stateless Handler
	stateful  StatefulHandler[S]
}

// Server routes requests to handlers through the attached middleware. Routes,
// middleware, default headers and state must be set before serving; they
// are read without locks afterwards.
type Server[S any] struct {
	settings

	host string
	port int

	routes         *router.Table[route[S]]
	pipeline       *middleware.Pipeline
	defaultHeaders http.Headers
	errorHandler   ErrorHandler

	state    S
	hasState bool
	stateful bool

	conns   sync.Map // net.Conn -> struct{}
	closing atomic.Bool
	stats struct {
		accepted atomic.Uint64
		active   atomic.Int64
		requests atomic.Uint64
	}
}

// New creates a server for host:port. host is an IPv4 literal or
// "localhost".
func New[S any](host string, port int, opts ...Option) *Server[S] {
	s := &Server[S]{
		settings:     defaultSettings(),
		host:         host,
		port:         port,
		routes:       router.NewTable[route[S]](),
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(&s.settings)
	}
	s.pipeline = middleware.NewPipeline(s.log)
	s.defaultHeaders.Add(http.HeaderServer, "fire-server/"+Version)
	return s
}

// Route registers a handler for method and pattern. ANY matches every
// method. Later registrations take priority over earlier ones.
func (s *Server[S]) Route(method http.Method, pattern string, h Handler) *Server[S] {
	s.routes.Register(method, pattern, route[S]{stateless: h})
	s.log.Debug("route added", "method", method.String(), "pattern", pattern)
	return s
}

// StatefulRoute registers a handler that receives the server state.
func (s *Server[S]) StatefulRoute(method http.Method, pattern string, h StatefulHandler[S]) *Server[S] {
	s.routes.Register(method, pattern, route[S]{stateful: h})
	s.stateful = true
	s.log.Debug("stateful route added", "method", method.String(), "pattern", pattern)
	return s
}

// Use attaches a middleware. The last attached runs first in every phase.
func (s *Server[S]) Use(mw middleware.Middleware) *Server[S] {
	s.pipeline.Use(mw)
	s.log.Debug("middleware attached", "middleware", fmt.Sprintf("%T", mw))
	return s
}

// DefaultHeader adds a header sent with every response whose handler did
// not set the same name.
func (s *Server[S]) DefaultHeader(name, value string) *Server[S] {
	s.defaultHeaders.Add(name, value)
	return s
}

// RemoveDefaultHeader drops a default header, including the built-in
// Server header.
func (s *Server[S]) RemoveDefaultHeader(name string) *Server[S] {
	s.defaultHeaders.Del(name)
	return s
}

// DefaultHeaders returns the headers added to every response.
func (s *Server[S]) DefaultHeaders() http.Headers {
	return s.defaultHeaders
}

// SetState sets the value passed to stateful routes.
func (s *Server[S]) SetState(state S) *Server[S] {
	s.state = state
	s.hasState = true
	return s
}

// State returns the shared state and whether one was set.
func (s *Server[S]) State() (S, bool) {
	return s.state, s.hasState
}

// SetErrorHandler replaces the response built for panics.
func (s *Server[S]) SetErrorHandler(h ErrorHandler) *Server[S] {
	s.errorHandler = h
	return s
}

// ErrorResponse maps err with the server's panic handler.
func (s *Server[S]) ErrorResponse(err error) *http.Response {
	return ErrorResponse(err, s.errorHandler)
}

// Logger returns the server logger.
func (s *Server[S]) Logger() logger.Logger {
	return s.log
}

// Addr returns the listen address.
func (s *Server[S]) Addr() string {
	host := s.host
	if host == "localhost" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.port))
}

// Validate reports the startup error that would stop the server, if any.
func (s *Server[S]) Validate() error {
	host := s.host
	if host == "localhost" {
		host = "127.0.0.1"
	}
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: %q", ErrInvalidIP, s.host)
	}
	if s.port < 0 || s.port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidIP, s.port)
	}
	return s.validateServing()
}

// validateServing checks what matters once a listener exists.
func (s *Server[S]) validateServing() error {
	if s.stateful && !s.hasState {
		return ErrNoState
	}
	if s.socketTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSocketTimeout, s.socketTimeout)
	}
	return nil
}

// Stats returns server counters
func (s *Server[S]) Stats() Stats {
	return Stats{
		Accepted:    s.stats.accepted.Load(),
		Active:      s.stats.active.Load(),
		Requests:    s.stats.requests.Load(),
		Routes:      s.routes.Len(),
		Middlewares: s.pipeline.Len(),
	}
}

// Stats contains server counters
type Stats struct {
	Accepted    uint64 `json:"accepted"`
	Active      int64  `json:"active"`
	Requests    uint64 `json:"requests"`
	Routes      int    `json:"routes"`
	Middlewares int    `json:"middlewares"`
}

// settings holds the tuning shared by every Server regardless of state type.
type settings struct {
	log            logger.Logger
	bufferSize     int
	maxHeaderBytes int
	socketTimeout  time.Duration
	workers        int
	queueSize      int
	maxConns       int
	acceptRate     rate.Limit
	acceptBurst    int
}

func defaultSettings() settings {
	return settings{
		log:            logger.Nop(),
		bufferSize:     http.DefaultBufferSize,
		maxHeaderBytes: http.DefaultMaxHeaderBytes,
		queueSize:      128,
	}
}

// Option configures a Server
type Option func(*settings)

// WithLogger sets the logger used by the server and its pipeline.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBufferSize sets the initial request head buffer.
func WithBufferSize(n int) Option {
	return func(s *settings) { s.bufferSize = n }
}

// WithMaxHeaderBytes caps the request head size.
func WithMaxHeaderBytes(n int) Option {
	return func(s *settings) { s.maxHeaderBytes = n }
}

// WithSocketTimeout bounds each request's reads and writes. Zero disables it.
func WithSocketTimeout(d time.Duration) Option {
	return func(s *settings) { s.socketTimeout = d }
}

// WithWorkers sets the number of connection workers. Zero means one per CPU.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithQueueSize sets how many accepted connections may wait for a worker.
func WithQueueSize(n int) Option {
	return func(s *settings) { s.queueSize = n }
}

// WithMaxConnections caps concurrently open connections. Zero is unlimited.
func WithMaxConnections(n int) Option {
	return func(s *settings) { s.maxConns = n }
}

// WithAcceptRate throttles accepts to perSecond with the given burst. Zero
// disables throttling.
func WithAcceptRate(perSecond float64, burst int) Option {
	return func(s *settings) {
		s.acceptRate = rate.Limit(perSecond)
		s.acceptBurst = burst
	}
}
