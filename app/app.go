// Package app assembles a server from configuration and runs it until
// SIGINT or SIGTERM.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/searchktools/fire-server/config"
	"github.com/searchktools/fire-server/core"
	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/core/middleware"
	"github.com/searchktools/fire-server/core/static"
	"github.com/searchktools/fire-server/logger"
)

// App is a configured server plus the hooks run when it stops.
type App[S any] struct {
	cfg     *config.Config
	cfgPath string
	log     logger.Logger
	server  *core.Server[S]

	metrics *middleware.Metrics
	limiter *middleware.RateLimiter

	mu    sync.Mutex
	hooks []func(context.Context) error
}

// Option configures an App
type Option func(*options)

type options struct {
	configPath string
	logOutput  io.Writer
}

// WithConfigFile watches path and applies log level changes live.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogOutput overrides the configured log sink.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// New builds the server described by cfg with the stock middleware
// attached. Routes are added through Server.
func New[S any](cfg *config.Config, opts ...Option) (*App[S], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App[S]{cfg: cfg, cfgPath: o.configPath}

	out := o.logOutput
	if out == nil {
		w, closer, err := openLogOutput(cfg.Log.Output)
		if err != nil {
			return nil, err
		}
		out = w
		if closer != nil {
			a.OnShutdown(func(context.Context) error { return closer.Close() })
		}
	}
	a.log = logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: out})

	applyRuntime(cfg.Runtime, a.log)

	sc := cfg.Server
	a.server = core.New[S](sc.Host, sc.Port,
		core.WithLogger(a.log),
		core.WithBufferSize(sc.BufferSize),
		core.WithMaxHeaderBytes(sc.MaxHeaderBytes),
		core.WithSocketTimeout(sc.SocketTimeout),
		core.WithWorkers(sc.Workers),
		core.WithQueueSize(sc.QueueSize),
		core.WithMaxConnections(sc.MaxConnections),
		core.WithAcceptRate(sc.AcceptRate, sc.AcceptBurst),
	)
	names := make([]string, 0, len(sc.DefaultHeaders))
	for name := range sc.DefaultHeaders {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		a.server.DefaultHeader(name, sc.DefaultHeaders[name])
	}

	if err := a.attach(); err != nil {
		return nil, err
	}
	return a, nil
}

// attach wires the stock middleware. The last attached runs first, so
// request ids are assigned before anything else looks at the request.
func (a *App[S]) attach() error {
	a.server.Use(middleware.NewDate())

	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		err := errors.Join(
			reg.Register(collectors.NewGoCollector()),
			reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
			reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "fire_connections_active",
				Help: "Connections currently being served.",
			}, func() float64 { return float64(a.server.Stats().Active) })),
			reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "fire_connections_accepted_total",
				Help: "Connections accepted since start.",
			}, func() float64 { return float64(a.server.Stats().Accepted) })),
		)
		if err != nil {
			return fmt.Errorf("app: register metrics: %w", err)
		}
		a.metrics = middleware.NewMetrics(reg)
		a.server.Use(a.metrics)
		a.server.Route(http.GET, a.cfg.Metrics.Path, a.metrics.Handler())
	}

	a.server.Use(middleware.NewAccessLog(a.log))

	if dir := a.cfg.Static.Dir; dir != "" {
		a.server.Use(static.New(dir,
			static.WithPrefix(a.cfg.Static.Prefix),
			static.WithCache(static.NewFileCache(a.cfg.Static.CacheFiles, static.DefaultMaxCached)),
			static.WithLogger(a.log.With("component", "static")),
		))
	}

	if rl := a.cfg.RateLimit; rl.Enabled {
		a.limiter = middleware.NewRateLimiter(middleware.WithLimit(rl.Limit), middleware.WithWindow(rl.Window))
		a.server.Use(a.limiter)
	}

	a.server.Use(middleware.NewRequestID())
	return nil
}

// Server returns the server for route registration.
func (a *App[S]) Server() *core.Server[S] {
	return a.server
}

// Logger returns the application logger.
func (a *App[S]) Logger() logger.Logger {
	return a.log
}

// Metrics returns the metrics middleware, or nil when metrics are disabled.
func (a *App[S]) Metrics() *middleware.Metrics {
	return a.metrics
}

// OnShutdown registers a hook run after the server stops. Hooks run in
// reverse registration order.
func (a *App[S]) OnShutdown(hook func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, hook)
}

// Run binds the configured address and serves until ctx is cancelled or a
// termination signal arrives.
func (a *App[S]) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.watchConfig(ctx)
	a.log.Info("starting fire-server", "version", core.Version, "addr", a.server.Addr())

	err := a.server.ListenAndServe(ctx)
	return errors.Join(err, a.shutdown())
}

// Serve is Run on an existing listener.
func (a *App[S]) Serve(ctx context.Context, ln net.Listener) error {
	a.watchConfig(ctx)
	err := a.server.Serve(ctx, ln)
	return errors.Join(err, a.shutdown())
}

func (a *App[S]) watchConfig(ctx context.Context) {
	if a.cfgPath == "" {
		return
	}
	w, err := config.NewWatcher(a.cfgPath, a.log)
	if err != nil {
		a.log.Warn("config watcher disabled", "path", a.cfgPath, "err", err)
		return
	}
	w.OnChange(a.apply)
	go w.Run(ctx)
	a.OnShutdown(func(context.Context) error { return w.Close() })
}

// apply takes the settings that can change without a restart.
func (a *App[S]) apply(cfg *config.Config) {
	if cfg.Log.Level != a.log.Level() {
		a.log.Info("log level changed", "from", a.log.Level(), "to", cfg.Log.Level)
		a.log.SetLevel(cfg.Log.Level)
	}
}

func (a *App[S]) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.mu.Lock()
	hooks := slices.Clone(a.hooks)
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func openLogOutput(name string) (io.Writer, io.Closer, error) {
	switch name {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("app: open log output: %w", err)
	}
	return f, f, nil
}
