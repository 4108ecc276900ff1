// Command fire-server serves a small demo site: query and form greetings,
// path parameters, a shared counter, server-sent events and metrics.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/searchktools/fire-server/app"
	"github.com/searchktools/fire-server/config"
	"github.com/searchktools/fire-server/core"
	"github.com/searchktools/fire-server/core/sse"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "fire-server",
		Usage:   "HTTP/1.1 server with middleware, routing and SSE",
		Version: fmt.Sprintf("%s (commit: %s, engine: %s)", version, commit, core.Version),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML configuration file",
				EnvVars: []string{"FIRE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "IPv4 address or localhost to bind",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "TCP port to bind",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "connection workers (0 = one per CPU)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "static-dir",
				Usage: "serve files from this directory under /static",
			},
			&cli.BoolFlag{
				Name:  "rate-limit",
				Usage: "limit each client IP to 10 requests a minute",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts []app.Option
	if path != "" {
		opts = append(opts, app.WithConfigFile(path))
	}
	a, err := app.New[*State](cfg, opts...)
	if err != nil {
		return err
	}

	broker := sse.NewBroker(sse.WithLogger(a.Logger()))
	a.OnShutdown(func(context.Context) error {
		broker.Close()
		return nil
	})

	registerRoutes(a.Server(), broker)
	return a.Run(c.Context)
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("workers") {
		cfg.Server.Workers = c.Int("workers")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("static-dir") {
		cfg.Static.Dir = c.String("static-dir")
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit.Enabled = c.Bool("rate-limit")
	}
}
