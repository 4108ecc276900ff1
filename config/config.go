// Package config loads server configuration from defaults, a YAML file and
// FIRE_ environment variables, in increasing priority. Command-line flags
// are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/searchktools/fire-server/core"
	"github.com/searchktools/fire-server/logger"
)

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Static    StaticConfig    `koanf:"static"`
	Runtime   RuntimeConfig   `koanf:"runtime"`
}

// ServerConfig is the listener and connection handling setup.
type ServerConfig struct {
	Host            string            `koanf:"host"`
	Port            int               `koanf:"port"`
	BufferSize      int               `koanf:"buffer_size"`
	MaxHeaderBytes  int               `koanf:"max_header_bytes"`
	SocketTimeout   time.Duration     `koanf:"socket_timeout"`
	Workers         int               `koanf:"workers"`
	QueueSize       int               `koanf:"queue_size"`
	MaxConnections  int               `koanf:"max_connections"`
	AcceptRate      float64           `koanf:"accept_rate"`
	AcceptBurst     int               `koanf:"accept_burst"`
	ShutdownTimeout time.Duration     `koanf:"shutdown_timeout"`
	DefaultHeaders  map[string]string `koanf:"default_headers"`
}

// LogConfig selects the log level, format and sink. Output is "stderr",
// "stdout" or a file path.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Output string `koanf:"output"`
}

type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Limit   uint64        `koanf:"limit"`
	Window  time.Duration `koanf:"window"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// StaticConfig serves Dir under Prefix when Dir is set.
type StaticConfig struct {
	Dir        string `koanf:"dir"`
	Prefix     string `koanf:"prefix"`
	CacheFiles int    `koanf:"cache_files"`
}

// RuntimeConfig tunes the Go garbage collector. Zero values keep the
// runtime defaults.
type RuntimeConfig struct {
	GCPercent   int   `koanf:"gc_percent"`
	MemoryLimit int64 `koanf:"memory_limit"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			BufferSize:      1024,
			MaxHeaderBytes:  64 * 1024,
			QueueSize:       128,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		RateLimit: RateLimitConfig{
			Limit:  10,
			Window: time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Static: StaticConfig{
			Prefix:     "/static",
			CacheFiles: 256,
		},
	}
}

// Validation errors
var (
	ErrInvalidPort      = errors.New("config: invalid port")
	ErrInvalidLogLevel  = errors.New("config: invalid log level")
	ErrInvalidLogFormat = errors.New("config: invalid log format")
	ErrInvalidRateLimit = errors.New("config: invalid rate limit")
	ErrInvalidPath      = errors.New("config: path must start with /")
)

// Validate rejects configuration the server could not start with. Host and
// timeout failures wrap the server's own startup errors.
func (c *Config) Validate() error {
	host := c.Server.Host
	if host == "localhost" {
		host = "127.0.0.1"
	}
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidIP, c.Server.Host)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	if c.Server.SocketTimeout < 0 {
		return fmt.Errorf("%w: %s", core.ErrInvalidSocketTimeout, c.Server.SocketTimeout)
	}

	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Limit == 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("%w: %d per %s", ErrInvalidRateLimit, c.RateLimit.Limit, c.RateLimit.Window)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics %q", ErrInvalidPath, c.Metrics.Path)
	}
	if c.Static.Dir != "" && !strings.HasPrefix(c.Static.Prefix, "/") {
		return fmt.Errorf("%w: static %q", ErrInvalidPath, c.Static.Prefix)
	}
	return nil
}
