package middleware

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/searchktools/fire-server/core/http"
)

// Rate limiter defaults
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second

	rateShardCount = 16
)

// OverLimitFunc builds the response for a client over its limit. Returning
// nil lets the request through.
type OverLimitFunc func(req *http.Request) *http.Response

// RateLimiter caps requests per client IP in a fixed window. Requests are
// counted once their response is written and checked before dispatch, so a
// limit of N serves N requests per window and rejects the rest.
type RateLimiter struct {
	Base

	limit     uint64
	window    time.Duration
	overLimit OverLimitFunc
	now       func() time.Time

	lastReset atomic.Int64 // unix nanos
	resetMu   sync.Mutex
	shards    [rateShardCount]rateShard
}

type rateShard struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

// RateLimitOption configures a RateLimiter
type RateLimitOption func(*RateLimiter)

// WithLimit sets the number of requests allowed per window.
func WithLimit(n uint64) RateLimitOption {
	return func(rl *RateLimiter) { rl.limit = n }
}

// WithWindow sets the window length.
func WithWindow(d time.Duration) RateLimitOption {
	return func(rl *RateLimiter) { rl.window = d }
}

// WithOverLimit replaces the default 429 response.
func WithOverLimit(fn OverLimitFunc) RateLimitOption {
	return func(rl *RateLimiter) { rl.overLimit = fn }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) RateLimitOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter creates a rate limiter allowing DefaultRateLimit requests
// per DefaultRateWindow unless configured otherwise.
func NewRateLimiter(opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		limit:     DefaultRateLimit,
		window:    DefaultRateWindow,
		overLimit: tooManyRequests,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	for i := range rl.shards {
		rl.shards[i].counts = make(map[string]uint64)
	}
	rl.lastReset.Store(rl.now().UnixNano())
	return rl
}

func tooManyRequests(*http.Request) *http.Response {
	return http.Textf(429, "Too Many Requests")
}

func (rl *RateLimiter) Pre(req *http.Request, err error) Result {
	if err != nil || req == nil {
		return Continue()
	}

	rl.checkReset()
	if rl.Count(clientIP(req.Address)) < rl.limit {
		return Continue()
	}
	if res := rl.overLimit(req); res != nil {
		return Send(res)
	}
	return Continue()
}

func (rl *RateLimiter) End(req *http.Request, _ *http.Response) {
	if req == nil {
		return
	}
	rl.checkReset()

	ip := clientIP(req.Address)
	shard := rl.shard(ip)
	shard.mu.Lock()
	shard.counts[ip]++
	shard.mu.Unlock()
}

// Count returns the requests counted for ip in the current window.
func (rl *RateLimiter) Count(ip string) uint64 {
	shard := rl.shard(ip)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.counts[ip]
}

// checkReset clears every counter once the window has elapsed.
func (rl *RateLimiter) checkReset() {
	now := rl.now().UnixNano()
	if now-rl.lastReset.Load() < int64(rl.window) {
		return
	}

	rl.resetMu.Lock()
	defer rl.resetMu.Unlock()
	if now-rl.lastReset.Load() < int64(rl.window) {
		return
	}
	for i := range rl.shards {
		shard := &rl.shards[i]
		shard.mu.Lock()
		clear(shard.counts)
		shard.mu.Unlock()
	}
	rl.lastReset.Store(now)
}

func (rl *RateLimiter) shard(key string) *rateShard {
	return &rl.shards[murmur3.Sum32([]byte(key))%rateShardCount]
}

// clientIP strips the port from a host:port address.
func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
