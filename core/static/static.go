// Package static serves files from a directory as a middleware.
package static

import (
	nethttp "net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/core/middleware"
	"github.com/searchktools/fire-server/logger"
)

// Defaults for the file cache
const (
	DefaultCacheFiles = 256
	DefaultMaxCached  = 256 * 1024
	IndexFile         = "index.html"
)

// Static answers GET and HEAD requests under Prefix with files from Root.
// Other requests continue to the routes, as do misses unless a NotFound
// handler is set.
type Static struct {
	middleware.Base

	root     string
	prefix   string
	cache    *FileCache
	notFound func(req *http.Request) *http.Response
	log      logger.Logger
}

// Option configures Static
type Option func(*Static)

// WithPrefix serves only paths under prefix, which is stripped before the
// file lookup.
func WithPrefix(prefix string) Option {
	return func(s *Static) {
		s.prefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithCache replaces the file cache.
func WithCache(c *FileCache) Option {
	return func(s *Static) { s.cache = c }
}

// WithNotFound answers misses under the prefix instead of falling through
// to the routes.
func WithNotFound(fn func(req *http.Request) *http.Response) Option {
	return func(s *Static) { s.notFound = fn }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Static) { s.log = l }
}

// New serves files from root.
func New(root string, opts ...Option) *Static {
	s := &Static{
		root:   filepath.Clean(root),
		prefix: "/",
		cache:  NewFileCache(DefaultCacheFiles, DefaultMaxCached),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the file cache.
func (s *Static) Cache() *FileCache {
	return s.cache
}

func (s *Static) Pre(req *http.Request, err error) middleware.Result {
	if err != nil || (req.Method != http.GET && req.Method != http.HEAD) {
		return middleware.Continue()
	}
	rel, ok := s.relative(req.Path)
	if !ok {
		return middleware.Continue()
	}

	name := filepath.Join(s.root, filepath.FromSlash(rel))
	if rel == "/" || strings.HasSuffix(req.Path, "/") {
		name = filepath.Join(name, IndexFile)
	}

	f, ferr := s.cache.Get(name)
	if ferr != nil && isNotExist(ferr) {
		f, ferr = s.cache.Get(filepath.Join(name, IndexFile))
	}
	if ferr != nil {
		if !isNotExist(ferr) {
			s.log.Error("static file read failed", "path", name, "err", ferr)
			return middleware.Send(http.Textf(500, "%s", ferr.Error()))
		}
		if s.notFound != nil {
			return middleware.Send(s.notFound(req))
		}
		return middleware.Continue()
	}

	res, rerr := s.respond(req, f)
	if rerr != nil {
		s.log.Error("static file open failed", "path", name, "err", rerr)
		return middleware.Send(http.Textf(500, "%s", rerr.Error()))
	}
	return middleware.Send(res)
}

// relative strips the prefix from p and cleans the remainder so it cannot
// leave the root.
func (s *Static) relative(p string) (string, bool) {
	if s.prefix != "/" {
		if p != s.prefix && !strings.HasPrefix(p, s.prefix+"/") {
			return "", false
		}
		p = strings.TrimPrefix(p, s.prefix)
	}
	return path.Clean("/" + p), true
}

func (s *Static) respond(req *http.Request, f *File) (*http.Response, error) {
	res := http.NewResponse().
		Content(f.ContentType).
		Header("Last-Modified", f.ModTime.UTC().Format(nethttp.TimeFormat))

	if since := req.Header("If-Modified-Since"); since != "" {
		if t, err := nethttp.ParseTime(since); err == nil && !f.ModTime.Truncate(time.Second).After(t) {
			return res.Status(304).Bytes(nil), nil
		}
	}

	if req.Method == http.HEAD {
		return res.Bytes(nil), nil
	}
	if f.Data != nil {
		return res.Bytes(f.Data), nil
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return res.Stream(file), nil
}
