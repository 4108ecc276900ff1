package static

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/core/middleware"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStatic_Serve(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<h1>home</h1>")
	writeFile(t, dir, "css/site.css", "body{}")
	writeFile(t, dir, "docs/index.html", "docs")

	s := New(dir, WithPrefix("/assets"))

	tests := []struct {
		path   string
		action middleware.Action
		body   string
		ct     string
	}{
		{"/assets/", middleware.ActionSend, "<h1>home</h1>", "text/html; charset=utf-8"},
		{"/assets/css/site.css", middleware.ActionSend, "body{}", "text/css; charset=utf-8"},
		{"/assets/docs", middleware.ActionSend, "docs", "text/html; charset=utf-8"},
		{"/assets/../../etc/passwd", middleware.ActionContinue, "", ""},
		{"/assets/missing.js", middleware.ActionContinue, "", ""},
		{"/api/users", middleware.ActionContinue, "", ""},
		{"/assetsx/site.css", middleware.ActionContinue, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := s.Pre(http.NewRequest(http.GET, tt.path), nil)
			if r.Action != tt.action {
				t.Fatalf("Expected action %d, got %d", tt.action, r.Action)
			}
			if tt.action != middleware.ActionSend {
				return
			}
			if string(r.Response.Body) != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, r.Response.Body)
			}
			if ct := r.Response.Headers.Get(http.HeaderContentType); ct != tt.ct {
				t.Errorf("Expected Content-Type %q, got %q", tt.ct, ct)
			}
		})
	}
}

func TestStatic_IgnoresOtherMethods(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")
	s := New(dir)

	if r := s.Pre(http.NewRequest(http.POST, "/a.txt"), nil); r.Action != middleware.ActionContinue {
		t.Errorf("Expected POST to continue, got action %d", r.Action)
	}
	if r := s.Pre(nil, http.ErrNoMethod); r.Action != middleware.ActionContinue {
		t.Errorf("Expected parse errors to continue, got action %d", r.Action)
	}
}

func TestStatic_NotFound(t *testing.T) {
	s := New(t.TempDir(), WithNotFound(func(req *http.Request) *http.Response {
		return http.Textf(404, "no file at %s", req.Path)
	}))

	r := s.Pre(http.NewRequest(http.GET, "/nope.txt"), nil)
	if r.Action != middleware.ActionSend || r.Response.Code != 404 {
		t.Fatalf("Expected a 404 send, got %+v", r)
	}
	if string(r.Response.Body) != "no file at /nope.txt" {
		t.Errorf("Unexpected body %q", r.Response.Body)
	}
}

func TestStatic_NotModified(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")
	s := New(dir)

	first := s.Pre(http.NewRequest(http.GET, "/a.txt"), nil).Response
	lastModified := first.Headers.Get("Last-Modified")
	if lastModified == "" {
		t.Fatal("Expected Last-Modified header")
	}

	req := http.NewRequest(http.GET, "/a.txt")
	req.Headers.Add("If-Modified-Since", lastModified)
	if res := s.Pre(req, nil).Response; res.Code != 304 || len(res.Body) != 0 {
		t.Errorf("Expected empty 304, got %d %q", res.Code, res.Body)
	}
}

func TestStatic_LargeFileStreamed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.bin", "0123456789")
	s := New(dir, WithCache(NewFileCache(4, 4)))

	res := s.Pre(http.NewRequest(http.GET, "/big.bin"), nil).Response
	if !res.Streamed() {
		t.Fatal("Expected file above the cache limit to be streamed")
	}

	out, err := res.Serialize(nil, false)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	// Swap the status line for a request line so the parser decodes the
	// chunked body.
	_, rest, _ := strings.Cut(string(out), "\r\n")
	parsed, err := http.ReadRequest(strings.NewReader("GET / HTTP/1.1\r\n" + rest))
	if err != nil {
		t.Fatalf("Reading chunked body failed: %v", err)
	}
	if string(parsed.Body) != "0123456789" {
		t.Errorf("Expected streamed body, got %q", parsed.Body)
	}
	if s.Cache().Len() != 0 {
		t.Errorf("Expected large file to stay out of the cache, got %d entries", s.Cache().Len())
	}
}

func TestFileCache(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, dir, name, name)
	}
	fc := NewFileCache(2, 1024)

	for _, name := range []string{"a", "b", "a", "c"} {
		if _, err := fc.Get(filepath.Join(dir, name)); err != nil {
			t.Fatalf("Get %s failed: %v", name, err)
		}
	}

	if fc.Len() != 2 {
		t.Errorf("Expected 2 cached files, got %d", fc.Len())
	}
	hits, misses := fc.Stats()
	if hits != 1 || misses != 3 {
		t.Errorf("Expected 1 hit and 3 misses, got %d and %d", hits, misses)
	}

	// b was least recently used and got evicted.
	fc.Get(filepath.Join(dir, "b"))
	if _, misses := fc.Stats(); misses != 4 {
		t.Errorf("Expected b to be evicted, got %d misses", misses)
	}

	if _, err := fc.Get(dir); !isNotExist(err) {
		t.Errorf("Expected directories to be reported missing, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.html":  "text/html; charset=utf-8",
		"a.json":  "application/json",
		"a.png":   "image/png",
		"a.blob0": "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q): expected %q, got %q", name, want, got)
		}
	}
}
