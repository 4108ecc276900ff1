package http

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadRequest_Basic(t *testing.T) {
	raw := "GET /greet?name=John%20Doe&x HTTP/1.1\r\nHost: localhost:8080\r\nUser-Agent: test\r\n\r\n"

	req, err := ReadRequest(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}

	if req.Method != GET {
		t.Errorf("Expected method GET, got %s", req.Method)
	}
	if req.Path != "/greet" {
		t.Errorf("Expected path /greet, got %s", req.Path)
	}
	if req.Version != "HTTP/1.1" {
		t.Errorf("Expected version HTTP/1.1, got %s", req.Version)
	}
	if got := req.Query.Value("name"); got != "John Doe" {
		t.Errorf("Expected name=John Doe, got %q", got)
	}
	if !req.Query.Has("x") {
		t.Error("Expected bare key x in query")
	}
	// The value keeps everything after the first colon.
	if got := req.Header("host"); got != "localhost:8080" {
		t.Errorf("Expected Host localhost:8080, got %q", got)
	}
	if len(req.Body) != 0 {
		t.Errorf("Expected empty body, got %q", req.Body)
	}
}

func TestReadRequest_ContentLength(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"

	req, err := ReadRequest(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if string(req.Body) != "hello" {
		t.Errorf("Expected body hello, got %q", req.Body)
	}
}

func TestReadRequest_Chunked(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWiki\r\n5;ext=1\r\npedia\r\n0\r\nX-Trailer: 1\r\n\r\n"

	req, err := ReadRequest(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if string(req.Body) != "Wikipedia" {
		t.Errorf("Expected body Wikipedia, got %q", req.Body)
	}
}

func TestReadRequest_ChunkedSingle(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWiki\r\n0\r\n\r\n"

	req, err := ReadRequest(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if string(req.Body) != "Wiki" {
		t.Errorf("Expected body Wiki, got %q", req.Body)
	}
}

func TestReadRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no separator", "GET / HTTP/1.1\r\nHost: x\r\n", ErrNoSeparator},
		{"no request line", "\r\n\r\n", ErrNoRequestLine},
		{"blank request line", "   \r\n\r\n", ErrNoMethod},
		{"bad method", "G(T / HTTP/1.1\r\n\r\n", ErrInvalidMethod},
		{"no path", "GET\r\n\r\n", ErrNoPath},
		{"no version", "GET /\r\n\r\n", ErrNoVersion},
		{"bad version", "GET / FTP/1.0\r\n\r\n", ErrNoVersion},
		{"header without colon", "GET / HTTP/1.1\r\nBroken\r\n\r\n", ErrInvalidHeader},
		{"empty header name", "GET / HTTP/1.1\r\n: value\r\n\r\n", ErrInvalidHeader},
		{"bad query", "GET /?a=%zz HTTP/1.1\r\n\r\n", ErrInvalidQuery},
		{"bad content length", "POST / HTTP/1.1\r\nContent-Length: abc\r\n\r\n", ErrInvalidHeader},
		{"bad chunk size", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n", ErrInvalidChunk},
		{"chunk missing crlf", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWikiXX0\r\n\r\n", ErrInvalidChunk},
		{"truncated body", "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhello", ErrUnexpectedEOF},
		{"truncated chunk", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWi", ErrUnexpectedEOF},
		{"closed", "", ErrConnClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRequest(strings.NewReader(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadRequest_HeadTooLarge(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 2048) + "\r\n\r\n"

	_, err := NewParser(strings.NewReader(raw), nil, 64, 1024).Next()
	if !errors.Is(err, ErrNoSeparator) {
		t.Errorf("Expected ErrNoSeparator, got %v", err)
	}
}

// TestParser_Pipelined reads back-to-back requests from one stream.
func TestParser_Pipelined(t *testing.T) {
	raw := "POST /a HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc" +
		"GET /b HTTP/1.1\r\n\r\n"

	p := NewParser(strings.NewReader(raw), nil, 0, 0)

	first, err := p.Next()
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if first.Path != "/a" || string(first.Body) != "abc" {
		t.Errorf("Unexpected first request: %s %q", first.Path, first.Body)
	}

	second, err := p.Next()
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.Path != "/b" {
		t.Errorf("Expected /b, got %s", second.Path)
	}

	if _, err := p.Next(); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Expected ErrConnClosed after last request, got %v", err)
	}
}

// TestParser_LeadingBlankLines ignores a stray CRLF left after a body.
func TestParser_LeadingBlankLines(t *testing.T) {
	raw := "POST /one HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi\r\n" +
		"\r\nGET /two HTTP/1.1\r\n\r\n"

	p := NewParser(strings.NewReader(raw), nil, 0, 0)

	first, err := p.Next()
	if err != nil || string(first.Body) != "hi" {
		t.Fatalf("first request: %v %q", err, first.Body)
	}
	second, err := p.Next()
	if err != nil {
		t.Fatalf("Expected blank lines to be skipped, got %v", err)
	}
	if second.Path != "/two" {
		t.Errorf("Expected /two, got %s", second.Path)
	}
	if _, err := p.Next(); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Expected ErrConnClosed, got %v", err)
	}
}

func TestReadRequest_OnlyBlankLines(t *testing.T) {
	_, err := NewParser(strings.NewReader(strings.Repeat("\r\n", 100)), nil, 0, 64).Next()
	if !errors.Is(err, ErrNoRequestLine) {
		t.Errorf("Expected ErrNoRequestLine, got %v", err)
	}
}

func TestReadRequest_StreamError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ReadRequest(io.MultiReader(strings.NewReader("GET / HT"), &failingReader{err: boom}))

	var se *StreamError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StreamError, got %T %v", err, err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped boom, got %v", err)
	}
}

func TestRequest_KeepAlive(t *testing.T) {
	tests := []struct {
		version    string
		connection string
		want       bool
	}{
		{"HTTP/1.1", "", true},
		{"HTTP/1.1", "close", false},
		{"HTTP/1.1", "Keep-Alive, Close", false},
		{"HTTP/1.0", "", false},
		{"HTTP/1.0", "keep-alive", true},
	}

	for _, tt := range tests {
		req := &Request{Version: tt.version}
		if tt.connection != "" {
			req.Headers.Add(HeaderConnection, tt.connection)
		}
		if got := req.KeepAlive(); got != tt.want {
			t.Errorf("%s Connection=%q: expected %v, got %v", tt.version, tt.connection, tt.want, got)
		}
	}
}

func TestRequest_SetParamsOnce(t *testing.T) {
	req := &Request{}
	if req.Params() != nil {
		t.Error("Expected nil params before dispatch")
	}

	req.SetParams(map[string]string{"name": "John"})
	req.SetParams(map[string]string{"name": "Jane"})

	if v, _ := req.Param("name"); v != "John" {
		t.Errorf("Expected first binding to stick, got %q", v)
	}
	if _, ok := req.Param("missing"); ok {
		t.Error("Expected missing param to be absent")
	}
}

func TestRequest_Form(t *testing.T) {
	req := &Request{Body: []byte("name=Ada+Lovelace&lang=en")}

	form, err := req.Form()
	if err != nil {
		t.Fatalf("Form failed: %v", err)
	}
	if form.Value("name") != "Ada Lovelace" || form.Value("lang") != "en" {
		t.Errorf("Unexpected form: %v", form)
	}
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }
