package http

import (
	"bytes"
	"strings"
	"testing"

	"github.com/searchktools/fire-server/core/codec"
)

func TestResponse_Serialize(t *testing.T) {
	resp := NewResponse().Text("Hello World").Content(ContentTypeText).Header("X-Test", "1")

	out, err := resp.Serialize(nil, false)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"X-Test: 1\r\n" +
		"Content-Length: 11\r\n" +
		"\r\n" +
		"Hello World"
	if string(out) != want {
		t.Errorf("Unexpected wire format:\n%q\nexpected:\n%q", out, want)
	}
}

func TestResponse_DefaultHeaders(t *testing.T) {
	defaults := Headers{
		{Name: HeaderServer, Value: "fire-server"},
		{Name: HeaderContentType, Value: "text/html"},
	}
	resp := NewResponse().Content(ContentTypeJSON).Header("Content-Length", "999")

	out, err := resp.Serialize(defaults, true)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	s := string(out)

	if strings.Count(strings.ToLower(s), "content-type:") != 1 {
		t.Errorf("Expected a single Content-Type, got:\n%s", s)
	}
	if !strings.Contains(s, "Content-Type: application/json\r\n") {
		t.Errorf("Expected route Content-Type to win, got:\n%s", s)
	}
	if !strings.Contains(s, "Server: fire-server\r\n") {
		t.Errorf("Expected default Server header, got:\n%s", s)
	}
	if !strings.Contains(s, "Content-Length: 2\r\n") || strings.Contains(s, "999") {
		t.Errorf("Expected computed Content-Length, got:\n%s", s)
	}
	if !strings.Contains(s, "Connection: close\r\n") {
		t.Errorf("Expected Connection: close, got:\n%s", s)
	}
}

func TestResponse_Reason(t *testing.T) {
	tests := []struct {
		resp *Response
		line string
	}{
		{NewResponse().Status(404), "HTTP/1.1 404 Not Found\r\n"},
		{NewResponse().Status(429), "HTTP/1.1 429 Too Many Requests\r\n"},
		{NewResponse().Status(299), "HTTP/1.1 299 Unknown\r\n"},
		{NewResponse().Status(200).Reason("Fine"), "HTTP/1.1 200 Fine\r\n"},
	}

	for _, tt := range tests {
		out, _ := tt.resp.Serialize(nil, false)
		if !strings.HasPrefix(string(out), tt.line) {
			t.Errorf("Expected status line %q, got %q", tt.line, out)
		}
	}
}

func TestResponse_Stream(t *testing.T) {
	resp := NewResponse().Stream(strings.NewReader("Wikipedia"))
	if !resp.Streamed() {
		t.Fatal("Expected streamed response")
	}

	var buf bytes.Buffer
	if err := resp.Write(&buf, nil, false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	s := buf.String()

	if !strings.Contains(s, "Transfer-Encoding: chunked\r\n") {
		t.Errorf("Expected chunked encoding, got:\n%s", s)
	}
	if strings.Contains(s, "Content-Length") {
		t.Errorf("Expected no Content-Length on a stream, got:\n%s", s)
	}
	if !strings.HasSuffix(s, "\r\n\r\n9\r\nWikipedia\r\n0\r\n\r\n") {
		t.Errorf("Unexpected chunked body:\n%q", s)
	}

	// The written stream parses back to the same body.
	raw := "POST / HTTP/1.1\r\n" + strings.SplitN(s, "\r\n", 2)[1]
	req, err := ReadRequest(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if string(req.Body) != "Wikipedia" {
		t.Errorf("Expected round-tripped body, got %q", req.Body)
	}
}

func TestResponse_Encode(t *testing.T) {
	resp := NewResponse().Encode(codec.JSON, map[string]int{"count": 3})
	if resp.Headers.Get(HeaderContentType) != "application/json" {
		t.Errorf("Expected JSON content type, got %q", resp.Headers.Get(HeaderContentType))
	}
	if string(resp.Body) != `{"count":3}` {
		t.Errorf("Unexpected body %q", resp.Body)
	}

	bad := NewResponse().Encode(codec.JSON, make(chan int))
	if bad.Code != 500 {
		t.Errorf("Expected 500 on encode failure, got %d", bad.Code)
	}
}

func TestTextf(t *testing.T) {
	resp := Textf(400, "Bad Request: %s", "No separator")
	if resp.Code != 400 || string(resp.Body) != "Bad Request: No separator" {
		t.Errorf("Unexpected response %d %q", resp.Code, resp.Body)
	}
}
