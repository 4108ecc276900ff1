package http

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// Default sizes for the request reader
const (
	DefaultBufferSize     = 1024
	DefaultMaxHeaderBytes = 64 * 1024
)

var headSeparator = []byte("\r\n\r\n")

// Parser reads successive requests off one connection.
type Parser struct {
	br     *bufio.Reader
	socket *Socket
	addr   string

	bufSize        int
	maxHeaderBytes int
}

// NewParser creates a parser over r. bufSize is the initial head buffer
// capacity; it grows as needed up to maxHeaderBytes.
func NewParser(r io.Reader, socket *Socket, bufSize, maxHeaderBytes int) *Parser {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	p := &Parser{
		br:             bufio.NewReaderSize(r, bufSize),
		socket:         socket,
		bufSize:        bufSize,
		maxHeaderBytes: maxHeaderBytes,
	}
	if socket != nil {
		if addr := socket.RemoteAddr(); addr != nil {
			p.addr = addr.String()
		}
	}
	return p
}

// ReadRequest parses a single request from r.
func ReadRequest(r io.Reader) (*Request, error) {
	return NewParser(r, nil, 0, 0).Next()
}

// Next reads one request. It returns ErrConnClosed when the peer closed the
// connection cleanly, a *ParseError for malformed input and a *StreamError
// when the connection failed mid-request.
func (p *Parser) Next() (*Request, error) {
	head, err := p.readHead()
	if err != nil {
		return nil, err
	}

	req, err := parseHead(head)
	if err != nil {
		return nil, err
	}
	req.socket = p.socket
	req.Address = p.addr
	req.ReceivedAt = time.Now()

	body, err := p.readBody(req.Headers)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

// readHead reads up to and including the blank line ending the headers.
func (p *Parser) readHead() ([]byte, error) {
	buf := make([]byte, 0, p.bufSize)
	skipped := 0
	for !bytes.HasSuffix(buf, headSeparator) {
		line, err := p.br.ReadSlice('\n')
		// Empty lines before the request line are ignored (RFC 9112 2.2).
		if len(buf) == 0 && err == nil && (len(line) == 1 || string(line) == "\r\n") {
			skipped += len(line)
			if skipped > p.maxHeaderBytes {
				return nil, ErrNoRequestLine
			}
			continue
		}
		buf = append(buf, line...)
		if len(buf)+skipped > p.maxHeaderBytes {
			return nil, ErrNoSeparator
		}
		if err == nil || errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if len(buf) == 0 {
			if errors.Is(err, io.EOF) && skipped > 0 {
				return nil, ErrNoRequestLine
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrConnClosed
			}
			return nil, &StreamError{Reason: "read", Err: err}
		}
		if errors.Is(err, io.EOF) {
			return nil, ErrNoSeparator
		}
		return nil, &StreamError{Reason: "read", Err: err}
	}
	return buf[:len(buf)-len(headSeparator)], nil
}

func parseHead(head []byte) (*Request, error) {
	lines := strings.Split(string(head), "\r\n")

	req, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, ErrInvalidHeader
		}
		req.Headers.Add(name, strings.TrimSpace(value))
	}
	return req, nil
}

func parseRequestLine(line string) (*Request, error) {
	if line == "" {
		return nil, ErrNoRequestLine
	}
	if strings.TrimSpace(line) == "" {
		return nil, ErrNoMethod
	}

	parts := strings.SplitN(line, " ", 3)
	method, ok := ParseMethod(parts[0])
	if !ok {
		return nil, ErrInvalidMethod
	}
	if len(parts) < 2 || parts[1] == "" {
		return nil, ErrNoPath
	}
	if len(parts) < 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return nil, ErrNoVersion
	}

	path, rawQuery, _ := strings.Cut(parts[1], "?")
	query, err := ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	return &Request{
		Method:  method,
		Path:    path,
		Version: strings.TrimSpace(parts[2]),
		Query:   query,
	}, nil
}

func (p *Parser) readBody(h Headers) ([]byte, error) {
	if te := strings.ToLower(h.Get(HeaderTransferEncoding)); hasToken(te, "chunked") {
		return p.readChunked()
	}

	cl, ok := h.Lookup(HeaderContentLength)
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
	if err != nil || n < 0 {
		return nil, ErrInvalidHeader
	}
	if n == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	if _, err := io.CopyN(&body, p.br, n); err != nil {
		return nil, streamErr(err)
	}
	return body.Bytes(), nil
}

// readChunked decodes a chunked body: hex size line, data, CRLF, repeated
// until a zero-size chunk and the trailer section.
func (p *Parser) readChunked() ([]byte, error) {
	var body bytes.Buffer
	for {
		line, err := p.br.ReadString('\n')
		if err != nil {
			return nil, streamErr(err)
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
		if err != nil || size < 0 {
			return nil, ErrInvalidChunk
		}

		if size == 0 {
			return body.Bytes(), p.skipTrailers()
		}

		if _, err := io.CopyN(&body, p.br, size); err != nil {
			return nil, streamErr(err)
		}
		var crlf [2]byte
		if _, err := io.ReadFull(p.br, crlf[:]); err != nil {
			return nil, streamErr(err)
		}
		if crlf != [2]byte{'\r', '\n'} {
			return nil, ErrInvalidChunk
		}
	}
}

func (p *Parser) skipTrailers() error {
	for {
		line, err := p.br.ReadString('\n')
		if err != nil {
			return streamErr(err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}

func streamErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}
	return &StreamError{Reason: "read", Err: err}
}
