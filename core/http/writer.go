package http

import (
	"fmt"
	"io"
	"strconv"

	"github.com/searchktools/fire-server/core/pools"
)

// ChunkSize is the largest chunk written for streamed bodies.
const ChunkSize = 16 * 1024

// Write serializes the response onto w.
//
// defaults are emitted after the response's own headers; a default whose
// name the response already set is skipped. Framing headers are always
// computed here: Content-Length from the body, or chunked encoding for
// streamed bodies. closing adds "Connection: close". A streamed body that
// is an io.Closer is closed once written.
func (r *Response) Write(w io.Writer, defaults Headers, closing bool) error {
	bufp := pools.AcquireBuffer(len(r.Body) + 512)
	defer pools.ReleaseBuffer(bufp)
	buf := *bufp

	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(r.Code), 10)
	buf = append(buf, ' ')
	buf = append(buf, r.reason()...)
	buf = append(buf, "\r\n"...)

	for _, h := range r.Headers {
		if isFramingHeader(h.Name) {
			continue
		}
		buf = appendHeader(buf, h.Name, h.Value)
	}
	for _, h := range defaults {
		if isFramingHeader(h.Name) || r.Headers.Has(h.Name) {
			continue
		}
		buf = appendHeader(buf, h.Name, h.Value)
	}
	if closing {
		buf = appendHeader(buf, HeaderConnection, "close")
	}

	if r.stream != nil {
		if c, ok := r.stream.(io.Closer); ok {
			defer c.Close()
		}
		buf = appendHeader(buf, HeaderTransferEncoding, "chunked")
		buf = append(buf, "\r\n"...)
		*bufp = buf
		if _, err := w.Write(buf); err != nil {
			return err
		}
		return writeChunked(w, r.stream)
	}

	buf = appendHeader(buf, HeaderContentLength, strconv.Itoa(len(r.Body)))
	buf = append(buf, "\r\n"...)
	buf = append(buf, r.Body...)
	*bufp = buf

	_, err := w.Write(buf)
	return err
}

// Serialize renders the response as it would appear on the wire. Streamed
// bodies are drained.
func (r *Response) Serialize(defaults Headers, closing bool) ([]byte, error) {
	var sink sliceWriter
	err := r.Write(&sink, defaults, closing)
	return sink, err
}

func writeChunked(w io.Writer, src io.Reader) error {
	chunk := make([]byte, ChunkSize)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			if _, werr := fmt.Fprintf(w, "%x\r\n", n); werr != nil {
				return werr
			}
			if _, werr := w.Write(chunk[:n]); werr != nil {
				return werr
			}
			if _, werr := io.WriteString(w, "\r\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			_, werr := io.WriteString(w, "0\r\n\r\n")
			return werr
		}
		if err != nil {
			return err
		}
	}
}

func appendHeader(buf []byte, name, value string) []byte {
	buf = append(buf, name...)
	buf = append(buf, ": "...)
	buf = append(buf, value...)
	return append(buf, "\r\n"...)
}

func isFramingHeader(name string) bool {
	h := Header{Name: name}
	return h.Is(HeaderContentLength) || h.Is(HeaderTransferEncoding) || h.Is(HeaderConnection)
}

type sliceWriter []byte

func (s *sliceWriter) Write(p []byte) (int, error) {
	*s = append(*s, p...)
	return len(p), nil
}
