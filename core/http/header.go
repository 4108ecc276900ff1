package http

import (
	"fmt"
	"strings"
)

// Common header names
const (
	HeaderContentType      = "Content-Type"
	HeaderContentLength    = "Content-Length"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderConnection       = "Connection"
	HeaderServer           = "Server"
	HeaderDate             = "Date"
	HeaderUserAgent        = "User-Agent"
	HeaderHost             = "Host"
	HeaderRequestID        = "X-Request-ID"
)

// Header is a single name/value pair.
type Header struct {
	Name  string
	Value string
}

// NewHeader creates a header.
func NewHeader(name, value string) Header {
	return Header{Name: name, Value: value}
}

// Is reports whether the header name equals name, ignoring case.
func (h Header) Is(name string) bool {
	return strings.EqualFold(h.Name, name)
}

func (h Header) String() string {
	return fmt.Sprintf("%s: %s", h.Name, h.Value)
}

// Headers is an ordered header list. Names may repeat (e.g. Set-Cookie).
type Headers []Header

// Get returns the first value for name, or "".
func (hs Headers) Get(name string) string {
	v, _ := hs.Lookup(name)
	return v
}

// Lookup returns the first value for name and whether it was present.
func (hs Headers) Lookup(name string) (string, bool) {
	for _, h := range hs {
		if h.Is(name) {
			return h.Value, true
		}
	}
	return "", false
}

// Values returns every value for name in insertion order.
func (hs Headers) Values(name string) []string {
	var out []string
	for _, h := range hs {
		if h.Is(name) {
			out = append(out, h.Value)
		}
	}
	return out
}

// Has reports whether name is present.
func (hs Headers) Has(name string) bool {
	_, ok := hs.Lookup(name)
	return ok
}

// Add appends a header, keeping any existing ones with the same name.
func (hs *Headers) Add(name, value string) {
	*hs = append(*hs, Header{Name: name, Value: value})
}

// Set replaces every header with name by a single one.
func (hs *Headers) Set(name, value string) {
	hs.Del(name)
	hs.Add(name, value)
}

// Del removes every header with name.
func (hs *Headers) Del(name string) {
	out := (*hs)[:0]
	for _, h := range *hs {
		if !h.Is(name) {
			out = append(out, h)
		}
	}
	*hs = out
}

// Clone returns an independent copy.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	out := make(Headers, len(hs))
	copy(out, hs)
	return out
}
