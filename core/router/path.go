package router

import (
	"errors"
	"fmt"
	"strings"
)

// WildcardParam is the parameter name bound by an anonymous trailing "**".
const WildcardParam = "*"

// ErrInvalidPattern is returned for patterns that cannot be compiled.
var ErrInvalidPattern = errors.New("router: invalid pattern")

type segmentKind uint8

const (
	literal  segmentKind = iota // exact text
	param                       // {name}
	single                      // *, one segment
	rest                        // ** or {*name}, everything left
)

type segment struct {
	kind  segmentKind
	value string // literal text or parameter name
}

// Pattern is a compiled route path.
//
//	/users/{id}        binds id to one segment
//	/files/*           matches any single segment
//	/static/**         matches any suffix, bound to "*"
//	/static/{*path}    matches any suffix, bound to path
type Pattern struct {
	raw      string
	segments []segment
}

// Compile parses a route pattern. A suffix wildcard is only allowed as the
// last segment.
func Compile(pattern string) (*Pattern, error) {
	parts := split(pattern)
	p := &Pattern{raw: pattern, segments: make([]segment, 0, len(parts))}

	for i, part := range parts {
		var seg segment
		switch {
		case part == "**":
			seg = segment{kind: rest, value: WildcardParam}
		case part == "*":
			seg = segment{kind: single}
		case strings.HasPrefix(part, "{*") && strings.HasSuffix(part, "}"):
			seg = segment{kind: rest, value: part[2 : len(part)-1]}
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			seg = segment{kind: param, value: part[1 : len(part)-1]}
		default:
			seg = segment{kind: literal, value: part}
		}

		if (seg.kind == param || seg.kind == rest) && seg.value == "" {
			return nil, fmt.Errorf("%w: empty parameter name in %q", ErrInvalidPattern, pattern)
		}
		if seg.kind == rest && i != len(parts)-1 {
			return nil, fmt.Errorf("%w: wildcard must be last in %q", ErrInvalidPattern, pattern)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether path fits the pattern and returns the bound
// parameters. The map is non-nil on success.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	parts := split(path)
	params := make(map[string]string)

	for i, seg := range p.segments {
		if seg.kind == rest {
			params[seg.value] = strings.Join(parts[i:], "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}

		switch seg.kind {
		case literal:
			if parts[i] != seg.value {
				return nil, false
			}
		case param:
			if parts[i] == "" {
				return nil, false
			}
			params[seg.value] = parts[i]
		case single:
			if parts[i] == "" {
				return nil, false
			}
		}
	}

	if len(parts) != len(p.segments) {
		return nil, false
	}
	return params, true
}

// Match compiles pattern and matches path against it. An invalid pattern
// never matches.
func Match(pattern, path string) (map[string]string, bool) {
	p, err := Compile(pattern)
	if err != nil {
		return nil, false
	}
	return p.Match(path)
}

// split breaks a path into segments, ignoring one leading and one trailing
// slash. "/" and "" have no segments.
func split(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
