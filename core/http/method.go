package http

import "strings"

// Method is an HTTP request method. Unknown verbs are kept as-is.
type Method string

// Standard methods. ANY only appears on routes and matches every verb.
const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	OPTIONS Method = "OPTIONS"
	HEAD    Method = "HEAD"
	PATCH   Method = "PATCH"
	TRACE   Method = "TRACE"
	CONNECT Method = "CONNECT"
	ANY     Method = "ANY"
)

var knownMethods = map[string]Method{
	"GET":     GET,
	"POST":    POST,
	"PUT":     PUT,
	"DELETE":  DELETE,
	"OPTIONS": OPTIONS,
	"HEAD":    HEAD,
	"PATCH":   PATCH,
	"TRACE":   TRACE,
	"CONNECT": CONNECT,
}

// ParseMethod converts a request-line token into a Method.
// Known verbs are matched case-insensitively; anything else that is a valid
// token becomes a custom method. Empty or malformed tokens yield false.
func ParseMethod(s string) (Method, bool) {
	if s == "" {
		return "", false
	}
	if m, ok := knownMethods[strings.ToUpper(s)]; ok {
		return m, true
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return "", false
		}
	}
	return Method(s), true
}

// Matches reports whether a route registered with m accepts other.
func (m Method) Matches(other Method) bool {
	return m == ANY || m == other
}

func (m Method) String() string {
	return string(m)
}

// isTokenChar reports whether c is a tchar as defined by RFC 9110.
func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}
