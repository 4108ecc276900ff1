package http

import (
	"net/url"
	"strings"
)

// QueryPair is one decoded key/value from a query string or form body.
type QueryPair struct {
	Key   string
	Value string
}

// Query is an ordered multimap of query parameters. A key may repeat.
type Query []QueryPair

// ParseQuery decodes "k=v&k2=v2". It is shared by URL query strings and
// application/x-www-form-urlencoded bodies. A key without "=" gets an empty
// value. Bad percent-encoding or an empty key is ErrInvalidQuery.
func ParseQuery(raw string) (Query, error) {
	var q Query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if k == "" {
			return nil, ErrInvalidQuery
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, ErrInvalidQuery
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, ErrInvalidQuery
		}
		q = append(q, QueryPair{Key: key, Value: val})
	}
	return q, nil
}

// Get returns the first value for key.
func (q Query) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Value returns the first value for key, or "".
func (q Query) Value(key string) string {
	v, _ := q.Get(key)
	return v
}

// All returns every value for key in order.
func (q Query) All(key string) []string {
	var out []string
	for _, p := range q {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// Has reports whether key appears at least once.
func (q Query) Has(key string) bool {
	_, ok := q.Get(key)
	return ok
}

func (q Query) String() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}
