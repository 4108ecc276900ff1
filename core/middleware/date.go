package middleware

import (
	nethttp "net/http"
	"time"

	"github.com/searchktools/fire-server/core/http"
)

// Date adds a Date header to responses that lack one.
type Date struct {
	Base
	now func() time.Time
}

// NewDate creates the Date header middleware
func NewDate() *Date {
	return &Date{now: time.Now}
}

func (m *Date) Post(_ *http.Request, res *http.Response, err error) Result {
	if err != nil || res.Headers.Has(http.HeaderDate) {
		return Continue()
	}
	return Add(res.Header(http.HeaderDate, m.now().UTC().Format(nethttp.TimeFormat)))
}
