package middleware

import (
	"strings"

	"github.com/searchktools/fire-server/core/http"
)

// CORS adds the Access-Control headers and answers preflight requests.
type CORS struct {
	Base

	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
}

// NewCORS allows any origin with the common methods.
func NewCORS() *CORS {
	return &CORS{
		AllowOrigin:  "*",
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
}

func (m *CORS) Pre(req *http.Request, err error) Result {
	if err != nil || req == nil || req.Method != http.OPTIONS {
		return Continue()
	}
	return Send(m.decorate(http.NewResponse().Status(204).Bytes(nil)))
}

func (m *CORS) Post(_ *http.Request, res *http.Response, err error) Result {
	if err != nil {
		return Continue()
	}
	return Add(m.decorate(res))
}

func (m *CORS) decorate(res *http.Response) *http.Response {
	res.Headers.Set("Access-Control-Allow-Origin", m.AllowOrigin)
	res.Headers.Set("Access-Control-Allow-Methods", strings.Join(m.AllowMethods, ", "))
	res.Headers.Set("Access-Control-Allow-Headers", strings.Join(m.AllowHeaders, ", "))
	return res
}
