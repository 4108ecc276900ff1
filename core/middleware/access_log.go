package middleware

import (
	"time"

	"github.com/searchktools/fire-server/core/http"
	"github.com/searchktools/fire-server/logger"
)

// AccessLog logs one line per written response.
type AccessLog struct {
	Base
	log logger.Logger
}

// NewAccessLog creates the access logger
func NewAccessLog(log logger.Logger) *AccessLog {
	return &AccessLog{log: log.With("component", "access")}
}

func (m *AccessLog) End(req *http.Request, res *http.Response) {
	if req == nil {
		m.log.Warn("malformed request", "status", res.Code, "reason", string(res.Body))
		return
	}

	attrs := []any{
		"method", req.Method.String(),
		"path", req.Path,
		"status", res.Code,
		"remote", req.Address,
		"duration_ms", time.Since(req.ReceivedAt).Milliseconds(),
	}
	if id := req.Header(http.HeaderRequestID); id != "" {
		attrs = append(attrs, "request_id", id)
	}

	switch {
	case res.Code >= 500:
		m.log.Error("request completed with error", attrs...)
	case res.Code >= 400:
		m.log.Warn("request completed with client error", attrs...)
	default:
		m.log.Info("request completed", attrs...)
	}
}
