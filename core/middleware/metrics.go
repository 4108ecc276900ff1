package middleware

import (
	"bytes"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/searchktools/fire-server/core/http"
)

// Metrics records request counts and latencies in a Prometheus registry.
type Metrics struct {
	Base

	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	parseErrors prometheus.Counter
}

// NewMetrics registers the request collectors on reg, or on a fresh
// registry when reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire",
			Name:      "requests_total",
			Help:      "Responses written, by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fire",
			Name:      "request_duration_seconds",
			Help:      "Time from parsed request to written response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fire",
			Name:      "parse_errors_total",
			Help:      "Requests rejected because they did not parse.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.parseErrors)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) End(req *http.Request, res *http.Response) {
	if req == nil {
		m.parseErrors.Inc()
		return
	}

	method := req.Method.String()
	m.requests.WithLabelValues(method, strconv.Itoa(res.Code)).Inc()
	if !req.ReceivedAt.IsZero() {
		m.duration.WithLabelValues(method).Observe(time.Since(req.ReceivedAt).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() func(req *http.Request) *http.Response {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return func(*http.Request) *http.Response {
		families, err := m.registry.Gather()
		if err != nil {
			return http.Textf(500, "gather metrics: %v", err)
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return http.Textf(500, "encode metrics: %v", err)
			}
		}
		return http.NewResponse().Bytes(buf.Bytes()).Content(string(format))
	}
}
