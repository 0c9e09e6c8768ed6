package middleware

import (
	"net/http"
	"strconv"
	"time"

	"clinic-frontdesk/pkg/metrics"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type RequestLogger struct {
	log     *logrus.Logger
	metrics *metrics.Collector
}

func NewRequestLogger(log *logrus.Logger, collector *metrics.Collector) *RequestLogger {
	return &RequestLogger{
		log:     log,
		metrics: collector,
	}
}

// Handle logs each request and records HTTP metrics labelled by route
// template, so path parameters do not explode label cardinality.
func (m *RequestLogger) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if m.metrics != nil {
			m.metrics.InFlightGauge.Inc()
			defer m.metrics.InFlightGauge.Dec()
		}

		next.ServeHTTP(rec, req)

		duration := time.Since(start)
		path := routeTemplate(req)
		status := strconv.Itoa(rec.status)

		if m.metrics != nil {
			m.metrics.RequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.metrics.RequestDuration.WithLabelValues(req.Method, path, status).Observe(duration.Seconds())
		}

		entry := m.log.WithFields(logrus.Fields{
			"method":      req.Method,
			"path":        req.URL.Path,
			"status":      rec.status,
			"duration_ms": duration.Milliseconds(),
		})
		switch {
		case rec.status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case rec.status >= http.StatusBadRequest:
			entry.Info("Request rejected")
		default:
			entry.Debug("Request handled")
		}
	})
}

func routeTemplate(req *http.Request) string {
	if route := mux.CurrentRoute(req); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
