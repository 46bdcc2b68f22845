package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stevib/family-events/internal/logger"
	"github.com/stevib/family-events/internal/metrics"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each request and records request metrics.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()

		next.ServeHTTP(rec, r)

		elapsed := time.Since(started)
		metrics.Requests.WithLabelValues(strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.Observe(float64(elapsed.Milliseconds()))

		logger.Info("http request", logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	})
}
