package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"video-captioner/internal/metrics"
)

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// dynamicPrefixes are routes whose last segment is a caller-chosen file name.
var dynamicPrefixes = []string{"/uploads/", "/api/thumbnail/"}

var knownPaths = map[string]bool{
	"/":            true,
	"/api/upload":  true,
	"/api/combine": true,
	"/version":     true,
}

// normalizePath maps a request path onto a bounded set of label values.
func normalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	for _, prefix := range dynamicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return prefix + "{filename}"
		}
	}
	return "other"
}
