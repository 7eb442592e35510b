package mid

import (
	"net/http"
	"strconv"
	"time"

	"github.com/semcache/semcache/pkg/metrics"
)

// Metrics returns middleware that records per-route request counts and
// latencies into the given registry. Series are labeled by the ServeMux
// pattern that matched, not the raw path, so the label set stays bounded
// no matter what clients request.
func Metrics(reg *metrics.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			// ServeMux fills in Pattern during routing; empty means no
			// route matched (404s, scanner probes).
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}

			labels := metrics.WithLabels("http_requests_total",
				"method", r.Method,
				"route", route,
				"status", strconv.Itoa(sw.status),
			)
			reg.Counter(labels, "Total HTTP requests.").Inc()
			reg.Histogram(
				metrics.WithLabels("http_request_duration_seconds", "route", route),
				"HTTP request latency.",
				nil,
			).Since(start)
		})
	}
}
