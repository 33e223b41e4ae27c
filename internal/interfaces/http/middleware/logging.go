package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
)

type LoggingConfig struct {
	// SkipPaths are measured but not logged.
	SkipPaths     []string
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probes and the scrape endpoint.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 10 * time.Second,
	}
}

// routePattern is the matched chi pattern. Unknown paths share
// "unmatched" to bound label cardinality.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusOf treats a handler that never wrote as 200, like net/http does.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// RequestLogging writes one access line per request and records the HTTP
// metrics by route pattern. metrics may be nil.
func RequestLogging(logger logging.Logger, metrics *prometheus.AppMetrics, config LoggingConfig) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics != nil {
				active := metrics.HTTPActiveRequests.WithLabelValues(r.Method, "all")
				active.Inc()
				defer active.Dec()
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)
			status := statusOf(ww)

			if metrics != nil {
				prometheus.RecordHTTPRequest(metrics, r.Method, routePattern(r), status, elapsed)
			}
			if _, ok := skip[r.URL.Path]; ok {
				return
			}

			log := logger.Info
			switch {
			case status >= http.StatusInternalServerError:
				log = logger.Error
			case status >= http.StatusBadRequest:
				log = logger.Warn
			case config.SlowThreshold > 0 && elapsed >= config.SlowThreshold:
				log = logger.Warn
			}
			log("request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Duration("duration", elapsed),
				logging.Int("bytes", ww.BytesWritten()),
				logging.String("remote_addr", r.RemoteAddr),
				logging.String("request_id", chimw.GetReqID(r.Context())))
		})
	}
}

//Personal.AI order the ending
