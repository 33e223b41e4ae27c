package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/IsomerScope/internal/interfaces/http/handlers"
	"github.com/turtacn/IsomerScope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	PageHandler   *handlers.PageHandler
	IsomerHandler *handlers.IsomerHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	CORS        *middleware.CORSConfig
	Logging     middleware.LoggingConfig
	RateLimiter middleware.RateLimiter
	MaxBodySize int64

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the route tree. Only the analysis routes are rate
// limited; probes, metrics and lookups are not.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, cfg.Logging))
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	var limit func(http.Handler) http.Handler
	if cfg.RateLimiter != nil {
		limit = middleware.RateLimit(cfg.RateLimiter, middleware.RateLimitConfig{})
	}
	if cfg.PageHandler != nil {
		cfg.PageHandler.RegisterRoutes(r, limit)
	}
	if cfg.IsomerHandler != nil {
		cfg.IsomerHandler.RegisterRoutes(r, limit)
	}

	return r
}

//Personal.AI order the ending
