// Command apiserver serves the isomer analysis page and JSON API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/IsomerScope/internal/bootstrap"
	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/database/redis"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/IsomerScope/internal/interfaces/http"
	"github.com/turtacn/IsomerScope/internal/interfaces/http/handlers"
	"github.com/turtacn/IsomerScope/internal/interfaces/http/middleware"
)

// version is injected via ldflags.
var version = "dev"

const (
	bucketIdleTTL = 10 * time.Minute
	ratePrefix    = "isoscope:"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("apiserver exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	app, err := bootstrap.New(cfg, logger, bootstrap.Options{
		Storage:   true,
		Publisher: true,
		Redis:     cfg.Server.RateLimitBackend == "redis",
		Version:   version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", logging.Err(err))
		}
	}()

	checks := make(map[string]handlers.HealthCheck)
	for _, hc := range app.HealthChecks() {
		checks[hc.Name] = hc.Check
	}

	cors := middleware.CORSConfigFromServer(cfg.Server)
	routerCfg := httpserver.RouterConfig{
		PageHandler:      handlers.NewPageHandler(app.Service, logger),
		IsomerHandler:    handlers.NewIsomerHandler(app.Service, logger),
		HealthHandler:    handlers.NewHealthHandler("apiserver", version, app.Metrics, checks),
		CORS:             &cors,
		Logging:          middleware.DefaultLoggingConfig(),
		MaxBodySize:      cfg.Server.MaxBodySize,
		Logger:           logger,
		Metrics:          app.Metrics,
		MetricsCollector: app.Collector,
	}
	routerCfg.RateLimiter = rateLimiter(cfg.Server, app, logger)

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	logger.Info("starting apiserver",
		logging.String("version", version),
		logging.String("addr", srv.Addr()),
		logging.Bool("storage", app.Storage != nil),
		logging.Bool("publisher", app.Producer != nil),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Stop(ctx)
}

// rateLimiter returns nil when rate limiting is off.
func rateLimiter(sc config.ServerConfig, app *bootstrap.App, logger logging.Logger) middleware.RateLimiter {
	switch {
	case sc.RateLimit <= 0:
		return nil
	case sc.RateLimitBackend == "redis" && app.Redis != nil:
		return middleware.NewWindowLimiter(redis.NewWindowCounter(app.Redis, ratePrefix), sc.RateLimit, sc.RateBurst, logger)
	default:
		return middleware.NewTokenBucketLimiter(sc.RateLimit, sc.RateBurst, bucketIdleTTL)
	}
}

//Personal.AI order the ending
