// Command worker consumes queued isomer analysis requests from Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/IsomerScope/internal/bootstrap"
	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/database/redis"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/interfaces/http/handlers"
	"github.com/turtacn/IsomerScope/internal/interfaces/mq"
)

// version is injected via ldflags.
var version = "dev"

const (
	defaultHealthAddr = ":8081"
	lockPrefix        = "isoscope:"
	shutdownTimeout   = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	workers := flag.Int("workers", 0, "concurrent consumers (overrides worker.concurrency)")
	healthAddr := flag.String("health-addr", defaultHealthAddr, "address of the /healthz and /metrics endpoint")
	timeout := flag.Duration("handler-timeout", mq.DefaultHandlerTimeout, "per-request analysis timeout")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *healthAddr, *timeout); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger, healthAddr string, timeout time.Duration) error {
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled is false: the worker has nothing to consume")
	}

	app, err := bootstrap.New(cfg, logger, bootstrap.Options{Storage: true, Publisher: true, Redis: true, Version: version})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", logging.Err(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ensureTopics(ctx, cfg.Kafka, logger); err != nil {
		logger.Warn("topic setup failed; relying on broker auto-creation", logging.Err(err))
	}

	handler := mq.NewAnalysisHandler(app.Service, logger,
		mq.WithLocks(redis.NewLeaser(app.Redis, lockPrefix, logger)),
		mq.WithMetrics(app.Metrics),
		mq.WithTimeout(timeout),
	)

	// Consumers share the group, so partitions are spread across them.
	consumerCfg := kafka.ConsumerConfigFromConfig(cfg.Kafka)
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		c, err := kafka.NewConsumer(consumerCfg, logger.With(logging.Int("consumer", i)))
		if err != nil {
			return err
		}
		consumers = append(consumers, c)
		c.Subscribe(cfg.Kafka.RequestTopic, handler.Handle)
		if err := c.Start(ctx); err != nil {
			return err
		}
	}

	healthSrv := newHealthServer(healthAddr, app)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	logger.Info("worker started",
		logging.String("version", version),
		logging.String("topic", cfg.Kafka.RequestTopic),
		logging.String("group", cfg.Kafka.GroupID),
		logging.Int("consumers", len(consumers)),
		logging.String("health_addr", healthAddr),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", logging.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown failed", logging.Err(err))
	}
	return nil
}

func ensureTopics(ctx context.Context, kc config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(kc.Brokers, logger)
	if err != nil {
		return err
	}
	return tm.EnsureTopics(ctx, kafka.AnalysisTopics(kc))
}

func newHealthServer(addr string, app *bootstrap.App) *http.Server {
	checks := make(map[string]handlers.HealthCheck)
	for _, hc := range app.HealthChecks() {
		checks[hc.Name] = hc.Check
	}
	r := chi.NewRouter()
	handlers.NewHealthHandler("worker", version, app.Metrics, checks).RegisterRoutes(r)
	r.Handle("/metrics", app.Collector.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

//Personal.AI order the ending
