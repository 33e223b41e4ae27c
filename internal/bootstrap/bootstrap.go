// Package bootstrap wires configuration into the infrastructure and the
// analysis service shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/database/redis"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/IsomerScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/IsomerScope/internal/intelligence/resolver"
)

// Options select the optional infrastructure.
type Options struct {
	// Storage connects MinIO when minio.enabled is set.
	Storage bool
	// Publisher connects a Kafka producer when kafka.enabled is set.
	Publisher bool
	// Redis connects even when the cache backend does not need it.
	Redis bool
	// Version is exported as the build_info metric.
	Version string
}

// HealthCheck is one dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// App holds the wired components. Optional parts are nil when disabled.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Redis    *redis.Client
	MinIO    *minio.MinIOClient
	Storage  minio.ReportStore
	Producer *kafka.Producer
	Resolver resolver.Resolver
	Service  isomer.Service

	checks  []HealthCheck
	closers []func() error
}

// New wires every component. Redis is pinged on connect. On error the ones already opened are closed.
func New(cfg *config.Config, logger logging.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.init(opts); err != nil {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("cleanup after failed start", logging.Err(cerr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(opts Options) error {
	cfg := a.Config
	if err := a.initMetrics(opts.Version); err != nil {
		return err
	}
	if err := a.initRedis(opts.Redis || cfg.Cache.Backend == "redis"); err != nil {
		return err
	}
	if opts.Storage && cfg.MinIO.Enabled {
		if err := a.initStorage(); err != nil {
			return err
		}
	}
	if opts.Publisher && cfg.Kafka.Enabled {
		if err := a.initProducer(); err != nil {
			return err
		}
	}

	a.Resolver = resolver.NewFromConfig(cfg.Resolver, resolver.NewCacheFromConfig(cfg.Cache, a.Redis, a.Logger), a.Metrics, a.Logger)

	deps := isomer.Dependencies{
		Resolver: a.Resolver,
		Storage:  a.Storage,
		Metrics:  a.Metrics,
		Logger:   a.Logger,
	}
	if a.Producer != nil {
		deps.Publisher = a.Producer
		deps.CompletedTopic = cfg.Kafka.CompletedTopic
	}
	deps = isomer.NewPipeline(cfg.Stereo, cfg.Render, a.Metrics, a.Logger).Dependencies(deps)

	svc, err := isomer.NewService(deps)
	if err != nil {
		return err
	}
	a.Service = svc
	return nil
}

func (a *App) initMetrics(version string) error {
	if !a.Config.Metrics.Enabled {
		a.Collector = prometheus.NewNopCollector()
		a.Metrics = prometheus.NewNopAppMetrics()
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFromConfig(a.Config.Metrics, version), a.Logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.Collector = collector
	a.Metrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (a *App) initRedis(needed bool) error {
	if !needed {
		return nil
	}
	client, err := redis.NewClient(a.Config.Redis, a.Logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.Redis = client
	a.checks = append(a.checks, HealthCheck{Name: "redis", Check: client.Ping})
	return nil
}

func (a *App) initStorage() error {
	client, err := minio.NewMinIOClient(a.Config.MinIO, a.Logger,
		minio.ExpiryRule{Prefix: isomer.ExportPrefix, Days: a.Config.MinIO.RetentionDays})
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	a.MinIO = client
	a.Storage = minio.NewReportStore(client, a.Logger)
	a.checks = append(a.checks, HealthCheck{Name: "minio", Check: client.Ping})
	return nil
}

func (a *App) initProducer() error {
	producer, err := kafka.NewProducer(kafka.ProducerConfigFromConfig(a.Config.Kafka), a.Logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.Producer = producer
	a.closers = append(a.closers, producer.Close)
	return nil
}

// HealthChecks returns the probes of the connected dependencies.
func (a *App) HealthChecks() []HealthCheck {
	return append([]HealthCheck(nil), a.checks...)
}

// Close releases connections in reverse order of opening and returns the
// first error.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

//Personal.AI order the ending
