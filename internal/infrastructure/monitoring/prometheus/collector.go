package prometheus

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
)

// MetricsCollector registers metric families and serves them.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Handler() http.Handler
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Add(delta float64)
	Sub(delta float64)
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Namespace string
	Subsystem string
	// Runtime adds the Go runtime and process collectors.
	Runtime bool
	// Version, when set, is exported as the build_info gauge.
	Version     string
	ConstLabels map[string]string
}

// CollectorConfigFromConfig maps the metrics configuration section.
func CollectorConfigFromConfig(c config.MetricsConfig, version string) CollectorConfig {
	return CollectorConfig{
		Namespace: c.Namespace,
		Subsystem: c.Subsystem,
		Runtime:   true,
		Version:   version,
	}
}

type registryCollector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

// NewMetricsCollector creates a collector backed by its own registry.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	c := &registryCollector{
		registry: prometheus.NewRegistry(),
		config:   cfg,
		logger:   logger,
		byName:   make(map[string]prometheus.Collector),
	}
	if cfg.Runtime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}),
		)
	}
	if cfg.Version != "" {
		info := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "build_info",
			Help:        "Build version of the running binary",
			ConstLabels: prometheus.Labels{"version": cfg.Version},
		})
		info.Set(1)
		c.registry.MustRegister(info)
	}
	return c, nil
}

func (c *registryCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// register returns the collector already registered under name when its
// type matches, registers vec otherwise. ok is false on any conflict.
func register[T prometheus.Collector](c *registryCollector, name, kind string, vec T) (out T, ok bool) {
	fqName := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, found := c.byName[fqName]; found {
		if same, match := existing.(T); match {
			return same, true
		}
		c.logger.Warn("metric type mismatch", logging.String("name", fqName), logging.String("type", kind))
		return out, false
	}
	if err := c.registry.Register(vec); err != nil {
		c.logger.Error("failed to register metric", logging.String("name", fqName), logging.String("type", kind), logging.Err(err))
		return out, false
	}
	c.byName[fqName] = vec
	return vec, true
}

func (c *registryCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels)
	if v, ok := register(c, name, "counter", vec); ok {
		return counterVec{v}
	}
	return nopVec{}
}

func (c *registryCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels)
	if v, ok := register(c, name, "gauge", vec); ok {
		return gaugeVec{v}
	}
	return nopGaugeVec{}
}

func (c *registryCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels, Buckets: buckets,
	}, labels)
	if v, ok := register(c, name, "histogram", vec); ok {
		return histogramVec{v}
	}
	return nopHistogramVec{}
}

// prometheus.Counter, Gauge and Observer already satisfy the narrow
// interfaces; only the vector lookups need adapting.

type counterVec struct{ *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter {
	return v.CounterVec.WithLabelValues(lvs...)
}

type gaugeVec struct{ *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge {
	return v.GaugeVec.WithLabelValues(lvs...)
}

type histogramVec struct{ *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram {
	return v.HistogramVec.WithLabelValues(lvs...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Nop
// ─────────────────────────────────────────────────────────────────────────────

type nopMetric struct{}

func (nopMetric) Inc()            {}
func (nopMetric) Dec()            {}
func (nopMetric) Add(float64)     {}
func (nopMetric) Sub(float64)     {}
func (nopMetric) Set(float64)     {}
func (nopMetric) Observe(float64) {}

type nopVec struct{}

func (nopVec) WithLabelValues(...string) Counter { return nopMetric{} }

type nopGaugeVec struct{}

func (nopGaugeVec) WithLabelValues(...string) Gauge { return nopMetric{} }

type nopHistogramVec struct{}

func (nopHistogramVec) WithLabelValues(...string) Histogram { return nopMetric{} }

type nopCollector struct{}

// NewNopCollector returns a collector that records nothing. Its handler
// answers 404, used when metrics are disabled.
func NewNopCollector() MetricsCollector { return nopCollector{} }

func (nopCollector) RegisterCounter(string, string, ...string) CounterVec { return nopVec{} }
func (nopCollector) RegisterGauge(string, string, ...string) GaugeVec     { return nopGaugeVec{} }
func (nopCollector) RegisterHistogram(string, string, []float64, ...string) HistogramVec {
	return nopHistogramVec{}
}
func (nopCollector) Handler() http.Handler { return http.NotFoundHandler() }

//Personal.AI order the ending
