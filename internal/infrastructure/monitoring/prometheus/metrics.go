package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Resolver
	ResolutionsTotal   CounterVec
	ResolutionDuration HistogramVec
	CacheHitsTotal     CounterVec
	CacheMissesTotal   CounterVec

	// Stereo pipeline
	AnalysesTotal          CounterVec
	AnalysisDuration       HistogramVec
	IsomersFound           HistogramVec
	EmbeddingAttempts      HistogramVec
	EmbeddingFailures      CounterVec
	RenderDuration         HistogramVec
	ExportsTotal           CounterVec
	MessageProcessDuration HistogramVec

	// System Health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAnalysisDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultIsomerCountBuckets      = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 1024}
	DefaultAttemptBuckets          = []float64{1, 2, 3, 5, 8, 13, 21, 50}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Resolver
	m.ResolutionsTotal = collector.RegisterCounter("resolutions_total", "Name resolutions by source and outcome", "source", "status")
	m.ResolutionDuration = collector.RegisterHistogram("resolution_duration_seconds", "Name resolution duration", DefaultHTTPDurationBuckets, "source")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// Stereo pipeline
	m.AnalysesTotal = collector.RegisterCounter("analyses_total", "Stereoisomer analyses", "entry", "status")
	m.AnalysisDuration = collector.RegisterHistogram("analysis_duration_seconds", "End-to-end analysis duration", DefaultAnalysisDurationBuckets, "entry")
	m.IsomersFound = collector.RegisterHistogram("isomers_found", "Stereoisomers per analysis", DefaultIsomerCountBuckets, "kind")
	m.EmbeddingAttempts = collector.RegisterHistogram("embedding_attempts", "Attempts needed for a 3D conformer", DefaultAttemptBuckets)
	m.EmbeddingFailures = collector.RegisterCounter("embedding_failures_total", "3D embeddings that gave up")
	m.RenderDuration = collector.RegisterHistogram("render_duration_seconds", "Rendering duration", DefaultHTTPDurationBuckets, "kind")
	m.ExportsTotal = collector.RegisterCounter("exports_total", "Report exports", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultAnalysisDurationBuckets, "topic", "status")

	// System Health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

// NewNopAppMetrics returns metrics that record nothing.
func NewNopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNopCollector())
}

// Helpers

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordResolution counts a lookup against one source. Source is "opsin",
// "pubchem" or "cache".
func RecordResolution(metrics *AppMetrics, source string, duration time.Duration, err error) {
	metrics.ResolutionsTotal.WithLabelValues(source, status(err)).Inc()
	metrics.ResolutionDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordAnalysis observes one pipeline run. Entry is "name", "smiles" or
// "worker"; allene selects the isomer-count series.
func RecordAnalysis(metrics *AppMetrics, entry string, isomers int, allene bool, duration time.Duration, err error) {
	metrics.AnalysesTotal.WithLabelValues(entry, status(err)).Inc()
	metrics.AnalysisDuration.WithLabelValues(entry).Observe(duration.Seconds())
	if err != nil {
		return
	}
	kind := "tetrahedral"
	if allene {
		kind = "allene"
	}
	metrics.IsomersFound.WithLabelValues(kind).Observe(float64(isomers))
}

func RecordEmbedding(metrics *AppMetrics, attempts int, err error) {
	if err != nil {
		metrics.EmbeddingFailures.WithLabelValues().Inc()
		return
	}
	metrics.EmbeddingAttempts.WithLabelValues().Observe(float64(attempts))
}

func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
