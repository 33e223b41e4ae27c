package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

const (
	componentUp   = "up"
	componentDown = "down"

	defaultProbeTimeout = 3 * time.Second
)

// HealthHandler serves /healthz and /readyz for one process.
type HealthHandler struct {
	service string
	version string
	started time.Time
	names   []string
	checks  map[string]HealthCheck
	metrics *prometheus.AppMetrics
	timeout time.Duration
}

// NewHealthHandler labels uptime with service ("apiserver", "worker").
// metrics may be nil.
func NewHealthHandler(service, version string, metrics *prometheus.AppMetrics, checks map[string]HealthCheck) *HealthHandler {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &HealthHandler{
		service: service,
		version: version,
		started: time.Now(),
		names:   names,
		checks:  checks,
		metrics: metrics,
		timeout: defaultProbeTimeout,
	}
}

func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

type ComponentStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Liveness answers 200 while the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	up := time.Since(h.started)
	h.metrics.ServiceUptime.WithLabelValues(h.service).Set(up.Seconds())
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Service: h.service,
		Version: h.version,
		Uptime:  up.Truncate(time.Second).String(),
	})
}

// Readiness runs every check in parallel and answers 503 if any fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	statuses := h.probe(ctx)
	resp := ReadinessResponse{Ready: true}
	if len(statuses) > 0 {
		resp.Components = make(map[string]ComponentStatus, len(statuses))
	}
	for i, name := range h.names {
		resp.Components[name] = statuses[i]
		if statuses[i].Status != componentUp {
			resp.Ready = false
		}
	}

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// probe returns one status per name, in h.names order.
func (h *HealthHandler) probe(ctx context.Context) []ComponentStatus {
	out := make([]ComponentStatus, len(h.names))
	var g errgroup.Group
	for i, name := range h.names {
		i, name := i, name
		g.Go(func() error {
			start := time.Now()
			err := h.checks[name](ctx)
			st := ComponentStatus{Status: componentUp, LatencyMS: time.Since(start).Milliseconds()}
			gauge := 1.0
			if err != nil {
				st.Status, st.Error, gauge = componentDown, err.Error(), 0
			}
			h.metrics.HealthCheckStatus.WithLabelValues(name).Set(gauge)
			out[i] = st
			return nil
		})
	}
	_ = g.Wait()
	return out
}

//Personal.AI order the ending
