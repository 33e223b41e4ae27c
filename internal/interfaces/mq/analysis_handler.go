// Package mq adapts queued analysis requests to the isomer service.
package mq

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/infrastructure/database/redis"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// DefaultHandlerTimeout bounds one analysis.
const DefaultHandlerTimeout = 5 * time.Minute

// Outcome labels of mq_process_duration_seconds.
const (
	statusDone      = "done"
	statusRejected  = "rejected"
	statusDuplicate = "duplicate"
	statusSkipped   = "skipped"
	statusRetry     = "retry"
)

// Leaser grants exclusive leases; *redis.Leaser implements it.
type Leaser interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*redis.Lease, error)
}

// AnalysisHandler consumes isomer.analysis.requested events.
type AnalysisHandler struct {
	svc     isomer.Service
	locks   Leaser
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	timeout time.Duration
	lockTTL time.Duration
}

// HandlerOption configures an AnalysisHandler.
type HandlerOption func(*AnalysisHandler)

// WithLocks deduplicates redeliveries of one request across workers.
func WithLocks(l Leaser) HandlerOption {
	return func(h *AnalysisHandler) { h.locks = l }
}

// WithTimeout overrides DefaultHandlerTimeout.
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *AnalysisHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithMetrics records per-message durations.
func WithMetrics(m *prometheus.AppMetrics) HandlerOption {
	return func(h *AnalysisHandler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewAnalysisHandler constructs an AnalysisHandler.
func NewAnalysisHandler(svc isomer.Service, logger logging.Logger, opts ...HandlerOption) *AnalysisHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &AnalysisHandler{
		svc:     svc,
		metrics: prometheus.NewNopAppMetrics(),
		logger:  logger,
		timeout: DefaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	// Lease TTL exceeds the run timeout.
	h.lockTTL = h.timeout + time.Minute
	return h
}

// Handle processes one message. Only errors worth retrying are returned:
// malformed messages, client errors and duplicates are acknowledged. The
// completion event is published by the service in every case.
func (h *AnalysisHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()
	status, err := h.handle(ctx, msg)
	h.metrics.MessageProcessDuration.WithLabelValues(msg.Topic, status).Observe(time.Since(start).Seconds())
	return err
}

func (h *AnalysisHandler) handle(ctx context.Context, msg *kafka.Message) (string, error) {
	log := h.logger.With(logging.String("topic", msg.Topic), logging.Int64("offset", msg.Offset))

	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		log.Warn("dropping malformed message", logging.Err(err))
		return statusRejected, nil
	}
	if env.EventType != kafka.EventAnalysisRequested {
		log.Debug("ignoring event", logging.String("event_type", env.EventType))
		return statusSkipped, nil
	}
	var p kafka.AnalysisRequestedPayload
	if err := env.DecodePayload(&p); err != nil {
		log.Warn("dropping undecodable payload", logging.String("event_id", env.EventID), logging.Err(err))
		return statusRejected, nil
	}
	if p.RequestID == "" {
		p.RequestID = env.EventID
	}
	log = log.With(logging.String("request_id", p.RequestID))

	if h.locks != nil {
		lease, err := h.locks.Acquire(ctx, "analysis:"+p.RequestID, h.lockTTL)
		if stderrors.Is(err, redis.ErrLeaseHeld) {
			log.Info("request already in progress")
			return statusDuplicate, nil
		}
		if err != nil {
			log.Warn("lease unavailable", logging.Err(err))
			return statusRetry, err
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				log.Warn("lease release failed", logging.Err(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	_, err = h.svc.Run(runCtx, &isomer.Request{
		ID:     p.RequestID,
		Name:   p.Name,
		SMILES: p.SMILES,
		Export: p.Export,
		Entry:  isomer.EntryWorker,
	})
	switch {
	case err == nil:
		return statusDone, nil
	case retryable(err):
		return statusRetry, err
	default:
		log.Info("request rejected", logging.String("code", string(errors.GetCode(err))), logging.Err(err))
		return statusRejected, nil
	}
}

// retryable reports whether a later attempt may succeed: upstream outages,
// storage failures and timeouts.
func retryable(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeTimeout, errors.ErrCodeExternalService, errors.ErrCodeDataSourceUnavailable,
		errors.ErrCodeStorageError, errors.ErrCodeTooManyRequests:
		return true
	}
	return false
}

//Personal.AI order the ending
