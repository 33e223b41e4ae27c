package isomer

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Submitter queues analysis requests for the worker.
type Submitter struct {
	publisher kafka.Publisher
	topic     string
	source    string
}

func NewSubmitter(publisher kafka.Publisher, topic, source string) (*Submitter, error) {
	if publisher == nil || topic == "" {
		return nil, errors.New(errors.ErrCodeInternal, "submitter needs a publisher and a request topic")
	}
	return &Submitter{publisher: publisher, topic: topic, source: source}, nil
}

// Submit publishes req keyed by its ID, assigning one when empty, and
// returns the ID. Nothing is analyzed here.
func (s *Submitter) Submit(ctx context.Context, req *Request) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SMILES = strings.TrimSpace(req.SMILES)
	if req.Name == "" && req.SMILES == "" {
		return "", errors.New(errors.ErrCodeBadRequest, "name or smiles is required")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisRequested, s.source, kafka.AnalysisRequestedPayload{
		RequestID: req.ID,
		Name:      req.Name,
		SMILES:    req.SMILES,
		Export:    req.Export,
	})
	if err != nil {
		return "", err
	}
	msg, err := env.ToMessage(s.topic, req.ID)
	if err != nil {
		return "", err
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return "", err
	}
	return req.ID, nil
}

//Personal.AI order the ending
