package isomer

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *kafka.ProducerMessage) error {
	return stderrors.New("broker unreachable")
}

func TestNewSubmitter(t *testing.T) {
	t.Parallel()
	_, err := NewSubmitter(nil, "requests", "cli")
	assert.Error(t, err)
	_, err = NewSubmitter(&capturePublisher{}, "", "cli")
	assert.Error(t, err)
}

func TestSubmit_PublishesRequest(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{}
	s, err := NewSubmitter(pub, "isomer.analysis.requested", "cli")
	require.NoError(t, err)

	id, err := s.Submit(context.Background(), &Request{Name: "  penta-2,3-diene ", Export: true})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "isomer.analysis.requested", msg.Topic)
	assert.Equal(t, id, string(msg.Key))
	assert.Equal(t, "cli", msg.Headers[kafka.HeaderSource])

	env, err := kafka.DecodeEnvelope(&kafka.Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, kafka.EventAnalysisRequested, env.EventType)
	var p kafka.AnalysisRequestedPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, kafka.AnalysisRequestedPayload{RequestID: id, Name: "penta-2,3-diene", Export: true}, p)
}

func TestSubmit_KeepsCallerID(t *testing.T) {
	t.Parallel()
	s, err := NewSubmitter(&capturePublisher{}, "t", "api")
	require.NoError(t, err)
	id, err := s.Submit(context.Background(), &Request{ID: "req-7", SMILES: "CC=C=CC"})
	require.NoError(t, err)
	assert.Equal(t, "req-7", id)
}

func TestSubmit_Errors(t *testing.T) {
	t.Parallel()
	s, err := NewSubmitter(&capturePublisher{}, "t", "cli")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), &Request{Name: "   "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	s, err = NewSubmitter(failingPublisher{}, "t", "cli")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), &Request{Name: "benzene"})
	assert.EqualError(t, err, "broker unreachable")
}

//Personal.AI order the ending
