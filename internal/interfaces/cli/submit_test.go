package cli

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
}

func (p *capturePublisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (h *harness) runSubmit(pub kafka.Publisher, args ...string) (int, error) {
	closed := 0
	factory := func(*config.Config, logging.Logger) (kafka.Publisher, func() error, error) {
		return pub, func() error { closed++; return nil }, nil
	}
	cmd := NewRootCommand(h.factory, WithPublisherFactory(factory))
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)
	cmd.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	return closed, cmd.ExecuteContext(context.Background())
}

func TestSubmitCmd(t *testing.T) {
	h := newHarness(t)
	pub := &capturePublisher{}

	closed, err := h.runSubmit(pub, "submit", "--id", "job-42", "--export", "penta-2,3-diene")
	require.NoError(t, err)
	assert.Equal(t, "job-42\n", h.stdout.String())
	assert.Equal(t, 1, closed)
	assert.Empty(t, h.opts, "submit must not build the analysis service")

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, config.DefaultKafkaRequestTopic, pub.msgs[0].Topic)
	env, err := kafka.DecodeEnvelope(&kafka.Message{Value: pub.msgs[0].Value})
	require.NoError(t, err)
	var p kafka.AnalysisRequestedPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, kafka.AnalysisRequestedPayload{RequestID: "job-42", Name: "penta-2,3-diene", Export: true}, p)
}

func TestSubmitCmd_SMILESAsJSON(t *testing.T) {
	h := newHarness(t)
	pub := &capturePublisher{}

	_, err := h.runSubmit(pub, "-o", "json", "submit", "--smiles", "CC=C=CC")
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.NotEmpty(t, out["request_id"])
	assert.Equal(t, string(pub.msgs[0].Key), out["request_id"])
	assert.True(t, strings.Contains(string(pub.msgs[0].Value), `"smiles":"CC=C=CC"`))
}

func TestSubmitCmd_KafkaDisabled(t *testing.T) {
	h := newHarness(t)
	cmd := NewRootCommand(h.factory)
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)
	cmd.SetArgs([]string{"--config", h.cfgPath, "submit", "benzene"})

	err := cmd.ExecuteContext(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

//Personal.AI order the ending
