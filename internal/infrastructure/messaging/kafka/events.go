package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

const (
	EventAnalysisRequested = "isomer.analysis.requested"
	EventAnalysisCompleted = "isomer.analysis.completed"
)

// SchemaVersion is stamped on every envelope. Envelopes with another
// version are rejected by DecodeEnvelope.
const SchemaVersion = "v1"

const (
	HeaderEventType     = "event_type"
	HeaderSchemaVersion = "schema_version"
	HeaderSource        = "source"
)

// EventEnvelope wraps every payload published by IsomerScope.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// AnalysisRequestedPayload asks a worker to analyze a compound. Either Name
// or SMILES is set; SMILES wins when both are.
type AnalysisRequestedPayload struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name,omitempty"`
	SMILES    string `json:"smiles,omitempty"`
	Export    bool   `json:"export"`
}

// AnalysisCompletedPayload reports the outcome of one request. Error is set
// instead of the result fields when the analysis failed.
type AnalysisCompletedPayload struct {
	RequestID   string            `json:"request_id"`
	Name        string            `json:"name,omitempty"`
	SMILES      string            `json:"smiles,omitempty"`
	Source      string            `json:"source,omitempty"`
	IsomerCount int               `json:"isomer_count"`
	Labels      []string          `json:"labels,omitempty"`
	ExportURLs  map[string]string `json:"export_urls,omitempty"`
	Error       string            `json:"error,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}

func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode payload").WithDetail(eventType)
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Payload:       raw,
	}, nil
}

// ToMessage encodes the envelope for topic. The key keeps every event of
// one request on the same partition.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode envelope").WithDetail(e.EventType)
	}
	msg := &ProducerMessage{
		Topic: topic,
		Value: raw,
		Headers: map[string]string{
			HeaderEventType:     e.EventType,
			HeaderSchemaVersion: e.SchemaVersion,
			HeaderSource:        e.Source,
		},
		Timestamp: e.Timestamp,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// DecodeEnvelope parses a consumed message. Empty bodies, missing event
// types and foreign schema versions are validation errors.
func DecodeEnvelope(msg *Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode envelope")
	}
	switch {
	case env.EventType == "":
		return nil, errors.New(errors.ErrCodeValidation, "envelope has no event_type")
	case env.SchemaVersion != "" && env.SchemaVersion != SchemaVersion:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported schema version").WithDetail(env.SchemaVersion)
	}
	return &env, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "empty payload").WithDetail(e.EventType)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode payload").WithDetail(e.EventType)
	}
	return nil
}

//Personal.AI order the ending
