package kafka

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// TopicSpec describes a topic the worker needs.
type TopicSpec struct {
	Name       string
	Partitions int
	Replicas   int
	Retention  time.Duration
}

func (s TopicSpec) kafkaConfig() kafka.TopicConfig {
	tc := kafka.TopicConfig{Topic: s.Name, NumPartitions: s.Partitions, ReplicationFactor: s.Replicas}
	if s.Retention > 0 {
		tc.ConfigEntries = []kafka.ConfigEntry{{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(s.Retention.Milliseconds(), 10),
		}}
	}
	return tc
}

// TopicAdmin is the part of *kafka.Client used to create topics.
type TopicAdmin interface {
	CreateTopics(ctx context.Context, req *kafka.CreateTopicsRequest) (*kafka.CreateTopicsResponse, error)
}

// TopicManager creates missing topics in one round trip.
type TopicManager struct {
	admin  TopicAdmin
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "no kafka brokers configured")
	}
	client := &kafka.Client{Addr: kafka.TCP(brokers...), Timeout: 10 * time.Second}
	return NewTopicManagerWithAdmin(client, logger), nil
}

func NewTopicManagerWithAdmin(admin TopicAdmin, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{admin: admin, logger: logger}
}

// EnsureTopics creates every spec that does not exist yet. Topics that
// already exist are left untouched, whatever their settings.
func (m *TopicManager) EnsureTopics(ctx context.Context, specs []TopicSpec) error {
	if len(specs) == 0 {
		return nil
	}
	req := &kafka.CreateTopicsRequest{Topics: make([]kafka.TopicConfig, 0, len(specs))}
	for _, s := range specs {
		if s.Name == "" || s.Partitions <= 0 || s.Replicas <= 0 {
			return errors.Newf(errors.ErrCodeValidation, "invalid topic spec %q: partitions=%d replicas=%d", s.Name, s.Partitions, s.Replicas)
		}
		req.Topics = append(req.Topics, s.kafkaConfig())
	}

	resp, err := m.admin.CreateTopics(ctx, req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "create topics")
	}
	var failed []error
	for _, s := range specs {
		switch terr := resp.Errors[s.Name]; {
		case terr == nil:
			m.logger.Info("topic created", logging.String("topic", s.Name), logging.Int("partitions", s.Partitions))
		case stderrors.Is(terr, kafka.TopicAlreadyExists):
			m.logger.Debug("topic exists", logging.String("topic", s.Name))
		default:
			failed = append(failed, errors.Wrap(terr, errors.ErrCodeMessageQueueError, "create topic").WithDetail(s.Name))
		}
	}
	return stderrors.Join(failed...)
}

// AnalysisTopics lists the request, completion and dead-letter topics
// named by c. Empty names are skipped.
func AnalysisTopics(c config.KafkaConfig) []TopicSpec {
	const week = 7 * 24 * time.Hour
	var out []TopicSpec
	for _, s := range []TopicSpec{
		{Name: c.RequestTopic, Partitions: 6, Replicas: 1, Retention: week},
		{Name: c.CompletedTopic, Partitions: 6, Replicas: 1, Retention: week},
		{Name: c.DLQTopic, Partitions: 1, Replicas: 1, Retention: 4 * week},
	} {
		if s.Name != "" {
			out = append(out, s)
		}
	}
	return out
}

//Personal.AI order the ending
