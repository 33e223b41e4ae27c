package kafka

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeMessageQueueError, "producer closed")

var (
	acksByName = map[string]kafka.RequiredAcks{
		"":     kafka.RequireOne,
		"one":  kafka.RequireOne,
		"none": kafka.RequireNone,
		"all":  kafka.RequireAll,
	}
	codecByName = map[string]kafka.Compression{
		"":       0,
		"none":   0,
		"gzip":   kafka.Gzip,
		"snappy": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
	}
)

type ProducerConfig struct {
	Brokers []string
	// Acks is "none", "one" (default) or "all".
	Acks             string
	MaxRetries       int
	BatchTimeout     time.Duration
	MaxMessageBytes  int
	CompressionCodec string
	WriteTimeout     time.Duration
}

// ProducerConfigFromConfig waits for all in-sync replicas; analysis
// results are not cheap to recompute.
func ProducerConfigFromConfig(c config.KafkaConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:      c.Brokers,
		Acks:         "all",
		MaxRetries:   c.MaxRetries,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "producer needs at least one broker")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries is negative")
	}
	if _, ok := acksByName[cfg.Acks]; !ok {
		return errors.New(errors.ErrCodeValidation, "unknown acks setting").WithDetail(cfg.Acks)
	}
	if _, ok := codecByName[cfg.CompressionCodec]; !ok {
		return errors.New(errors.ErrCodeValidation, "unknown compression codec").WithDetail(cfg.CompressionCodec)
	}
	return nil
}

func (cfg ProducerConfig) withDefaults() ProducerConfig {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 4 << 20
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return cfg
}

type ProducerStats struct {
	MessagesSent   int64
	MessagesFailed int64
	BytesSent      int64
}

// WriterInterface is the part of *kafka.Writer the producer drives.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes single messages synchronously. It implements Publisher.
type Producer struct {
	writer WriterInterface
	config ProducerConfig
	logger logging.Logger
	closed atomic.Bool

	sent, failed, bytes atomic.Int64
}

func NewProducer(cfg ProducerConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            cfg.MaxRetries + 1,
		BatchTimeout:           cfg.BatchTimeout,
		BatchBytes:             int64(cfg.MaxMessageBytes),
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           acksByName[cfg.Acks],
		Compression:            codecByName[cfg.CompressionCodec],
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	return NewProducerWithWriter(w, cfg, logger), nil
}

func NewProducerWithWriter(w WriterInterface, cfg ProducerConfig, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, config: cfg.withDefaults(), logger: logger}
}

func (p *Producer) check(msg *ProducerMessage) error {
	switch {
	case p.closed.Load():
		return ErrProducerClosed
	case msg.Topic == "":
		return errors.New(errors.ErrCodeValidation, "message has no topic")
	case len(msg.Value) == 0:
		return errors.New(errors.ErrCodeValidation, "message has no value")
	case len(msg.Value) > p.config.MaxMessageBytes:
		return errors.Newf(errors.ErrCodeValidation, "message is %d bytes, limit %d", len(msg.Value), p.config.MaxMessageBytes)
	}
	return nil
}

// Publish blocks until the brokers acknowledged msg or the writer gave up.
func (p *Producer) Publish(ctx context.Context, msg *ProducerMessage) error {
	if err := p.check(msg); err != nil {
		return err
	}
	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msg.kafkaMessage()); err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "publish failed").WithDetail(msg.Topic)
	}
	p.sent.Add(1)
	p.bytes.Add(int64(len(msg.Value)))
	p.logger.Debug("published",
		logging.String("topic", msg.Topic),
		logging.Duration("latency", time.Since(start)))
	return nil
}

func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesSent:   p.sent.Load(),
		MessagesFailed: p.failed.Load(),
		BytesSent:      p.bytes.Load(),
	}
}

// Close flushes the writer. Later calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	s := p.Stats()
	p.logger.Info("producer closed", logging.Int64("sent", s.MessagesSent), logging.Int64("failed", s.MessagesFailed))
	return err
}

// kafkaMessage converts msg with headers in key order so that the wire
// form is stable.
func (msg *ProducerMessage) kafkaMessage() kafka.Message {
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafka.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafka.Header{Key: k, Value: []byte(msg.Headers[k])}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{Topic: msg.Topic, Key: msg.Key, Value: msg.Value, Headers: headers, Time: ts}
}

//Personal.AI order the ending
