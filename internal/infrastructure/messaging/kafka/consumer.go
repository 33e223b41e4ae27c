package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// Headers added to dead-lettered messages.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
	HeaderErrorCode     = "error_code"
	HeaderAttempts      = "attempts"
)

const (
	defaultRetryBackoff    = time.Second
	defaultMaxRetryBackoff = 30 * time.Second
	fetchErrorPause        = time.Second
)

// RetryConfig controls redelivery of failed messages before they are
// dead-lettered.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// delay returns the pause before retry n (0-based): RetryBackoff doubled n
// times, capped at MaxRetryBackoff.
func (r RetryConfig) delay(n int) time.Duration {
	base, ceiling := r.RetryBackoff, r.MaxRetryBackoff
	if base <= 0 {
		base = defaultRetryBackoff
	}
	if ceiling <= 0 {
		ceiling = defaultMaxRetryBackoff
	}
	d := base
	for i := 0; i < n && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	return d
}

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// AutoOffsetReset is "earliest" (default) or "latest".
	AutoOffsetReset string
	RetryConfig     RetryConfig
}

// ConsumerConfigFromConfig consumes the request topic and dead-letters to
// the DLQ topic.
func ConsumerConfigFromConfig(c config.KafkaConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers: c.Brokers,
		GroupID: c.GroupID,
		Topics:  []string{c.RequestTopic},
		RetryConfig: RetryConfig{
			MaxRetries:      c.MaxRetries,
			DeadLetterTopic: c.DLQTopic,
		},
	}
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	switch {
	case len(cfg.Brokers) == 0:
		return errors.New(errors.ErrCodeValidation, "consumer needs at least one broker")
	case cfg.GroupID == "":
		return errors.New(errors.ErrCodeValidation, "consumer group id is empty")
	case len(cfg.Topics) == 0:
		return errors.New(errors.ErrCodeValidation, "consumer has no topics")
	case cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest":
		return errors.New(errors.ErrCodeValidation, "auto offset reset must be earliest or latest").WithDetail(cfg.AutoOffsetReset)
	case cfg.RetryConfig.MaxRetries < 0:
		return errors.New(errors.ErrCodeValidation, "max retries is negative")
	}
	return nil
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	MessagesConsumed     int64
	MessagesProcessed    int64
	MessagesFailed       int64
	MessagesRetried      int64
	MessagesDeadLettered int64
}

// ReaderInterface is the part of *kafka.Reader the consumer drives.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fetches from a consumer group, dispatches by topic and commits
// each message once its handler succeeded or it was dead-lettered.
type Consumer struct {
	reader     ReaderInterface
	config     ConsumerConfig
	logger     logging.Logger
	deadLetter Publisher
	closers    []func() error

	mu       sync.RWMutex
	handlers map[string]MessageHandler

	running atomic.Bool
	cancel  context.CancelFunc
	done    sync.WaitGroup

	consumed, processed, failed, retried, deadLettered atomic.Int64
}

// NewConsumer dials the group and, when a dead-letter topic is set, a
// producer for it.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	start := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        time.Second,
		SessionTimeout: 30 * time.Second,
		StartOffset:    start,
		Dialer:         &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
	})

	if cfg.RetryConfig.DeadLetterTopic == "" {
		return NewConsumerWithReader(reader, nil, cfg, logger), nil
	}
	dlq, err := NewProducer(ProducerConfig{Brokers: cfg.Brokers}, logger)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	c := NewConsumerWithReader(reader, dlq, cfg, logger)
	c.closers = append(c.closers, dlq.Close)
	return c, nil
}

// NewConsumerWithReader wraps an existing reader. deadLetter may be nil.
func NewConsumerWithReader(reader ReaderInterface, deadLetter Publisher, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     reader,
		config:     cfg,
		logger:     logger,
		deadLetter: deadLetter,
		handlers:   make(map[string]MessageHandler),
	}
}

// Subscribe sets the handler for topic, replacing any earlier one.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()
	c.logger.Info("subscribed", logging.String("topic", topic))
}

func (c *Consumer) handlerFor(topic string) (MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[topic]
	return h, ok
}

// Start runs the fetch loop in the background until ctx ends or Close.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done.Add(1)
	go func() {
		defer c.done.Done()
		c.run(ctx)
	}()
	c.logger.Info("consumer started", logging.String("group", c.config.GroupID))
	return nil
}

func (c *Consumer) run(ctx context.Context) {
	for ctx.Err() == nil {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			if sleep(ctx, fetchErrorPause) != nil {
				return
			}
			continue
		}
		c.consumed.Add(1)

		msg := fromKafka(km)
		if handler, ok := c.handlerFor(msg.Topic); !ok {
			c.logger.Warn("no handler, skipping", logging.String("topic", msg.Topic), logging.Int64("offset", msg.Offset))
		} else if err := c.processMessage(ctx, msg, handler); err != nil {
			// Shutting down before the message was handled or
			// dead-lettered: leave the offset for redelivery.
			return
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.Int64("offset", km.Offset), logging.Err(err))
		}
	}
}

// processMessage runs handler, retrying with backoff. An exhausted message
// is dead-lettered and counts as handled. It only fails when ctx ends, in
// which case the offset must stay uncommitted.
func (c *Consumer) processMessage(ctx context.Context, msg *Message, handler MessageHandler) error {
	retry := c.config.RetryConfig
	err := handler(ctx, msg)
	attempts := 1
	for ; err != nil && attempts <= retry.MaxRetries; attempts++ {
		c.retried.Add(1)
		if serr := sleep(ctx, retry.delay(attempts-1)); serr != nil {
			return serr
		}
		err = handler(ctx, msg)
	}
	if err == nil {
		c.processed.Add(1)
		return nil
	}

	c.failed.Add(1)
	c.logger.Error("message failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	return c.sendToDeadLetter(ctx, msg, attempts, err)
}

// sendToDeadLetter keeps publishing until the dead-letter topic accepts the
// message or ctx ends.
func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, attempts int, cause error) error {
	topic := c.config.RetryConfig.DeadLetterTopic
	if c.deadLetter == nil || topic == "" {
		return nil
	}
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorMessage] = cause.Error()
	headers[HeaderErrorCode] = errors.GetCode(cause).String()
	headers[HeaderAttempts] = strconv.Itoa(attempts)
	dead := &ProducerMessage{Topic: topic, Key: msg.Key, Value: msg.Value, Headers: headers}

	for n := 0; ; n++ {
		err := c.deadLetter.Publish(ctx, dead)
		if err == nil {
			c.deadLettered.Add(1)
			return nil
		}
		c.logger.Error("dead-letter publish failed",
			logging.String("topic", topic),
			logging.Int64("offset", msg.Offset),
			logging.Int("publish_attempt", n+1),
			logging.Err(err))
		if serr := sleep(ctx, c.config.RetryConfig.delay(n)); serr != nil {
			return serr
		}
	}
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed:     c.consumed.Load(),
		MessagesProcessed:    c.processed.Load(),
		MessagesFailed:       c.failed.Load(),
		MessagesRetried:      c.retried.Load(),
		MessagesDeadLettered: c.deadLettered.Load(),
	}
}

// Close stops the loop, waits for the message in flight and closes the
// reader and the dead-letter producer.
func (c *Consumer) Close() error {
	if c.running.CompareAndSwap(true, false) {
		c.cancel()
		c.done.Wait()
	}
	err := c.reader.Close()
	for _, fn := range c.closers {
		_ = fn()
	}
	s := c.Stats()
	c.logger.Info("consumer closed",
		logging.Int64("consumed", s.MessagesConsumed),
		logging.Int64("processed", s.MessagesProcessed),
		logging.Int64("dead_lettered", s.MessagesDeadLettered))
	return err
}

func fromKafka(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

//Personal.AI order the ending
