// Package kafka consumes record lifecycle events from Kafka and mirrors them
// into the search index.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler is invoked for each Kafka message. A nil error commits the message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config selects the topic and consumer group.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

const (
	defaultMaxAttempts  = 5
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
)

// Option configures a Consumer.
type Option func(*Consumer)

// WithRetry sets how often a failing message is handled before Run gives up,
// and the backoff between attempts (doubling from initial up to maxDelay).
func WithRetry(attempts int, initial, maxDelay time.Duration) Option {
	return func(c *Consumer) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		if initial > 0 {
			c.initialDelay = initial
		}
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// Consumer reads messages from a topic and dispatches them to a MessageHandler.
type Consumer struct {
	reader  Reader
	handler MessageHandler
	logger  *zap.Logger

	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewConsumer creates a consumer backed by a kafka-go reader.
func NewConsumer(cfg Config, handler MessageHandler, logger *zap.Logger, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer: brokers, topic and group_id are required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return NewConsumerWithReader(r, handler, logger.With(zap.String("topic", cfg.Topic)), opts...), nil
}

// NewConsumerWithReader creates a consumer on an existing reader.
func NewConsumerWithReader(r Reader, handler MessageHandler, logger *zap.Logger, opts ...Option) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{
		reader:       r,
		handler:      handler,
		logger:       logger.With(zap.String("component", "kafka-consumer")),
		maxAttempts:  defaultMaxAttempts,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run fetches and handles messages until ctx is cancelled. A failing message
// is retried with backoff before the next one is fetched; when every attempt
// fails Run returns the error and the message stays uncommitted, so the group
// redelivers it on restart.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Consumer started")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("Failed to close reader", zap.Error(err))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Consumer stopping", zap.Error(ctx.Err()))
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("kafka reader closed: %w", err)
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		c.logger.Debug("Message received",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
			zap.Int("value_size", len(msg.Value)),
		)
		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer stopping", zap.Error(ctx.Err()))
				return nil
			}
			return fmt.Errorf("process message %d/%d: %w", msg.Partition, msg.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	delay := c.initialDelay
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler(ctx, msg.Key, msg.Value); err == nil {
			if attempt > 1 {
				c.logger.Info("Message processed after retry",
					zap.Int64("offset", msg.Offset), zap.Int("attempt", attempt))
			}
			return nil
		}
		c.logger.Error("Failed to process message",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err),
		)
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, c.maxDelay)
	}
	return fmt.Errorf("all %d attempts failed: %w", c.maxAttempts, err)
}
