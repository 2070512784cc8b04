package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one message. Returning an error marked with Permanent
// skips the remaining attempts.
type Handler func(ctx context.Context, msg kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying, e.g. an undecodable payload.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type Consumer struct {
	reader   messageReader
	topic    string
	attempts int
	backoff  time.Duration
	onFailed func(msg kafka.Message, err error)
}

type ConsumerOption func(*Consumer)

// WithHandlerRetries runs the handler up to attempts times per message,
// waiting backoff, 2*backoff, ... between tries.
func WithHandlerRetries(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.backoff = backoff
	}
}

// WithFailureHook replaces the default log line for messages that are
// skipped after their last failed attempt.
func WithFailureHook(fn func(msg kafka.Message, err error)) ConsumerOption {
	return func(c *Consumer) {
		c.onFailed = fn
	}
}

func NewConsumer(brokers []string, groupID, topic string, opts ...ConsumerOption) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MaxBytes:          frameBytes,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return newConsumer(reader, topic, opts...)
}

func newConsumer(reader messageReader, topic string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:   reader,
		topic:    topic,
		attempts: 1,
	}
	c.onFailed = c.logFailure
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume hands every message to handler until ctx is cancelled. A message is
// committed once the handler succeeds or gives up, so a crash mid-handler
// redelivers it. Cancellation is not reported as an error.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		if err := c.handle(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.onFailed(msg, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit %s offset %d: %w", c.topic, msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler Handler, msg kafka.Message) error {
	var err error
	for i := 0; i < c.attempts; i++ {
		if err = handler(ctx, msg); err == nil || isPermanent(err) {
			return err
		}
		if i < c.attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * c.backoff):
			}
		}
	}
	return err
}

func (c *Consumer) logFailure(msg kafka.Message, err error) {
	log.Printf("WARNING: skip %s message partition=%d offset=%d key=%s: %v",
		c.topic, msg.Partition, msg.Offset, msg.Key, err)
}
