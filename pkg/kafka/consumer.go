package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries bounds how often one message is handed to the handler
// before it is parked in the DLQ (or dropped) and committed.
const maxHandlerRetries = 3

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	// StartAtLatest skips history for groups with no committed offset.
	StartAtLatest bool
	// DLQ receives messages that exhausted their retries. Nil drops them.
	DLQ *DLQProducer
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds messages of one topic to a Handler with retry, DLQ and
// at-least-once commit semantics.
type Consumer struct {
	reader    messageReader
	topic     string
	group     string
	handler   Handler
	dlq       *DLQProducer
	logger    *slog.Logger
	backoff   time.Duration
	closeOnce sync.Once
}

func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	start := kafka.FirstOffset
	if cfg.StartAtLatest {
		start = kafka.LastOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: start,
	})
	return newConsumer(r, cfg, handler, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   cfg.Topic,
		group:   cfg.GroupID,
		handler: handler,
		dlq:     cfg.DLQ,
		logger:  logger,
		backoff: 100 * time.Millisecond,
	}
}

// Topic returns the topic this consumer reads.
func (c *Consumer) Topic() string { return c.topic }

// Start consumes until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("topic", c.topic), slog.String("group", c.group))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", c.topic))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}
		consumerMessages.WithLabelValues(c.topic, c.group, outcomeReceived).Inc()

		if !c.process(ctx, msg) {
			return c.Close()
		}
	}
}

// process handles one message and reports false when ctx ended mid-retry,
// leaving the message uncommitted for redelivery.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.fail(ctx, msg, err)
		return true
	}

	ctx = ExtractTraceContext(ctx, msg)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}
		c.logger.WarnContext(ctx, "handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}
	consumerDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		c.logger.ErrorContext(ctx, "handler failed after all retries",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("retries", maxHandlerRetries),
			slog.String("error", lastErr.Error()),
		)
		c.fail(ctx, msg, lastErr)
		return true
	}

	consumerMessages.WithLabelValues(c.topic, c.group, outcomeProcessed).Inc()
	c.commit(ctx, msg)
	return true
}

func (c *Consumer) fail(ctx context.Context, msg kafka.Message, cause error) {
	consumerMessages.WithLabelValues(c.topic, c.group, outcomeFailed).Inc()
	if c.dlq != nil {
		if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
			// Leave it uncommitted so it is redelivered rather than lost.
			return
		}
	}
	c.commit(ctx, msg)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
