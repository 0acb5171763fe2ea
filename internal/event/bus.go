package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pkgkafka "github.com/smogalia/list-gift/pkg/kafka"
)

// LocalBus is an in-process Publisher for single-instance deployments. It
// runs the handlers of a topic synchronously on the publishing goroutine.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string][]pkgkafka.Handler
	logger   *slog.Logger
}

func NewLocalBus(logger *slog.Logger) *LocalBus {
	return &LocalBus{
		handlers: make(map[string][]pkgkafka.Handler),
		logger:   logger,
	}
}

// Subscribe registers h for topic.
func (b *LocalBus) Subscribe(topic string, h pkgkafka.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish hands event to every handler of topic. Handler errors are joined.
func (b *LocalBus) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	b.mu.RLock()
	handlers := b.handlers[topic]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.DebugContext(ctx, "no local handlers for topic", slog.String("topic", topic))
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("handle %s: %w", event.EventType, err))
		}
	}
	return errors.Join(errs...)
}

var _ pkgkafka.Publisher = (*LocalBus)(nil)
