package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/listsync"
	"github.com/smogalia/list-gift/internal/notify"
	pkgkafka "github.com/smogalia/list-gift/pkg/kafka"
)

// NotifierGroupID is shared by all instances so each notification is sent
// once. Change consumers use a per-instance group instead.
const NotifierGroupID = "giftregistry-notifier"

const (
	syncGroupPrefix = "giftregistry-sync-"
	idempotencyTTL  = 24 * time.Hour
)

// ConsumerHandler routes incoming events to the change hub or the sender.
type ConsumerHandler struct {
	hub     *listsync.Hub
	sender  notify.Sender
	baseURL string
	logger  *slog.Logger
}

// NewConsumerHandler creates a handler. baseURL is used to build reset links.
func NewConsumerHandler(hub *listsync.Hub, sender notify.Sender, baseURL string, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		hub:     hub,
		sender:  sender,
		baseURL: baseURL,
		logger:  logger,
	}
}

// HandleChange forwards a wishlist change to local subscribers.
func (h *ConsumerHandler) HandleChange(ctx context.Context, event *pkgkafka.Event) error {
	var c domain.Change
	if err := event.UnmarshalData(&c); err != nil {
		return fmt.Errorf("decode change %s: %w", event.EventID, err)
	}
	h.hub.Publish(c)
	return nil
}

// HandleNotification turns share and account events into email messages.
func (h *ConsumerHandler) HandleNotification(ctx context.Context, event *pkgkafka.Event) error {
	msg, err := h.message(event)
	if err != nil {
		return err
	}
	if msg == nil {
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s via %s: %w", msg.Kind, h.sender.Name(), err)
	}
	return nil
}

func (h *ConsumerHandler) message(event *pkgkafka.Event) (*notify.Message, error) {
	switch event.EventType {
	case TopicShareCreated:
		var d ShareCreatedData
		if err := event.UnmarshalData(&d); err != nil {
			return nil, fmt.Errorf("decode share.created: %w", err)
		}
		return &notify.Message{
			Kind:    notify.KindShareInvite,
			To:      d.Email,
			Subject: fmt.Sprintf("A wishlist was shared with you: %s", d.WishlistTitle),
			Body:    "Open the list: " + d.Link,
			Ref:     d.WishlistID,
		}, nil
	case TopicPasswordReset:
		var d PasswordResetData
		if err := event.UnmarshalData(&d); err != nil {
			return nil, fmt.Errorf("decode user.password_reset: %w", err)
		}
		return &notify.Message{
			Kind:    notify.KindPasswordReset,
			To:      d.Email,
			Subject: "Reset your password",
			Body:    fmt.Sprintf("%s/reset-password?token=%s (valid until %s)", h.baseURL, d.Token, d.ExpiresAt.Format(time.RFC3339)),
			Ref:     d.UserID,
		}, nil
	case TopicUserRegistered:
		var d UserRegisteredData
		if err := event.UnmarshalData(&d); err != nil {
			return nil, fmt.Errorf("decode user.registered: %w", err)
		}
		return &notify.Message{
			Kind:    notify.KindWelcome,
			To:      d.Email,
			Subject: "Welcome, " + d.DisplayName,
			Body:    "Your gift registry account is ready.",
			Ref:     d.UserID,
		}, nil
	default:
		return nil, nil
	}
}

// NotificationTopics are the topics fed to HandleNotification.
var NotificationTopics = []string{TopicShareCreated, TopicPasswordReset, TopicUserRegistered}

// RegisterLocal wires the handler to an in-process bus.
func (h *ConsumerHandler) RegisterLocal(bus *LocalBus) {
	bus.Subscribe(TopicWishlistChanged, h.HandleChange)
	for _, topic := range NotificationTopics {
		bus.Subscribe(topic, h.HandleNotification)
	}
}

// NewConsumers creates the Kafka consumers of one instance: a change consumer
// in a group of its own, so every instance sees every change, and one shared
// notifier consumer per notification topic. Notification deliveries are
// deduplicated through Redis when a client is given.
func NewConsumers(brokers []string, h *ConsumerHandler, rdb *redis.Client, dlq *pkgkafka.DLQProducer, logger *slog.Logger) ([]*pkgkafka.Consumer, error) {
	instance, err := gonanoid.New(10)
	if err != nil {
		return nil, fmt.Errorf("generate instance id: %w", err)
	}

	changes := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:       brokers,
		GroupID:       syncGroupPrefix + instance,
		Topic:         TopicWishlistChanged,
		MinBytes:      1,
		MaxBytes:      10e6,
		StartAtLatest: true,
	}, pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), h.HandleChange, logger), logger)

	consumers := []*pkgkafka.Consumer{changes}

	var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	if rdb != nil {
		store = pkgkafka.NewRedisIdempotencyStore(rdb, "idem:notify", idempotencyTTL)
	}
	notifications := pkgkafka.IdempotentHandler(store, h.HandleNotification, logger)

	for _, topic := range NotificationTopics {
		consumers = append(consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  NotifierGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			DLQ:      dlq,
		}, notifications, logger))
	}
	return consumers, nil
}
