package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smogalia/list-gift/internal/domain"
	pkgkafka "github.com/smogalia/list-gift/pkg/kafka"
)

// Topics written by the API.
const (
	TopicWishlistChanged = "giftregistry.wishlist.changed"
	TopicShareCreated    = "giftregistry.share.created"
	TopicPasswordReset   = "giftregistry.user.password_reset"
	TopicUserRegistered  = "giftregistry.user.registered"
)

const (
	AggregateTypeWishlist = "wishlist"
	AggregateTypeUser     = "user"
)

// SourceAPI identifies events originating from this service.
const SourceAPI = "giftregistry-api"

// ShareCreatedData is the payload for a share.created event.
type ShareCreatedData struct {
	ShareID       string `json:"share_id"`
	WishlistID    string `json:"wishlist_id"`
	WishlistTitle string `json:"wishlist_title"`
	Email         string `json:"email"`
	Link          string `json:"link"`
}

// PasswordResetData is the payload for a user.password_reset event.
type PasswordResetData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Producer publishes domain events. The publisher is either the Kafka
// producer or a LocalBus.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishChange publishes a row change keyed by its wishlist so every change
// of one wishlist lands on the same partition.
func (p *Producer) PublishChange(ctx context.Context, c domain.Change) error {
	event, err := pkgkafka.NewEvent(TopicWishlistChanged, c.WishlistID, AggregateTypeWishlist, SourceAPI, c)
	if err != nil {
		return fmt.Errorf("create wishlist.changed event: %w", err)
	}
	if err := p.publisher.Publish(ctx, TopicWishlistChanged, event); err != nil {
		return fmt.Errorf("publish wishlist.changed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published wishlist.changed event",
		slog.String("wishlist_id", c.WishlistID),
		slog.String("table", c.Table),
		slog.String("op", c.Op),
		slog.String("row_id", c.RowID),
	)
	return nil
}

// PublishShareCreated publishes a share.created event.
func (p *Producer) PublishShareCreated(ctx context.Context, share *domain.Share, wishlist *domain.Wishlist, link string) error {
	data := ShareCreatedData{
		ShareID:       share.ID,
		WishlistID:    share.WishlistID,
		WishlistTitle: wishlist.Title,
		Email:         share.Email,
		Link:          link,
	}

	event, err := pkgkafka.NewEvent(TopicShareCreated, share.WishlistID, AggregateTypeWishlist, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create share.created event: %w", err)
	}
	if err := p.publisher.Publish(ctx, TopicShareCreated, event); err != nil {
		return fmt.Errorf("publish share.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published share.created event",
		slog.String("share_id", share.ID),
		slog.String("wishlist_id", share.WishlistID),
	)
	return nil
}

// PublishPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishPasswordReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error {
	data := PasswordResetData{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	event, err := pkgkafka.NewEvent(TopicPasswordReset, user.ID, AggregateTypeUser, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create user.password_reset event: %w", err)
	}
	if err := p.publisher.Publish(ctx, TopicPasswordReset, event); err != nil {
		return fmt.Errorf("publish user.password_reset event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.password_reset event", slog.String("user_id", user.ID))
	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}
	if err := p.publisher.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event", slog.String("user_id", user.ID))
	return nil
}
