package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/repository"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// ChangePublisher fans row changes out to live list views.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c domain.Change) error
}

// NotificationPublisher emits events the notifier turns into emails.
type NotificationPublisher interface {
	PublishShareCreated(ctx context.Context, share *domain.Share, wishlist *domain.Wishlist, link string) error
	PublishPasswordReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error
	PublishUserRegistered(ctx context.Context, user *domain.User) error
}

func requireSignedIn(v domain.Viewer, action string) error {
	if v.Anonymous() {
		return apperrors.Unauthenticated("sign in to " + action)
	}
	return nil
}

// ownedWishlist loads id and checks that v owns it.
func ownedWishlist(ctx context.Context, repo repository.WishlistRepository, v domain.Viewer, id string) (*domain.Wishlist, error) {
	w, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	if !v.Owns(w) {
		return nil, apperrors.Forbidden("only the owner can change this wishlist")
	}
	return w, nil
}

// publishChange logs publish failures; the write already succeeded and
// views converge on their next poll.
func publishChange(ctx context.Context, p ChangePublisher, logger *slog.Logger, c domain.Change) {
	if err := p.PublishChange(ctx, c); err != nil {
		logger.ErrorContext(ctx, "failed to publish change",
			slog.String("wishlist_id", c.WishlistID),
			slog.String("table", c.Table),
			slog.String("op", c.Op),
			slog.String("error", err.Error()),
		)
	}
}

// invalidInput turns domain validation errors into InvalidInput.
func invalidInput(err error) error {
	for _, target := range []error{
		domain.ErrTitleRequired, domain.ErrTitleTooLong, domain.ErrNegativePrice,
		domain.ErrPriorityRange, domain.ErrInvalidURL,
	} {
		if errors.Is(err, target) {
			return apperrors.InvalidInput(err.Error())
		}
	}
	return err
}
