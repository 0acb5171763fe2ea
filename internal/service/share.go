package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/repository"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
	"github.com/smogalia/list-gift/pkg/validator"
)

// ShareService grants view access to wishlists by email.
type ShareService struct {
	wishlists repository.WishlistRepository
	shares    repository.ShareRepository
	changes   ChangePublisher
	events    NotificationPublisher
	baseURL   string
	logger    *slog.Logger
}

func NewShareService(
	wishlists repository.WishlistRepository,
	shares repository.ShareRepository,
	changes ChangePublisher,
	events NotificationPublisher,
	baseURL string,
	logger *slog.Logger,
) *ShareService {
	return &ShareService{
		wishlists: wishlists,
		shares:    shares,
		changes:   changes,
		events:    events,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// ShareWishlist gives email view access to a wishlist of v and sends an
// invite.
func (s *ShareService) ShareWishlist(ctx context.Context, v domain.Viewer, wishlistID, email string) (*domain.Share, error) {
	if err := requireSignedIn(v, "share wishlists"); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	if !validator.ValidEmail(email) {
		return nil, apperrors.InvalidInput("a valid email is required")
	}
	w, err := ownedWishlist(ctx, s.wishlists, v, wishlistID)
	if err != nil {
		return nil, err
	}

	share := &domain.Share{
		ID:         uuid.New().String(),
		WishlistID: w.ID,
		Email:      email,
		AccessType: domain.AccessView,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.shares.Create(ctx, share); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, &apperrors.AppError{
				Code:    "ALREADY_EXISTS",
				Message: "already shared with this email",
				Status:  http.StatusConflict,
				Err:     apperrors.ErrAlreadyExists,
			}
		}
		return nil, fmt.Errorf("create share: %w", err)
	}

	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableShares, domain.OpInsert, share.ID, w.ID))
	if err := s.events.PublishShareCreated(ctx, share, w, s.ShareLink(w)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish share.created event",
			slog.String("share_id", share.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wishlist shared",
		slog.String("wishlist_id", w.ID),
		slog.String("share_id", share.ID),
	)
	return share, nil
}

// ListShares returns the shares of a wishlist of v.
func (s *ShareService) ListShares(ctx context.Context, v domain.Viewer, wishlistID string) ([]domain.Share, *domain.Wishlist, error) {
	if err := requireSignedIn(v, "see shares"); err != nil {
		return nil, nil, err
	}
	w, err := ownedWishlist(ctx, s.wishlists, v, wishlistID)
	if err != nil {
		return nil, nil, err
	}
	shares, err := s.shares.ListByWishlist(ctx, w.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, w, nil
}

// ShareLink is the public address of w.
func (s *ShareService) ShareLink(w *domain.Wishlist) string {
	return s.baseURL + "/shared/" + w.ID
}
