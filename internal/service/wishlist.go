package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/listsync"
	"github.com/smogalia/list-gift/internal/repository"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
	"github.com/smogalia/list-gift/pkg/pagination"
)

// WishlistService manages wishlists and builds their item views.
type WishlistService struct {
	wishlists repository.WishlistRepository
	gateway   listsync.Gateway
	changes   ChangePublisher
	logger    *slog.Logger
}

func NewWishlistService(
	wishlists repository.WishlistRepository,
	gateway listsync.Gateway,
	changes ChangePublisher,
	logger *slog.Logger,
) *WishlistService {
	return &WishlistService{
		wishlists: wishlists,
		gateway:   gateway,
		changes:   changes,
		logger:    logger,
	}
}

// CreateWishlistInput holds the fields of a new wishlist. EventDate is
// YYYY-MM-DD.
type CreateWishlistInput struct {
	Title       string
	Description string
	EventDate   *string
	IsPublic    bool
}

// UpdateWishlistInput changes only the non-nil fields. An empty EventDate
// clears the date.
type UpdateWishlistInput struct {
	Title       *string
	Description *string
	EventDate   *string
	IsPublic    *bool
}

// Create adds a wishlist owned by v.
func (s *WishlistService) Create(ctx context.Context, v domain.Viewer, input CreateWishlistInput) (*domain.Wishlist, error) {
	if err := requireSignedIn(v, "create wishlists"); err != nil {
		return nil, err
	}

	eventDate, err := parseEventDate(input.EventDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	w := &domain.Wishlist{
		ID:          uuid.New().String(),
		UserID:      v.UserID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		EventDate:   eventDate,
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	if err := s.wishlists.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}
	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableWishlists, domain.OpInsert, w.ID, w.ID))

	s.logger.InfoContext(ctx, "wishlist created",
		slog.String("wishlist_id", w.ID),
		slog.String("user_id", v.UserID),
	)
	return w, nil
}

// Update edits a wishlist of v.
func (s *WishlistService) Update(ctx context.Context, v domain.Viewer, id string, input UpdateWishlistInput) (*domain.Wishlist, error) {
	if err := requireSignedIn(v, "edit wishlists"); err != nil {
		return nil, err
	}
	w, err := ownedWishlist(ctx, s.wishlists, v, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		w.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		w.Description = strings.TrimSpace(*input.Description)
	}
	if input.EventDate != nil {
		if w.EventDate, err = parseEventDate(input.EventDate); err != nil {
			return nil, err
		}
	}
	if input.IsPublic != nil {
		w.IsPublic = *input.IsPublic
	}
	if err := w.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	w.UpdatedAt = time.Now().UTC()

	if err := s.wishlists.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("update wishlist: %w", err)
	}
	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableWishlists, domain.OpUpdate, w.ID, w.ID))

	s.logger.InfoContext(ctx, "wishlist updated", slog.String("wishlist_id", w.ID))
	return w, nil
}

// Delete removes a wishlist of v with its items, reservations and shares.
func (s *WishlistService) Delete(ctx context.Context, v domain.Viewer, id string) error {
	if err := requireSignedIn(v, "delete wishlists"); err != nil {
		return err
	}
	if _, err := ownedWishlist(ctx, s.wishlists, v, id); err != nil {
		return err
	}

	if err := s.wishlists.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}
	publishChange(ctx, s.changes, s.logger, domain.NewChange(domain.TableWishlists, domain.OpDelete, id, id))

	s.logger.InfoContext(ctx, "wishlist deleted", slog.String("wishlist_id", id))
	return nil
}

// Get returns the owner's view of a wishlist.
func (s *WishlistService) Get(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error) {
	if err := requireSignedIn(v, "manage wishlists"); err != nil {
		return listsync.Snapshot{}, err
	}
	snap, err := s.load(ctx, v, id)
	if err != nil {
		return listsync.Snapshot{}, err
	}
	if !snap.IsOwner {
		return listsync.Snapshot{}, apperrors.Forbidden("only the owner can manage this wishlist")
	}
	return snap, nil
}

// GetShared returns the view of a wishlist for any viewer allowed to see it.
func (s *WishlistService) GetShared(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error) {
	return s.load(ctx, v, id)
}

func (s *WishlistService) load(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error) {
	syncer := listsync.NewSyncer(s.gateway, nil, v, id, listsync.Options{Logger: s.logger})
	defer syncer.Close()
	return syncer.Load(ctx)
}

// List returns one dashboard page of v's wishlists.
func (s *WishlistService) List(ctx context.Context, v domain.Viewer, p pagination.Params) (pagination.Result[domain.WishlistSummary], error) {
	if err := requireSignedIn(v, "see your wishlists"); err != nil {
		return pagination.Result[domain.WishlistSummary]{}, err
	}
	rows, total, err := s.wishlists.ListByOwner(ctx, v.UserID, p.Limit(), p.Offset())
	if err != nil {
		return pagination.Result[domain.WishlistSummary]{}, fmt.Errorf("list wishlists: %w", err)
	}
	return pagination.NewResult(rows, total, p), nil
}

func parseEventDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperrors.InvalidInput("event date must be YYYY-MM-DD")
	}
	return &d, nil
}
