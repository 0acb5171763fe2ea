package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/repository"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// ReservationService runs the reservation state machine of items. An item
// is Available without a reservation row and Reserved with exactly one; the
// unique item_id constraint makes concurrent reserves race safely in the
// database.
type ReservationService struct {
	items        repository.ItemRepository
	wishlists    repository.WishlistRepository
	shares       repository.ShareRepository
	reservations repository.ReservationRepository
	changes      ChangePublisher
	ttl          time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService creates the service. A ttl above zero makes new
// reservations expire.
func NewReservationService(
	items repository.ItemRepository,
	wishlists repository.WishlistRepository,
	shares repository.ShareRepository,
	reservations repository.ReservationRepository,
	changes ChangePublisher,
	ttl time.Duration,
	logger *slog.Logger,
) *ReservationService {
	return &ReservationService{
		items:        items,
		wishlists:    wishlists,
		shares:       shares,
		reservations: reservations,
		changes:      changes,
		ttl:          ttl,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// Reserve claims itemID for v.
func (s *ReservationService) Reserve(ctx context.Context, v domain.Viewer, itemID string) (*domain.Reservation, error) {
	if err := requireSignedIn(v, "reserve items"); err != nil {
		return nil, err
	}
	item, w, err := s.itemAndWishlist(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if v.Owns(w) {
		return nil, apperrors.Forbidden("you cannot reserve items on your own wishlist")
	}
	if err := s.checkVisible(ctx, v, w, itemID); err != nil {
		return nil, err
	}

	now := s.now()
	r := &domain.Reservation{
		ID:          uuid.New().String(),
		ItemID:      item.ID,
		ReservedBy:  v.UserID,
		IsAnonymous: true,
		CreatedAt:   now,
	}
	if s.ttl > 0 {
		expires := now.Add(s.ttl)
		r.ExpiresAt = &expires
	}

	created, err := s.reservations.Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	if !created {
		return nil, apperrors.Conflict("item is already reserved")
	}
	publishChange(ctx, s.changes, s.logger,
		domain.NewReservationChange(domain.OpInsert, r.ID, item.ID, w.ID, v.UserID))

	s.logger.InfoContext(ctx, "item reserved",
		slog.String("item_id", item.ID),
		slog.String("wishlist_id", w.ID),
	)
	return r, nil
}

// Unreserve releases the reservation v holds on itemID. Nobody can release
// another user's reservation.
func (s *ReservationService) Unreserve(ctx context.Context, v domain.Viewer, itemID string) error {
	if err := requireSignedIn(v, "release reservations"); err != nil {
		return err
	}
	item, w, err := s.itemAndWishlist(ctx, itemID)
	if err != nil {
		return err
	}
	if v.Owns(w) {
		return apperrors.Forbidden("owners do not hold reservations on their own wishlist")
	}

	reservationID, err := s.reservations.Delete(ctx, item.ID, v.UserID)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if reservationID == "" {
		return apperrors.Forbidden("you can only release your own reservation")
	}
	publishChange(ctx, s.changes, s.logger,
		domain.NewReservationChange(domain.OpDelete, reservationID, item.ID, w.ID, v.UserID))

	s.logger.InfoContext(ctx, "item released",
		slog.String("item_id", item.ID),
		slog.String("wishlist_id", w.ID),
	)
	return nil
}

// Status returns the view of one item for v. The owner only learns whether
// the item is reserved.
func (s *ReservationService) Status(ctx context.Context, v domain.Viewer, itemID string) (domain.ItemView, error) {
	item, w, err := s.itemAndWishlist(ctx, itemID)
	if err != nil {
		return domain.ItemView{}, err
	}
	if err := s.checkVisible(ctx, v, w, itemID); err != nil {
		return domain.ItemView{}, err
	}

	reserved, err := s.reservations.ReservedItemIDs(ctx, []string{item.ID})
	if err != nil {
		return domain.ItemView{}, fmt.Errorf("load reservation state: %w", err)
	}

	var own map[string]*domain.Reservation
	if !v.Anonymous() && !v.Owns(w) {
		mine, err := s.reservations.ListByReserver(ctx, []string{item.ID}, v.UserID)
		if err != nil {
			return domain.ItemView{}, fmt.Errorf("load own reservation: %w", err)
		}
		own = make(map[string]*domain.Reservation, len(mine))
		for i := range mine {
			own[mine[i].ItemID] = &mine[i]
		}
	}

	return domain.ProjectItems([]domain.Item{*item}, reserved, own)[0], nil
}

// ReleaseExpired deletes expired reservations and reports how many were
// released.
func (s *ReservationService) ReleaseExpired(ctx context.Context) (int, error) {
	released, err := s.reservations.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired reservations: %w", err)
	}
	for _, r := range released {
		publishChange(ctx, s.changes, s.logger,
			domain.NewReservationChange(domain.OpDelete, r.ID, r.ItemID, r.WishlistID, r.ReservedBy))
	}
	if len(released) > 0 {
		s.logger.InfoContext(ctx, "expired reservations released", slog.Int("count", len(released)))
	}
	return len(released), nil
}

// TTL is the lifetime of new reservations; zero means they never expire.
func (s *ReservationService) TTL() time.Duration { return s.ttl }

func (s *ReservationService) itemAndWishlist(ctx context.Context, itemID string) (*domain.Item, *domain.Wishlist, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("get item: %w", err)
	}
	w, err := s.wishlists.GetByID(ctx, item.WishlistID)
	if err != nil {
		return nil, nil, fmt.Errorf("get wishlist: %w", err)
	}
	return item, w, nil
}

// checkVisible hides items of wishlists v may not see behind NotFound.
func (s *ReservationService) checkVisible(ctx context.Context, v domain.Viewer, w *domain.Wishlist, itemID string) error {
	shared := false
	if !v.Owns(w) && !w.IsPublic && !v.Anonymous() {
		var err error
		shared, err = s.shares.Exists(ctx, w.ID, domain.NormalizeEmail(v.Email))
		if err != nil {
			return fmt.Errorf("check share: %w", err)
		}
	}
	if !domain.CanView(v, w, shared) {
		return apperrors.NotFound("item", itemID)
	}
	return nil
}
