package repository

import (
	"context"
	"time"

	"github.com/smogalia/list-gift/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	// Create inserts a user. A taken email yields an AlreadyExists error.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// WishlistRepository persists wishlists.
type WishlistRepository interface {
	Create(ctx context.Context, w *domain.Wishlist) error
	GetByID(ctx context.Context, id string) (*domain.Wishlist, error)
	Update(ctx context.Context, w *domain.Wishlist) error
	// Delete removes the wishlist together with its items, reservations
	// and shares.
	Delete(ctx context.Context, id string) error
	// ListByOwner returns a page of the owner's wishlists, newest first,
	// and the total count.
	ListByOwner(ctx context.Context, userID string, limit, offset int) ([]domain.WishlistSummary, int, error)
}

// ItemRepository persists wishlist items.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	// ListByWishlist orders by priority descending, then creation time.
	ListByWishlist(ctx context.Context, wishlistID string) ([]domain.Item, error)
}

// ReservationRepository persists the reservation state of items.
type ReservationRepository interface {
	// Create inserts r unless the item is already reserved. It reports
	// whether a row was written.
	Create(ctx context.Context, r *domain.Reservation) (bool, error)
	// Delete removes the reservation of itemID held by reservedBy and
	// returns the removed reservation id, or "" when nothing matched.
	Delete(ctx context.Context, itemID, reservedBy string) (string, error)
	// ReservedItemIDs returns which of itemIDs are reserved. It never reads
	// who reserved them.
	ReservedItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error)
	// ListByReserver returns the reservations reservedBy holds among itemIDs.
	ListByReserver(ctx context.Context, itemIDs []string, reservedBy string) ([]domain.Reservation, error)
	// DeleteExpired removes reservations whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) ([]domain.ReleasedReservation, error)
}

// ShareRepository persists shares.
type ShareRepository interface {
	// Create inserts a share. A duplicate (wishlist, email) yields an
	// AlreadyExists error.
	Create(ctx context.Context, s *domain.Share) error
	ListByWishlist(ctx context.Context, wishlistID string) ([]domain.Share, error)
	Exists(ctx context.Context, wishlistID, email string) (bool, error)
}

// SessionStore keeps the authoritative session records.
type SessionStore interface {
	Save(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteAllForUser revokes every session of userID and returns their ids.
	DeleteAllForUser(ctx context.Context, userID string) ([]string, error)
}
