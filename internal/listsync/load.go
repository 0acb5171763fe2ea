package listsync

import (
	"context"
	"fmt"
	"time"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/repository"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// Gateway is the read side of persistence a view is built from.
type Gateway interface {
	GetWishlist(ctx context.Context, id string) (*domain.Wishlist, error)
	IsSharedWith(ctx context.Context, wishlistID, email string) (bool, error)
	ListItems(ctx context.Context, wishlistID string) ([]domain.Item, error)
	// ReservedItemIDs must not expose who holds a reservation.
	ReservedItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error)
	ListReservationsBy(ctx context.Context, itemIDs []string, reservedBy string) ([]domain.Reservation, error)
}

// RepositoryGateway adapts the repositories to Gateway.
type RepositoryGateway struct {
	Wishlists    repository.WishlistRepository
	Items        repository.ItemRepository
	Reservations repository.ReservationRepository
	Shares       repository.ShareRepository
}

func (g *RepositoryGateway) GetWishlist(ctx context.Context, id string) (*domain.Wishlist, error) {
	return g.Wishlists.GetByID(ctx, id)
}

func (g *RepositoryGateway) IsSharedWith(ctx context.Context, wishlistID, email string) (bool, error) {
	return g.Shares.Exists(ctx, wishlistID, domain.NormalizeEmail(email))
}

func (g *RepositoryGateway) ListItems(ctx context.Context, wishlistID string) ([]domain.Item, error) {
	return g.Items.ListByWishlist(ctx, wishlistID)
}

func (g *RepositoryGateway) ReservedItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error) {
	return g.Reservations.ReservedItemIDs(ctx, itemIDs)
}

func (g *RepositoryGateway) ListReservationsBy(ctx context.Context, itemIDs []string, reservedBy string) ([]domain.Reservation, error) {
	return g.Reservations.ListByReserver(ctx, itemIDs, reservedBy)
}

// Snapshot is one rendering of a wishlist for one viewer.
type Snapshot struct {
	Wishlist domain.Wishlist   `json:"wishlist"`
	Items    []domain.ItemView `json:"items"`
	IsOwner  bool              `json:"is_owner"`
	// Seq is the sequence number of the authoritative load the snapshot
	// derives from.
	Seq uint64 `json:"seq"`
	// Optimistic is set when local mutations were applied on top of the
	// last authoritative load.
	Optimistic bool `json:"optimistic"`
	// Gone is set when the wishlist was deleted or is no longer visible.
	Gone     bool      `json:"gone,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s Snapshot) clone() Snapshot {
	s.Items = append([]domain.ItemView(nil), s.Items...)
	return s
}

// Item returns the view of itemID.
func (s Snapshot) Item(itemID string) (domain.ItemView, bool) {
	for _, it := range s.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return domain.ItemView{}, false
}

// AuthorizeView fetches wishlistID and checks viewer may see it. A
// wishlist the viewer may not see is reported as NotFound.
func AuthorizeView(ctx context.Context, gw Gateway, viewer domain.Viewer, wishlistID string) (*domain.Wishlist, error) {
	w, err := gw.GetWishlist(ctx, wishlistID)
	if err != nil {
		return nil, err
	}
	if viewer.Owns(w) || w.IsPublic {
		return w, nil
	}

	shared := false
	if !viewer.Anonymous() && viewer.Email != "" {
		if shared, err = gw.IsSharedWith(ctx, w.ID, viewer.Email); err != nil {
			return nil, err
		}
	}
	if !domain.CanView(viewer, w, shared) {
		return nil, apperrors.NotFound("wishlist", wishlistID)
	}
	return w, nil
}

// Load builds the authoritative snapshot of wishlistID for viewer: the
// wishlist, its items and their reservation state joined by item id. The
// owner and anonymous viewers only learn whether an item is reserved; a
// signed-in visitor also gets the detail of the reservations they hold.
func Load(ctx context.Context, gw Gateway, viewer domain.Viewer, wishlistID string) (Snapshot, error) {
	w, err := AuthorizeView(ctx, gw, viewer, wishlistID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load wishlist: %w", err)
	}

	items, err := gw.ListItems(ctx, w.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load items: %w", err)
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	reserved, err := gw.ReservedItemIDs(ctx, ids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load reservation state: %w", err)
	}

	isOwner := viewer.Owns(w)
	var own map[string]*domain.Reservation
	if !isOwner && !viewer.Anonymous() {
		mine, err := gw.ListReservationsBy(ctx, ids, viewer.UserID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load own reservations: %w", err)
		}
		own = make(map[string]*domain.Reservation, len(mine))
		for i := range mine {
			own[mine[i].ItemID] = &mine[i]
		}
	}

	return Snapshot{
		Wishlist: *w,
		Items:    domain.ProjectItems(items, reserved, own),
		IsOwner:  isOwner,
		LoadedAt: time.Now().UTC(),
	}, nil
}
