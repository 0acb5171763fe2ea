package listsync

import (
	"context"
	"sync"

	"github.com/smogalia/list-gift/internal/domain"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// memGateway is an in-memory Gateway. It records whether the reserver
// identity was ever read for the owner.
type memGateway struct {
	mu           sync.Mutex
	wishlists    map[string]*domain.Wishlist
	items        map[string][]domain.Item
	reservations map[string]domain.Reservation // by item id
	shares       map[string]map[string]bool
	byReserver   []string // reservedBy arguments of ListReservationsBy
	beforeLoad   func()
	failItems    error
}

func newMemGateway() *memGateway {
	return &memGateway{
		wishlists:    map[string]*domain.Wishlist{},
		items:        map[string][]domain.Item{},
		reservations: map[string]domain.Reservation{},
		shares:       map[string]map[string]bool{},
	}
}

func (g *memGateway) GetWishlist(_ context.Context, id string) (*domain.Wishlist, error) {
	g.mu.Lock()
	hook := g.beforeLoad
	g.mu.Unlock()
	if hook != nil {
		hook()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.wishlists[id]
	if !ok {
		return nil, apperrors.NotFound("wishlist", id)
	}
	cp := *w
	return &cp, nil
}

func (g *memGateway) IsSharedWith(_ context.Context, wishlistID, email string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shares[wishlistID][email], nil
}

func (g *memGateway) ListItems(_ context.Context, wishlistID string) ([]domain.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failItems != nil {
		return nil, g.failItems
	}
	return append([]domain.Item(nil), g.items[wishlistID]...), nil
}

func (g *memGateway) ReservedItemIDs(_ context.Context, itemIDs []string) (map[string]bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := map[string]bool{}
	for _, id := range itemIDs {
		if _, ok := g.reservations[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (g *memGateway) ListReservationsBy(_ context.Context, itemIDs []string, reservedBy string) ([]domain.Reservation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byReserver = append(g.byReserver, reservedBy)
	var out []domain.Reservation
	for _, id := range itemIDs {
		if r, ok := g.reservations[id]; ok && r.ReservedBy == reservedBy {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *memGateway) addWishlist(w domain.Wishlist, items ...domain.Item) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.wishlists[w.ID] = &w
	g.items[w.ID] = items
}

func (g *memGateway) reserve(itemID, by string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reservations[itemID] = domain.Reservation{ID: "r-" + itemID, ItemID: itemID, ReservedBy: by, IsAnonymous: true}
}

func (g *memGateway) unreserve(itemID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.reservations, itemID)
}

func (g *memGateway) deleteWishlist(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.wishlists, id)
}

func (g *memGateway) setBeforeLoad(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.beforeLoad = fn
}

var (
	owner   = domain.Viewer{UserID: "owner", Email: "owner@example.com"}
	visitor = domain.Viewer{UserID: "v1", Email: "v1@example.com"}
	other   = domain.Viewer{UserID: "v2", Email: "v2@example.com"}
	anon    = domain.Viewer{}
)

func fixture() *memGateway {
	g := newMemGateway()
	g.addWishlist(domain.Wishlist{ID: "w1", UserID: "owner", Title: "Birthday", IsPublic: true},
		domain.Item{ID: "a", WishlistID: "w1", Title: "A", Priority: 5},
		domain.Item{ID: "b", WishlistID: "w1", Title: "B", Priority: 3},
	)
	g.addWishlist(domain.Wishlist{ID: "private", UserID: "owner", Title: "Secret"})
	return g
}
