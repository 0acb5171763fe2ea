package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/smogalia/list-gift/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// --- Mock Session Store ---

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Save(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionStore) DeleteAllForUser(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock Wishlist Repository ---

type mockWishlistRepository struct {
	mock.Mock
}

func (m *mockWishlistRepository) Create(ctx context.Context, w *domain.Wishlist) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *mockWishlistRepository) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the service can mutate it freely.
	w := *args.Get(0).(*domain.Wishlist)
	return &w, args.Error(1)
}

func (m *mockWishlistRepository) Update(ctx context.Context, w *domain.Wishlist) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *mockWishlistRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockWishlistRepository) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]domain.WishlistSummary, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.WishlistSummary), args.Int(1), args.Error(2)
}

// --- Mock Item Repository ---

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) Create(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	it := *args.Get(0).(*domain.Item)
	return &it, args.Error(1)
}

func (m *mockItemRepository) Update(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockItemRepository) ListByWishlist(ctx context.Context, wishlistID string) ([]domain.Item, error) {
	args := m.Called(ctx, wishlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

// --- Mock Reservation Repository ---

type mockReservationRepository struct {
	mock.Mock
}

func (m *mockReservationRepository) Create(ctx context.Context, r *domain.Reservation) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

func (m *mockReservationRepository) Delete(ctx context.Context, itemID, reservedBy string) (string, error) {
	args := m.Called(ctx, itemID, reservedBy)
	return args.String(0), args.Error(1)
}

func (m *mockReservationRepository) ReservedItemIDs(ctx context.Context, itemIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockReservationRepository) ListByReserver(ctx context.Context, itemIDs []string, reservedBy string) ([]domain.Reservation, error) {
	args := m.Called(ctx, itemIDs, reservedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) DeleteExpired(ctx context.Context, now time.Time) ([]domain.ReleasedReservation, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReleasedReservation), args.Error(1)
}

// --- Mock Share Repository ---

type mockShareRepository struct {
	mock.Mock
}

func (m *mockShareRepository) Create(ctx context.Context, s *domain.Share) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockShareRepository) ListByWishlist(ctx context.Context, wishlistID string) ([]domain.Share, error) {
	args := m.Called(ctx, wishlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Share), args.Error(1)
}

func (m *mockShareRepository) Exists(ctx context.Context, wishlistID, email string) (bool, error) {
	args := m.Called(ctx, wishlistID, email)
	return args.Bool(0), args.Error(1)
}

// --- Recording publisher ---

// recordingPublisher satisfies ChangePublisher and NotificationPublisher.
type recordingPublisher struct {
	mu       sync.Mutex
	changes  []domain.Change
	shares   []*domain.Share
	resets   []string
	signups  []string
	failWith error
}

func (p *recordingPublisher) PublishChange(_ context.Context, c domain.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return p.failWith
}

func (p *recordingPublisher) PublishShareCreated(_ context.Context, share *domain.Share, _ *domain.Wishlist, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shares = append(p.shares, share)
	return p.failWith
}

func (p *recordingPublisher) PublishPasswordReset(_ context.Context, user *domain.User, token string, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, token)
	return p.failWith
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, user *domain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signups = append(p.signups, user.ID)
	return p.failWith
}

func (p *recordingPublisher) recorded() []domain.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Change(nil), p.changes...)
}

// --- Fixtures ---

var (
	ownerV    = domain.Viewer{UserID: "owner-1", Email: "owner@example.com"}
	guestV    = domain.Viewer{UserID: "guest-1", Email: "guest@example.com"}
	strangerV = domain.Viewer{UserID: "guest-2", Email: "stranger@example.com"}
	anonV     = domain.Viewer{}
)

func publicWishlist() *domain.Wishlist {
	return &domain.Wishlist{ID: "w-1", UserID: ownerV.UserID, Title: "Birthday", IsPublic: true}
}

func privateWishlist() *domain.Wishlist {
	return &domain.Wishlist{ID: "w-2", UserID: ownerV.UserID, Title: "Secret"}
}

func itemOn(w *domain.Wishlist, id string) *domain.Item {
	return &domain.Item{ID: id, WishlistID: w.ID, Title: "Item " + id, Priority: domain.DefaultPriority}
}

func ptr[T any](v T) *T { return &v }
