package http

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/listsync"
	"github.com/smogalia/list-gift/internal/service"
	"github.com/smogalia/list-gift/pkg/pagination"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) SignUp(ctx context.Context, email, password, displayName string) (*domain.User, *domain.Session, error) {
	args := m.Called(ctx, email, password, displayName)
	return userArg(args, 0), sessionArg(args, 1), args.Error(2)
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	args := m.Called(ctx, email, password)
	return userArg(args, 0), sessionArg(args, 1), args.Error(2)
}

func (m *mockAuthService) SignOut(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, token string) (*domain.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}

func userArg(args mock.Arguments, i int) *domain.User {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*domain.User)
}

func sessionArg(args mock.Arguments, i int) *domain.Session {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*domain.Session)
}

type mockWishlistService struct{ mock.Mock }

func (m *mockWishlistService) Create(ctx context.Context, v domain.Viewer, input service.CreateWishlistInput) (*domain.Wishlist, error) {
	args := m.Called(ctx, v, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wishlist), args.Error(1)
}

func (m *mockWishlistService) Update(ctx context.Context, v domain.Viewer, id string, input service.UpdateWishlistInput) (*domain.Wishlist, error) {
	args := m.Called(ctx, v, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wishlist), args.Error(1)
}

func (m *mockWishlistService) Delete(ctx context.Context, v domain.Viewer, id string) error {
	return m.Called(ctx, v, id).Error(0)
}

func (m *mockWishlistService) Get(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error) {
	args := m.Called(ctx, v, id)
	return args.Get(0).(listsync.Snapshot), args.Error(1)
}

func (m *mockWishlistService) GetShared(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error) {
	args := m.Called(ctx, v, id)
	return args.Get(0).(listsync.Snapshot), args.Error(1)
}

func (m *mockWishlistService) List(ctx context.Context, v domain.Viewer, p pagination.Params) (pagination.Result[domain.WishlistSummary], error) {
	args := m.Called(ctx, v, p)
	return args.Get(0).(pagination.Result[domain.WishlistSummary]), args.Error(1)
}

type mockItemService struct{ mock.Mock }

func (m *mockItemService) Create(ctx context.Context, v domain.Viewer, wishlistID string, input service.CreateItemInput) (*domain.Item, error) {
	args := m.Called(ctx, v, wishlistID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemService) Update(ctx context.Context, v domain.Viewer, itemID string, input service.UpdateItemInput) (*domain.Item, error) {
	args := m.Called(ctx, v, itemID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemService) Delete(ctx context.Context, v domain.Viewer, itemID string) error {
	return m.Called(ctx, v, itemID).Error(0)
}

type mockShareService struct{ mock.Mock }

func (m *mockShareService) ShareWishlist(ctx context.Context, v domain.Viewer, wishlistID, email string) (*domain.Share, error) {
	args := m.Called(ctx, v, wishlistID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Share), args.Error(1)
}

func (m *mockShareService) ListShares(ctx context.Context, v domain.Viewer, wishlistID string) ([]domain.Share, *domain.Wishlist, error) {
	args := m.Called(ctx, v, wishlistID)
	var shares []domain.Share
	if args.Get(0) != nil {
		shares = args.Get(0).([]domain.Share)
	}
	var w *domain.Wishlist
	if args.Get(1) != nil {
		w = args.Get(1).(*domain.Wishlist)
	}
	return shares, w, args.Error(2)
}

func (m *mockShareService) ShareLink(w *domain.Wishlist) string {
	return "https://gifts.example.com/shared/" + w.ID
}

type mockReservationService struct{ mock.Mock }

func (m *mockReservationService) Reserve(ctx context.Context, v domain.Viewer, itemID string) (*domain.Reservation, error) {
	args := m.Called(ctx, v, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *mockReservationService) Unreserve(ctx context.Context, v domain.Viewer, itemID string) error {
	return m.Called(ctx, v, itemID).Error(0)
}

func (m *mockReservationService) Status(ctx context.Context, v domain.Viewer, itemID string) (domain.ItemView, error) {
	args := m.Called(ctx, v, itemID)
	return args.Get(0).(domain.ItemView), args.Error(1)
}

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) Extract(ctx context.Context, rawURL string) (*domain.LinkMetadata, error) {
	args := m.Called(ctx, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkMetadata), args.Error(1)
}

// streamCall records one Serve invocation.
type streamCall struct {
	viewer     domain.Viewer
	wishlistID string
	ownerOnly  bool
}

type fakeStreamer struct {
	calls []streamCall
}

func (f *fakeStreamer) Serve(w http.ResponseWriter, _ *http.Request, v domain.Viewer, wishlistID string, ownerOnly bool) {
	f.calls = append(f.calls, streamCall{viewer: v, wishlistID: wishlistID, ownerOnly: ownerOnly})
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
}
