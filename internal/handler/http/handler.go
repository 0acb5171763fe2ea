package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/listsync"
	"github.com/smogalia/list-gift/internal/service"
	"github.com/smogalia/list-gift/pkg/httputil"
	"github.com/smogalia/list-gift/pkg/middleware"
	"github.com/smogalia/list-gift/pkg/pagination"
)

// AuthService is the session provider behind the auth routes.
type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*domain.User, *domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, token string) (*domain.Identity, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type WishlistService interface {
	Create(ctx context.Context, v domain.Viewer, input service.CreateWishlistInput) (*domain.Wishlist, error)
	Update(ctx context.Context, v domain.Viewer, id string, input service.UpdateWishlistInput) (*domain.Wishlist, error)
	Delete(ctx context.Context, v domain.Viewer, id string) error
	Get(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error)
	GetShared(ctx context.Context, v domain.Viewer, id string) (listsync.Snapshot, error)
	List(ctx context.Context, v domain.Viewer, p pagination.Params) (pagination.Result[domain.WishlistSummary], error)
}

type ItemService interface {
	Create(ctx context.Context, v domain.Viewer, wishlistID string, input service.CreateItemInput) (*domain.Item, error)
	Update(ctx context.Context, v domain.Viewer, itemID string, input service.UpdateItemInput) (*domain.Item, error)
	Delete(ctx context.Context, v domain.Viewer, itemID string) error
}

type ShareService interface {
	ShareWishlist(ctx context.Context, v domain.Viewer, wishlistID, email string) (*domain.Share, error)
	ListShares(ctx context.Context, v domain.Viewer, wishlistID string) ([]domain.Share, *domain.Wishlist, error)
	ShareLink(w *domain.Wishlist) string
}

type ReservationService interface {
	Reserve(ctx context.Context, v domain.Viewer, itemID string) (*domain.Reservation, error)
	Unreserve(ctx context.Context, v domain.Viewer, itemID string) error
	Status(ctx context.Context, v domain.Viewer, itemID string) (domain.ItemView, error)
}

// EventStreamer serves a live wishlist stream.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, viewer domain.Viewer, wishlistID string, ownerOnly bool)
}

// viewer returns the signed-in user of r, or the anonymous viewer.
func viewer(r *http.Request) domain.Viewer {
	c := middleware.ClaimsFromContext(r.Context())
	if c == nil {
		return domain.Viewer{}
	}
	return domain.Viewer{UserID: c.UserID, Email: c.Email}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return token
}

// pathID parses a UUID path parameter, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, raw string) (string, bool) {
	id, ok := httputil.ParseUUID(w, raw)
	if !ok {
		return "", false
	}
	return id.String(), true
}
