package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/service"
	"github.com/smogalia/list-gift/pkg/httputil"
	"github.com/smogalia/list-gift/pkg/pagination"
	"github.com/smogalia/list-gift/pkg/validator"
)

// WishlistHandler handles wishlist, item and share endpoints.
type WishlistHandler struct {
	wishlists WishlistService
	items     ItemService
	shares    ShareService
	streamer  EventStreamer
	logger    *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(
	wishlists WishlistService,
	items ItemService,
	shares ShareService,
	streamer EventStreamer,
	logger *slog.Logger,
) *WishlistHandler {
	return &WishlistHandler{
		wishlists: wishlists,
		items:     items,
		shares:    shares,
		streamer:  streamer,
		logger:    logger,
	}
}

// --- Request DTOs ---

// CreateWishlistRequest is the create form. EventDate is YYYY-MM-DD.
type CreateWishlistRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	EventDate   *string `json:"event_date"`
	IsPublic    bool    `json:"is_public"`
}

// UpdateWishlistRequest changes only the fields present. An empty
// event_date clears the date.
type UpdateWishlistRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	EventDate   *string `json:"event_date"`
	IsPublic    *bool   `json:"is_public"`
}

type CreateItemRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,max=2048"`
	ProductURL  *string  `json:"product_url" validate:"omitempty,max=2048"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Priority    *int     `json:"priority" validate:"omitempty,min=1,max=5"`
}

// UpdateItemRequest changes only the fields present. clear_price removes
// the price.
type UpdateItemRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,max=2048"`
	ProductURL  *string  `json:"product_url" validate:"omitempty,max=2048"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	ClearPrice  bool     `json:"clear_price"`
	Priority    *int     `json:"priority" validate:"omitempty,min=1,max=5"`
}

type ShareRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// --- Response types ---

type SharesResponse struct {
	Shares    []domain.Share `json:"shares"`
	ShareLink string         `json:"share_link"`
}

type ShareResponse struct {
	Share     *domain.Share `json:"share"`
	ShareLink string        `json:"share_link"`
}

// --- Wishlists ---

// List handles GET /api/v1/wishlists
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.wishlists.List(r.Context(), viewer(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Create handles POST /api/v1/wishlists
func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWishlistRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	wl, err := h.wishlists.Create(r.Context(), viewer(r), service.CreateWishlistInput{
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, wl)
}

// Get handles GET /api/v1/wishlists/{id}, the owner's view.
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	snap, err := h.wishlists.Get(r.Context(), viewer(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, snap)
}

// Update handles PUT /api/v1/wishlists/{id}
func (h *WishlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req UpdateWishlistRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	wl, err := h.wishlists.Update(r.Context(), viewer(r), id, service.UpdateWishlistInput{
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, wl)
}

// Delete handles DELETE /api/v1/wishlists/{id}
func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.wishlists.Delete(r.Context(), viewer(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Events handles GET /api/v1/wishlists/{id}/events
func (h *WishlistHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.streamer.Serve(w, r, viewer(r), id, true)
}

// --- Shared view ---

// GetShared handles GET /api/v1/shared/{id}. Anonymous visitors are
// welcome on public wishlists.
func (h *WishlistHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	snap, err := h.wishlists.GetShared(r.Context(), viewer(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, snap)
}

// SharedEvents handles GET /api/v1/shared/{id}/events
func (h *WishlistHandler) SharedEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.streamer.Serve(w, r, viewer(r), id, false)
}

// --- Items ---

// CreateItem handles POST /api/v1/wishlists/{id}/items
func (h *WishlistHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req CreateItemRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	item, err := h.items.Create(r.Context(), viewer(r), id, service.CreateItemInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		ProductURL:  req.ProductURL,
		Price:       req.Price,
		Priority:    req.Priority,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/wishlists/{id}/items/{itemId}
func (h *WishlistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	item, err := h.items.Update(r.Context(), viewer(r), itemID, service.UpdateItemInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		ProductURL:  req.ProductURL,
		Price:       req.Price,
		ClearPrice:  req.ClearPrice,
		Priority:    req.Priority,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/wishlists/{id}/items/{itemId}
func (h *WishlistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), viewer(r), itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": itemID, "status": "deleted"})
}

// --- Shares ---

// ListShares handles GET /api/v1/wishlists/{id}/shares
func (h *WishlistHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	shares, wl, err := h.shares.ListShares(r.Context(), viewer(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if shares == nil {
		shares = []domain.Share{}
	}
	httputil.WriteData(w, http.StatusOK, SharesResponse{Shares: shares, ShareLink: h.shares.ShareLink(wl)})
}

// Share handles POST /api/v1/wishlists/{id}/shares
func (h *WishlistHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req ShareRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	share, err := h.shares.ShareWishlist(r.Context(), viewer(r), id, req.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	link := h.shares.ShareLink(&domain.Wishlist{ID: share.WishlistID})
	httputil.WriteData(w, http.StatusCreated, ShareResponse{Share: share, ShareLink: link})
}
