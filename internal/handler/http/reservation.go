package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/metadata"
	"github.com/smogalia/list-gift/pkg/httputil"
	"github.com/smogalia/list-gift/pkg/validator"
)

// ReservationHandler handles the reservation state of single items.
type ReservationHandler struct {
	service ReservationService
	logger  *slog.Logger
}

func NewReservationHandler(svc ReservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{service: svc, logger: logger}
}

// Status handles GET /api/v1/items/{itemId}/reservation
func (h *ReservationHandler) Status(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}
	view, err := h.service.Status(r.Context(), viewer(r), itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// Reserve handles POST /api/v1/items/{itemId}/reservation
func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}
	res, err := h.service.Reserve(r.Context(), viewer(r), itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, res)
}

// Unreserve handles DELETE /api/v1/items/{itemId}/reservation
func (h *ReservationHandler) Unreserve(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}
	if err := h.service.Unreserve(r.Context(), viewer(r), itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"item_id": itemID, "reserved": false})
}

// MetadataHandler previews product links for the item form.
type MetadataHandler struct {
	extractor metadata.Extractor
	logger    *slog.Logger
}

func NewMetadataHandler(extractor metadata.Extractor, logger *slog.Logger) *MetadataHandler {
	return &MetadataHandler{extractor: extractor, logger: logger}
}

type MetadataRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// MetadataResponse carries whatever could be extracted. Warning is set when
// the page could not be read; the form then stays empty.
type MetadataResponse struct {
	Metadata *domain.LinkMetadata `json:"metadata"`
	Warning  string               `json:"warning,omitempty"`
}

// Extract handles POST /api/v1/metadata
func (h *MetadataHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req MetadataRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	meta, err := h.extractor.Extract(r.Context(), req.URL)
	switch {
	case errors.Is(err, metadata.ErrFetch):
		h.logger.WarnContext(r.Context(), "link metadata unavailable",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)
		httputil.WriteData(w, http.StatusOK, MetadataResponse{
			Metadata: &domain.LinkMetadata{URL: req.URL},
			Warning:  "FETCH_FAILED",
		})
	case err != nil:
		httputil.WriteError(w, r, err, h.logger)
	default:
		httputil.WriteData(w, http.StatusOK, MetadataResponse{Metadata: meta})
	}
}
