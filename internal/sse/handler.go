// Package sse streams live wishlist snapshots over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/listsync"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
	"github.com/smogalia/list-gift/pkg/httputil"
)

const (
	// DefaultHeartbeat keeps proxies from timing out idle streams.
	DefaultHeartbeat = 30 * time.Second

	writeDeadline = 60 * time.Second
)

var activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sse_active_streams",
	Help: "Number of open wishlist event streams",
})

// Handler serves one Syncer per connection.
type Handler struct {
	gateway   listsync.Gateway
	hub       *listsync.Hub
	opts      listsync.Options
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewHandler creates a stream handler. A non-positive heartbeat uses
// DefaultHeartbeat.
func NewHandler(gw listsync.Gateway, hub *listsync.Hub, opts listsync.Options, heartbeat time.Duration, logger *slog.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	opts.Logger = logger
	return &Handler{
		gateway:   gw,
		hub:       hub,
		opts:      opts,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Serve streams wishlistID as seen by viewer until the client goes away or
// the wishlist disappears. With ownerOnly set a non-owner gets 403 before
// the stream opens. Load failures are answered as ordinary JSON errors.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, viewer domain.Viewer, wishlistID string, ownerOnly bool) {
	ctx := r.Context()

	syncer := listsync.NewSyncer(h.gateway, h.hub, viewer, wishlistID, h.opts)
	defer syncer.Close()

	// Subscribe before the first load so a change committed while it runs
	// still triggers a reload.
	if err := syncer.Start(ctx); err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}
	snap, err := syncer.Load(ctx)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if ownerOnly && !snap.IsOwner {
		httputil.WriteError(w, r, apperrors.Forbidden("only the owner can follow this wishlist"), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	clientID := gonanoid.Must()

	activeStreams.Inc()
	defer activeStreams.Dec()

	logger := h.logger.With(
		slog.String("client_id", clientID),
		slog.String("wishlist_id", wishlistID),
	)
	logger.InfoContext(ctx, "event stream opened", slog.String("user_id", viewer.UserID))
	defer logger.InfoContext(ctx, "event stream closed")

	if err := h.send(rc, w, "connected", map[string]string{"client_id": clientID}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-syncer.Updates():
			if !ok {
				return
			}
			if err := h.send(rc, w, "snapshot", snap); err != nil {
				logger.WarnContext(ctx, "event stream write failed", slog.String("error", err.Error()))
				return
			}
			if snap.Gone {
				return
			}
		case <-ticker.C:
			if err := h.comment(rc, w, "heartbeat"); err != nil {
				return
			}
		}
	}
}

func (h *Handler) send(rc *http.ResponseController, w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	_ = rc.SetWriteDeadline(time.Now().Add(writeDeadline))
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}

func (h *Handler) comment(rc *http.ResponseController, w http.ResponseWriter, text string) error {
	_ = rc.SetWriteDeadline(time.Now().Add(writeDeadline))
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return rc.Flush()
}
