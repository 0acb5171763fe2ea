package listsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smogalia/list-gift/internal/domain"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// ErrNotLoaded is returned by optimistic mutations before the first load.
var ErrNotLoaded = errors.New("listsync: no snapshot loaded yet")

// Options tune a Syncer.
type Options struct {
	// PollInterval forces a reload even without change events. Zero
	// disables polling.
	PollInterval time.Duration
	// LoadTimeout bounds each background reload.
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

// DefaultOptions polls every 30 seconds.
func DefaultOptions() Options {
	return Options{PollInterval: 30 * time.Second, LoadTimeout: 10 * time.Second}
}

// Syncer keeps the view of one wishlist current for one viewing session.
//
// Two writers feed the view: optimistic local mutations and authoritative
// loads. Every load takes a sequence number when issued and is applied only
// if nothing newer was applied before it; an applied load replaces the view
// wholesale, optimistic state included.
type Syncer struct {
	gw         Gateway
	hub        *Hub
	viewer     domain.Viewer
	wishlistID string
	opts       Options
	logger     *slog.Logger

	mu      sync.Mutex
	current Snapshot
	loaded  bool
	issued  uint64
	applied uint64
	closed  bool
	started bool
	sub     *Subscription
	ticker  *time.Ticker
	stop    chan struct{}
	updates chan Snapshot
}

// NewSyncer creates a syncer. hub may be nil for one-shot loads.
func NewSyncer(gw Gateway, hub *Hub, viewer domain.Viewer, wishlistID string, opts Options) *Syncer {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Syncer{
		gw:         gw,
		hub:        hub,
		viewer:     viewer,
		wishlistID: wishlistID,
		opts:       opts,
		logger:     l.With(slog.String("wishlist_id", wishlistID)),
		stop:       make(chan struct{}),
		updates:    make(chan Snapshot, 1),
	}
}

// Updates delivers the latest snapshot. An unread snapshot is replaced by a
// newer one. The channel is closed by Close.
func (s *Syncer) Updates() <-chan Snapshot { return s.updates }

// Snapshot returns the current view.
func (s *Syncer) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone(), s.loaded
}

// Load runs an authoritative load and applies it unless a newer one won.
// The returned snapshot is the result of this load either way.
func (s *Syncer) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	snap, err := Load(ctx, s.gw, s.viewer, s.wishlistID)
	if err != nil {
		syncerReloads.WithLabelValues("error").Inc()
		return Snapshot{}, err
	}
	snap.Seq = seq

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq <= s.applied {
		syncerReloads.WithLabelValues("stale").Inc()
		return snap, nil
	}
	s.applied = seq
	s.current = snap
	s.loaded = true
	s.publishLocked()
	syncerReloads.WithLabelValues("applied").Inc()
	return snap.clone(), nil
}

// Start subscribes to changes of the wishlist and reloads on every change
// and poll tick until Close or ctx ends. Changes that arrive while a reload
// is running are coalesced into one follow-up reload.
//
// A snapshot loaded before Start may already miss changes published before
// the subscription existed, so Start then queues one catch-up reload. Call
// Start before the first Load to avoid it.
func (s *Syncer) Start(ctx context.Context) error {
	if s.hub == nil {
		return errors.New("listsync: syncer has no hub")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("listsync: syncer closed")
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.sub = s.hub.Subscribe(ForWishlist(s.wishlistID))
	var tick <-chan time.Time
	if s.opts.PollInterval > 0 {
		s.ticker = time.NewTicker(s.opts.PollInterval)
		tick = s.ticker.C
	}
	events := s.sub.C()
	catchUp := s.loaded
	s.mu.Unlock()

	activeSyncers.Inc()
	go s.run(ctx, events, tick, catchUp)
	return nil
}

func (s *Syncer) run(ctx context.Context, events <-chan domain.Change, tick <-chan time.Time, catchUp bool) {
	defer activeSyncers.Dec()
	if catchUp {
		s.reload(ctx)
	}
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			s.Close()
			return
		case c, ok := <-events:
			if !ok {
				return
			}
			s.applyHint(c)
			for pending := true; pending; {
				select {
				case c, ok := <-events:
					if !ok {
						return
					}
					s.applyHint(c)
				default:
					pending = false
				}
			}
			s.reload(ctx)
		case <-tick:
			s.reload(ctx)
		}
	}
}

func (s *Syncer) reload(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	if _, err := s.Load(ctx); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.markGone()
			return
		}
		s.logger.WarnContext(ctx, "wishlist reload failed", slog.String("error", err.Error()))
	}
}

// applyHint patches the reserved flag of a reservation change before the
// reload confirms it. The reserver identity in the hint is only used to
// decide whether to drop this viewer's own reservation detail.
func (s *Syncer) applyHint(c domain.Change) {
	if c.Reservation == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.loaded {
		return
	}
	s.patchLocked(func(items []domain.ItemView) []domain.ItemView {
		for i := range items {
			if items[i].ID != c.Reservation.ItemID {
				continue
			}
			items[i].Reserved = c.Reservation.Reserved
			if !c.Reservation.Reserved {
				items[i].Reservation = nil
			}
		}
		return items
	})
}

func (s *Syncer) markGone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.current.Gone {
		return
	}
	s.current = Snapshot{Wishlist: s.current.Wishlist, Gone: true, Seq: s.applied, LoadedAt: time.Now().UTC()}
	s.loaded = true
	s.publishLocked()
}

// AddItem shows item immediately as available.
func (s *Syncer) AddItem(item domain.Item) error {
	return s.mutate(func(items []domain.ItemView) []domain.ItemView {
		return append(items, domain.ItemView{Item: item})
	})
}

// UpdateItem replaces the item fields, keeping its reservation state.
func (s *Syncer) UpdateItem(item domain.Item) error {
	return s.mutate(func(items []domain.ItemView) []domain.ItemView {
		for i := range items {
			if items[i].ID == item.ID {
				items[i].Item = item
			}
		}
		return items
	})
}

// DeleteItem removes itemID from the view.
func (s *Syncer) DeleteItem(itemID string) error {
	return s.mutate(func(items []domain.ItemView) []domain.ItemView {
		out := items[:0]
		for _, it := range items {
			if it.ID != itemID {
				out = append(out, it)
			}
		}
		return out
	})
}

// MarkReserved flips the reserved flag of itemID. own, when non-nil, is
// attached as the viewer's reservation; it is ignored for the owner.
func (s *Syncer) MarkReserved(itemID string, reserved bool, own *domain.Reservation) error {
	return s.mutate(func(items []domain.ItemView) []domain.ItemView {
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			items[i].Reserved = reserved
			items[i].Reservation = nil
			if reserved && own != nil && !s.current.IsOwner {
				items[i].Reservation = own
			}
		}
		return items
	})
}

func (s *Syncer) mutate(fn func([]domain.ItemView) []domain.ItemView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if !s.loaded {
		return ErrNotLoaded
	}
	s.patchLocked(fn)
	return nil
}

func (s *Syncer) patchLocked(fn func([]domain.ItemView) []domain.ItemView) {
	next := s.current.clone()
	next.Items = fn(next.Items)
	next.Optimistic = true
	s.current = next
	s.publishLocked()
}

// publishLocked replaces any unread snapshot with the current one. s.mu
// must be held; it is what keeps this the only sender.
func (s *Syncer) publishLocked() {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- s.current.clone()
}

// Close unsubscribes and stops polling before returning. Loads still in
// flight finish but are discarded. Close is idempotent.
func (s *Syncer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
	if s.sub != nil {
		s.sub.Close()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.updates)
}
