package listsync

import (
	"log/slog"
	"sync"

	"github.com/smogalia/list-gift/internal/domain"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 16

// Filter selects the changes a subscription receives.
type Filter func(domain.Change) bool

// ForWishlist matches every change of one wishlist.
func ForWishlist(id string) Filter {
	return func(c domain.Change) bool { return c.WishlistID == id }
}

// Hub fans changes out to subscriptions within the process. Publish never
// blocks: a subscriber whose buffer is full already has a reload pending, so
// the change is dropped for it.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
	buffer int
	logger *slog.Logger
}

// NewHub creates a hub. buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription is a cancellable stream of changes.
type Subscription struct {
	id     uint64
	hub    *Hub
	filter Filter
	ch     chan domain.Change
	once   sync.Once
}

// C delivers matching changes. It is closed by Close or Hub.Shutdown.
func (s *Subscription) C() <-chan domain.Change { return s.ch }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Subscribe registers filter. A nil filter matches everything. Subscribing
// to a shut down hub returns an already closed subscription.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		hub:    h,
		filter: filter,
		ch:     make(chan domain.Change, h.buffer),
	}
	if h.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	h.subs[sub.id] = sub
	hubSubscribers.Inc()
	return sub
}

// Publish delivers c to every matching subscription without blocking.
func (h *Hub) Publish(c domain.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	hubEventsPublished.WithLabelValues(c.Table).Inc()
	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			hubEventsDropped.Inc()
			h.logger.Debug("subscriber buffer full, change dropped",
				slog.String("wishlist_id", c.WishlistID),
				slog.String("change_id", c.ID),
			)
		}
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Shutdown closes every subscription. Later Publish calls are ignored.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		hubSubscribers.Dec()
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		hubSubscribers.Dec()
	}
	s.once.Do(func() { close(s.ch) })
}
