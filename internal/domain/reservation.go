package domain

import "time"

// Reservation is the claim of one item by one signed-in visitor. An item
// without a reservation row is available.
type Reservation struct {
	ID          string     `json:"id"`
	ItemID      string     `json:"item_id"`
	ReservedBy  string     `json:"reserved_by"`
	IsAnonymous bool       `json:"is_anonymous"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether r has an expiry at or before now.
func (r *Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// ReleasedReservation identifies a reservation removed by expiry.
type ReleasedReservation struct {
	ID         string
	ItemID     string
	WishlistID string
	ReservedBy string
}

// ItemView is an item as one viewer is allowed to see it. Reservation is
// set only when the viewer holds it.
type ItemView struct {
	Item
	Reserved    bool         `json:"reserved"`
	Reservation *Reservation `json:"reservation,omitempty"`
}

// ProjectItems joins items with reservation state for one viewer.
// reserved holds the ids of every reserved item; own holds the viewer's own
// reservations keyed by item id and must be empty for the owner and for
// anonymous viewers.
func ProjectItems(items []Item, reserved map[string]bool, own map[string]*Reservation) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ItemView{Item: it, Reserved: reserved[it.ID]}
		if r, ok := own[it.ID]; ok && r != nil {
			v.Reserved = true
			v.Reservation = r
		}
		views = append(views, v)
	}
	return views
}
