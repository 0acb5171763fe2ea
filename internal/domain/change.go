package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Tables a Change can refer to.
const (
	TableWishlists    = "wishlists"
	TableItems        = "items"
	TableReservations = "reservations"
	TableShares       = "shares"
)

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change announces that a row belonging to a wishlist was written. IDs are
// ULIDs so changes sort by creation time.
type Change struct {
	ID          string           `json:"id"`
	Table       string           `json:"table"`
	Op          string           `json:"op"`
	RowID       string           `json:"row_id"`
	WishlistID  string           `json:"wishlist_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Reservation *ReservationHint `json:"reservation,omitempty"`
}

// ReservationHint lets the reserver's own views patch optimistically.
// ReservedBy is never shown to the wishlist owner.
type ReservationHint struct {
	ItemID     string `json:"item_id"`
	Reserved   bool   `json:"reserved"`
	ReservedBy string `json:"reserved_by,omitempty"`
}

// NewChange stamps a change with a fresh ULID.
func NewChange(table, op, rowID, wishlistID string) Change {
	now := time.Now().UTC()
	return Change{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Table:      table,
		Op:         op,
		RowID:      rowID,
		WishlistID: wishlistID,
		OccurredAt: now,
	}
}

// NewReservationChange builds the change for a reserve or unreserve.
func NewReservationChange(op, reservationID, itemID, wishlistID, reservedBy string) Change {
	c := NewChange(TableReservations, op, reservationID, wishlistID)
	c.Reservation = &ReservationHint{
		ItemID:     itemID,
		Reserved:   op == OpInsert,
		ReservedBy: reservedBy,
	}
	return c
}
