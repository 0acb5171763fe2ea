package domain

import (
	"strings"
	"time"
)

// MaxTitleLength bounds wishlist and item titles.
const MaxTitleLength = 200

// Wishlist is a named list of desired items owned by one user.
type Wishlist struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	IsPublic    bool       `json:"is_public"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WishlistSummary is a dashboard row.
type WishlistSummary struct {
	Wishlist
	ItemCount int `json:"item_count"`
}

// Validate checks the fields a caller controls.
func (w *Wishlist) Validate() error {
	return validateTitle(w.Title)
}

func validateTitle(title string) error {
	t := strings.TrimSpace(title)
	if t == "" {
		return ErrTitleRequired
	}
	if len([]rune(t)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}
