package domain

import "time"

// AccessView is the only access type a share grants.
const AccessView = "view"

// Share grants a recipient email view access to a wishlist.
type Share struct {
	ID         string    `json:"id"`
	WishlistID string    `json:"wishlist_id"`
	Email      string    `json:"email"`
	AccessType string    `json:"access_type"`
	CreatedAt  time.Time `json:"created_at"`
}
