package domain

import (
	"net/url"
	"time"
)

// Item priority bounds.
const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

// Item is one desired gift on a wishlist.
type Item struct {
	ID          string    `json:"id"`
	WishlistID  string    `json:"wishlist_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url,omitempty"`
	ProductURL  *string   `json:"product_url,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks title, price, priority and URLs.
func (i *Item) Validate() error {
	if err := validateTitle(i.Title); err != nil {
		return err
	}
	if i.Price != nil && *i.Price < 0 {
		return ErrNegativePrice
	}
	if i.Priority < MinPriority || i.Priority > MaxPriority {
		return ErrPriorityRange
	}
	for _, u := range []*string{i.ImageURL, i.ProductURL} {
		if u != nil && *u != "" && !IsHTTPURL(*u) {
			return ErrInvalidURL
		}
	}
	return nil
}

// IsHTTPURL reports whether raw is an absolute http(s) URL.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
