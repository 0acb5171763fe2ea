package domain

import "errors"

// Validation failures. Services turn these into InvalidInput errors.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title must be at most 200 characters")
	ErrNegativePrice = errors.New("price must not be negative")
	ErrPriorityRange = errors.New("priority must be between 1 and 5")
	ErrInvalidURL    = errors.New("urls must be absolute http(s) addresses")
)
