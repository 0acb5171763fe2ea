package domain

import (
	"strings"
	"time"
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the server-side record behind a bearer token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// Token is only populated when the session is handed to the client.
	Token string `json:"token,omitempty"`
}

// Identity is the resolved principal of a live session.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	SessionID   string `json:"session_id"`
}

// Viewer returns the identity as a viewer.
func (i *Identity) Viewer() Viewer {
	if i == nil {
		return Viewer{}
	}
	return Viewer{UserID: i.UserID, Email: i.Email}
}

// AuthEvent is a session transition observed by OnAuthChange listeners.
type AuthEvent string

const (
	AuthSignedIn      AuthEvent = "signed_in"
	AuthSignedOut     AuthEvent = "signed_out"
	AuthPasswordReset AuthEvent = "password_reset"
)

// AuthChange describes one AuthEvent. SessionIDs lists every session the
// change affects.
type AuthChange struct {
	Event      AuthEvent
	UserID     string
	SessionIDs []string
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
