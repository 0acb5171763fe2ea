package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	issuer = "giftregistry"

	purposeSession       = "session"
	purposePasswordReset = "password_reset"
)

// ErrWrongPurpose is returned when a token is presented to the wrong
// validator, e.g. a reset token used as a bearer token.
var ErrWrongPurpose = errors.New("token purpose mismatch")

// Claims are carried by every token this package issues.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	// Fingerprint binds a reset token to the password hash it was issued
	// against, so it stops working once the password changes.
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// SessionID returns the jti of a session token.
func (c *Claims) SessionID() string { return c.ID }

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// NewJWTManager creates a manager with the given secret and lifetimes.
func NewJWTManager(secret string, sessionTTL, resetTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SessionTTL is the lifetime of session tokens.
func (m *JWTManager) SessionTTL() time.Duration { return m.sessionTTL }

// ResetTTL is the lifetime of password reset tokens.
func (m *JWTManager) ResetTTL() time.Duration { return m.resetTTL }

// NewSessionID returns an opaque session identifier.
func NewSessionID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "ses-" + id, nil
}

// GenerateSessionToken signs a token for sessionID and returns it with its
// expiry.
func (m *JWTManager) GenerateSessionToken(userID, email, sessionID string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.sessionTTL)
	claims := &Claims{
		UserID:  userID,
		Email:   email,
		Purpose: purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// ValidateSessionToken parses a bearer token.
func (m *JWTManager) ValidateSessionToken(token string) (*Claims, error) {
	claims, err := m.parse(token, purposeSession)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("parse session token: missing session id")
	}
	return claims, nil
}

// GenerateResetToken signs a single-purpose password reset token.
func (m *JWTManager) GenerateResetToken(userID, email, passwordHash string) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:      userID,
		Email:       email,
		Purpose:     purposePasswordReset,
		Fingerprint: Fingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.resetTTL)),
		},
	}

	signed, err := m.sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// ValidateResetToken parses a reset token. Callers must compare
// Claims.Fingerprint with Fingerprint of the current password hash.
func (m *JWTManager) ValidateResetToken(token string) (*Claims, error) {
	claims, err := m.parse(token, purposePasswordReset)
	if err != nil {
		return nil, fmt.Errorf("parse reset token: %w", err)
	}
	return claims, nil
}

// Fingerprint returns a short digest of a password hash.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

func (m *JWTManager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) parse(token, purpose string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
