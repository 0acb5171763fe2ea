package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-32b"

func newTestManager() *JWTManager {
	return NewJWTManager(testSecret, time.Hour, 30*time.Minute)
}

func TestNewSessionID(t *testing.T) {
	a, err := NewSessionID()
	require.NoError(t, err)
	b, err := NewSessionID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "ses-"))
	assert.Len(t, a, len("ses-")+21)
	assert.NotEqual(t, a, b)
}

func TestSessionToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, expires, err := m.GenerateSessionToken("user-1", "ann@example.com", "ses-abc")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, "ses-abc", claims.SessionID())
}

func TestSessionToken_Expired(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.GenerateSessionToken("user-1", "a@b.c", "ses-1")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now() }
	_, err = m.ValidateSessionToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestSessionToken_WrongSecret(t *testing.T) {
	token, _, err := newTestManager().GenerateSessionToken("user-1", "a@b.c", "ses-1")
	require.NoError(t, err)

	other := NewJWTManager("another-secret-that-is-long-enough", time.Hour, time.Hour)
	_, err = other.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestSessionToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{UserID: "u", Purpose: purposeSession, RegisteredClaims: jwt.RegisteredClaims{ID: "ses-1", Issuer: issuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestManager().ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestResetToken_NotAcceptedAsSession(t *testing.T) {
	m := newTestManager()
	reset, err := m.GenerateResetToken("user-1", "a@b.c", "$2a$12$hash")
	require.NoError(t, err)

	_, err = m.ValidateSessionToken(reset)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	session, _, err := m.GenerateSessionToken("user-1", "a@b.c", "ses-1")
	require.NoError(t, err)
	_, err = m.ValidateResetToken(session)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}

func TestResetToken_Fingerprint(t *testing.T) {
	m := newTestManager()
	reset, err := m.GenerateResetToken("user-1", "a@b.c", "$2a$12$old")
	require.NoError(t, err)

	claims, err := m.ValidateResetToken(reset)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("$2a$12$old"), claims.Fingerprint)
	assert.NotEqual(t, Fingerprint("$2a$12$new"), claims.Fingerprint)
	assert.Len(t, claims.Fingerprint, 16)
}
