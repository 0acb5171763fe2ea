package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/smogalia/list-gift/internal/auth"
	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/internal/repository"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
	"github.com/smogalia/list-gift/pkg/middleware"
	"github.com/smogalia/list-gift/pkg/validator"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

const maxDisplayNameLength = 100

var errBadCredentials = apperrors.Unauthenticated("invalid email or password")

// AuthService owns accounts and sessions. Session records live in the
// session store; resolved identities are cached in process for a short time
// and dropped on every auth change that touches them.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionStore
	jwt      *auth.JWTManager
	events   NotificationPublisher
	cache    *cache.Cache
	logger   *slog.Logger
	hashCost int

	mu        sync.RWMutex
	listeners map[int]func(domain.AuthChange)
	nextID    int
}

// NewAuthService creates the service. cacheTTL bounds how long a revoked
// session can still be served by another instance's cache.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionStore,
	jwtManager *auth.JWTManager,
	events NotificationPublisher,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	s := &AuthService{
		users:     users,
		sessions:  sessions,
		jwt:       jwtManager,
		events:    events,
		cache:     cache.New(cacheTTL, 2*cacheTTL),
		logger:    logger,
		hashCost:  bcryptCost,
		listeners: make(map[int]func(domain.AuthChange)),
	}
	s.OnAuthChange(func(c domain.AuthChange) {
		if c.Event == domain.AuthSignedIn {
			return
		}
		for _, id := range c.SessionIDs {
			s.cache.Delete(id)
		}
	})
	return s
}

// OnAuthChange registers fn for sign-in, sign-out and password reset
// transitions. Listeners run synchronously and must not block.
func (s *AuthService) OnAuthChange(fn func(domain.AuthChange)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) emit(c domain.AuthChange) {
	s.mu.RLock()
	fns := make([]func(domain.AuthChange), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// SignUp creates an account and opens a session for it.
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName string) (*domain.User, *domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if !validator.ValidEmail(email) {
		return nil, nil, apperrors.InvalidInput("a valid email is required")
	}
	if !validator.ValidPassword(password) {
		return nil, nil, apperrors.InvalidInput("password must be at least 8 characters and contain a letter and a digit")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	if len([]rune(displayName)) > maxDisplayNameLength {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("display name must be at most %d characters", maxDisplayNameLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID))
	return user, session, nil
}

// SignIn checks credentials and opens a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, errBadCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, errBadCredentials
	}

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user signed in", slog.String("user_id", user.ID))
	return user, session, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*domain.Session, error) {
	id, err := auth.NewSessionID()
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.jwt.GenerateSessionToken(user.ID, user.Email, id)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session := &domain.Session{
		ID:        id,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	session.Token = token

	s.cache.SetDefault(id, &domain.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		SessionID:   id,
	})
	s.emit(domain.AuthChange{Event: domain.AuthSignedIn, UserID: user.ID, SessionIDs: []string{id}})
	return session, nil
}

// SignOut ends a session. Ending an unknown session is not an error.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.Unauthenticated("no active session")
	}

	var userID string
	session, err := s.sessions.Get(ctx, sessionID)
	switch {
	case err == nil:
		userID = session.UserID
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return fmt.Errorf("get session: %w", err)
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.emit(domain.AuthChange{Event: domain.AuthSignedOut, UserID: userID, SessionIDs: []string{sessionID}})

	s.logger.InfoContext(ctx, "user signed out",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// CurrentUser resolves a bearer token to the identity of its live session.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, apperrors.Unauthenticated("no session token")
	}
	claims, err := s.jwt.ValidateSessionToken(token)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid or expired session")
	}
	sessionID := claims.SessionID()

	if v, ok := s.cache.Get(sessionID); ok {
		id := *v.(*domain.Identity)
		return &id, nil
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("session has ended")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, apperrors.Unauthenticated("invalid or expired session")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	identity := &domain.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		SessionID:   sessionID,
	}
	s.cache.SetDefault(sessionID, identity)

	out := *identity
	return &out, nil
}

// TokenValidator adapts CurrentUser for the auth middleware.
func (s *AuthService) TokenValidator() middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		id, err := s.CurrentUser(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: id.UserID, Email: id.Email, SessionID: id.SessionID}, nil
	}
}

// RequestPasswordReset mails a reset link when the account exists. The
// result never reveals whether it does.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if !validator.ValidEmail(email) {
		return apperrors.InvalidInput("a valid email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	token, err := s.jwt.GenerateResetToken(user.ID, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.jwt.ResetTTL())
	if err := s.events.PublishPasswordReset(ctx, user, token, expiresAt); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword sets a new password and ends every session of the user. A
// token stops working once the password it was issued against changes.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !validator.ValidPassword(newPassword) {
		return apperrors.InvalidInput("password must be at least 8 characters and contain a letter and a digit")
	}

	claims, err := s.jwt.ValidateResetToken(token)
	if err != nil {
		return apperrors.Unauthenticated("invalid or expired reset token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthenticated("invalid or expired reset token")
		}
		return fmt.Errorf("get user: %w", err)
	}
	if claims.Fingerprint != auth.Fingerprint(user.PasswordHash) {
		return apperrors.Unauthenticated("reset token was already used")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.sessions.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.emit(domain.AuthChange{Event: domain.AuthPasswordReset, UserID: user.ID, SessionIDs: revoked})

	s.logger.InfoContext(ctx, "password reset",
		slog.String("user_id", user.ID),
		slog.Int("revoked_sessions", len(revoked)),
	)
	return nil
}
