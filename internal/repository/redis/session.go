package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smogalia/list-gift/internal/domain"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

const (
	sessionPrefix     = "session:"
	userSessionPrefix = "user_sessions:"
)

// SessionStore implements repository.SessionStore using Redis. Each session
// lives under session:<id> until its expiry; user_sessions:<user id> indexes
// them for revoke-all.
type SessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

// Save stores s with a TTL matching its expiry.
func (r *SessionStore) Save(ctx context.Context, s *domain.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return apperrors.InvalidInput("session already expired")
	}

	record := *s
	record.Token = ""
	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	userKey := userSessionPrefix + s.UserID
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionPrefix+s.ID, data, ttl)
	pipe.SAdd(ctx, userKey, s.ID)
	// Sessions share one lifetime, so the newest one expires last.
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Transient("save session", err)
	}
	return nil
}

// Get loads a live session.
func (r *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("session", id)
		}
		return nil, apperrors.Transient("get session", err)
	}

	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete revokes one session. Deleting an unknown session is not an error.
func (r *SessionStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionPrefix+id)
	pipe.SRem(ctx, userSessionPrefix+s.UserID, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Transient("delete session", err)
	}
	return nil
}

// DeleteAllForUser revokes every session of userID.
func (r *SessionStore) DeleteAllForUser(ctx context.Context, userID string) ([]string, error) {
	userKey := userSessionPrefix + userID
	ids, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, apperrors.Transient("list user sessions", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, userKey)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return nil, apperrors.Transient("delete user sessions", err)
	}
	return ids, nil
}
