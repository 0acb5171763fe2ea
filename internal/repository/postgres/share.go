package postgres

import (
	"context"
	"fmt"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/pkg/database"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// ShareRepository implements repository.ShareRepository using PostgreSQL.
type ShareRepository struct {
	pool database.DBTX
}

// NewShareRepository creates a new PostgreSQL-backed share repository.
func NewShareRepository(pool database.DBTX) *ShareRepository {
	return &ShareRepository{pool: pool}
}

// Create inserts a share.
func (r *ShareRepository) Create(ctx context.Context, s *domain.Share) (err error) {
	query := `
		INSERT INTO shares (id, wishlist_id, email, access_type, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	ctx, end := database.TraceQuery(ctx, "shares.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query, s.ID, s.WishlistID, s.Email, s.AccessType, s.CreatedAt)
	if err != nil {
		switch {
		case database.IsPgCode(err, database.UniqueViolation):
			return apperrors.AlreadyExists("share", "email", s.Email)
		case database.IsPgCode(err, database.ForeignKeyViolation):
			return apperrors.NotFound("wishlist", s.WishlistID)
		}
		return apperrors.Transient("create share", err)
	}
	return nil
}

// ListByWishlist returns the shares of a wishlist, oldest first.
func (r *ShareRepository) ListByWishlist(ctx context.Context, wishlistID string) (_ []domain.Share, err error) {
	query := `
		SELECT id, wishlist_id, email, access_type, created_at
		FROM shares
		WHERE wishlist_id = $1
		ORDER BY created_at ASC`
	ctx, end := database.TraceQuery(ctx, "shares.ListByWishlist", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, wishlistID)
	if err != nil {
		return nil, apperrors.Transient("list shares", err)
	}
	defer rows.Close()

	shares := []domain.Share{}
	for rows.Next() {
		var s domain.Share
		if err = rows.Scan(&s.ID, &s.WishlistID, &s.Email, &s.AccessType, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan share row: %w", err)
		}
		shares = append(shares, s)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Transient("iterate share rows", err)
	}
	return shares, nil
}

// Exists reports whether wishlistID is shared with email.
func (r *ShareRepository) Exists(ctx context.Context, wishlistID, email string) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM shares WHERE wishlist_id = $1 AND email = $2)`
	ctx, end := database.TraceQuery(ctx, "shares.Exists", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.pool.QueryRow(ctx, query, wishlistID, email).Scan(&exists); err != nil {
		return false, apperrors.Transient("check share", err)
	}
	return exists, nil
}
