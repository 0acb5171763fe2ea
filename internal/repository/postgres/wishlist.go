package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/pkg/database"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	pool database.DBTX
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(pool database.DBTX) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

const wishlistColumns = `id, user_id, title, description, event_date, is_public, created_at, updated_at`

// Create inserts a new wishlist.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) (err error) {
	query := `
		INSERT INTO wishlists (` + wishlistColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	ctx, end := database.TraceQuery(ctx, "wishlists.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		w.ID, w.UserID, w.Title, w.Description, w.EventDate, w.IsPublic, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if database.IsPgCode(err, database.ForeignKeyViolation) {
			return apperrors.NotFound("user", w.UserID)
		}
		return apperrors.Transient("create wishlist", err)
	}
	return nil
}

// GetByID retrieves a wishlist by id.
func (r *WishlistRepository) GetByID(ctx context.Context, id string) (_ *domain.Wishlist, err error) {
	query := `SELECT ` + wishlistColumns + ` FROM wishlists WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "wishlists.GetByID", query)
	defer func() { end(err) }()

	var w domain.Wishlist
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Title, &w.Description, &w.EventDate, &w.IsPublic, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("wishlist", id)
		}
		return nil, apperrors.Transient("get wishlist", err)
	}
	return &w, nil
}

// Update overwrites the mutable fields of a wishlist.
func (r *WishlistRepository) Update(ctx context.Context, w *domain.Wishlist) (err error) {
	query := `
		UPDATE wishlists
		SET title = $2, description = $3, event_date = $4, is_public = $5, updated_at = $6
		WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "wishlists.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, w.ID, w.Title, w.Description, w.EventDate, w.IsPublic, w.UpdatedAt)
	if err != nil {
		return apperrors.Transient("update wishlist", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", w.ID)
	}
	return nil
}

// Delete removes a wishlist. Items, reservations and shares go with it
// through ON DELETE CASCADE.
func (r *WishlistRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM wishlists WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "wishlists.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return apperrors.Transient("delete wishlist", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", id)
	}
	return nil
}

// ListByOwner returns one page of the owner's wishlists with item counts.
func (r *WishlistRepository) ListByOwner(ctx context.Context, userID string, limit, offset int) (_ []domain.WishlistSummary, _ int, err error) {
	countQuery := `SELECT COUNT(*) FROM wishlists WHERE user_id = $1`
	query := `
		SELECT w.id, w.user_id, w.title, w.description, w.event_date, w.is_public, w.created_at, w.updated_at,
		       (SELECT COUNT(*) FROM items i WHERE i.wishlist_id = w.id) AS item_count
		FROM wishlists w
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3`
	ctx, end := database.TraceQuery(ctx, "wishlists.ListByOwner", query)
	defer func() { end(err) }()

	var total int
	if err = r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, apperrors.Transient("count wishlists", err)
	}

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Transient("list wishlists", err)
	}
	defer rows.Close()

	summaries := []domain.WishlistSummary{}
	for rows.Next() {
		var s domain.WishlistSummary
		if err = rows.Scan(
			&s.ID, &s.UserID, &s.Title, &s.Description, &s.EventDate, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt,
			&s.ItemCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan wishlist row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, apperrors.Transient("iterate wishlist rows", err)
	}

	return summaries, total, nil
}
