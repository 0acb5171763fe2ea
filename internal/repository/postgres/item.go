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

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed item repository.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

const itemColumns = `id, wishlist_id, title, description, image_url, product_url, price, priority, created_at, updated_at`

func scanItem(row pgx.Row, it *domain.Item) error {
	return row.Scan(
		&it.ID, &it.WishlistID, &it.Title, &it.Description, &it.ImageURL, &it.ProductURL,
		&it.Price, &it.Priority, &it.CreatedAt, &it.UpdatedAt,
	)
}

// Create inserts a new item.
func (r *ItemRepository) Create(ctx context.Context, it *domain.Item) (err error) {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	ctx, end := database.TraceQuery(ctx, "items.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		it.ID, it.WishlistID, it.Title, it.Description, it.ImageURL, it.ProductURL,
		it.Price, it.Priority, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		if database.IsPgCode(err, database.ForeignKeyViolation) {
			return apperrors.NotFound("wishlist", it.WishlistID)
		}
		return apperrors.Transient("create item", err)
	}
	return nil
}

// GetByID retrieves an item by id.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (_ *domain.Item, err error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "items.GetByID", query)
	defer func() { end(err) }()

	var it domain.Item
	if err = scanItem(r.pool.QueryRow(ctx, query, id), &it); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", id)
		}
		return nil, apperrors.Transient("get item", err)
	}
	return &it, nil
}

// Update overwrites the mutable fields of an item.
func (r *ItemRepository) Update(ctx context.Context, it *domain.Item) (err error) {
	query := `
		UPDATE items
		SET title = $2, description = $3, image_url = $4, product_url = $5,
		    price = $6, priority = $7, updated_at = $8
		WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "items.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		it.ID, it.Title, it.Description, it.ImageURL, it.ProductURL, it.Price, it.Priority, it.UpdatedAt,
	)
	if err != nil {
		return apperrors.Transient("update item", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("item", it.ID)
	}
	return nil
}

// Delete removes an item and, by cascade, its reservation.
func (r *ItemRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM items WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "items.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return apperrors.Transient("delete item", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("item", id)
	}
	return nil
}

// ListByWishlist returns every item of a wishlist, highest priority first.
func (r *ItemRepository) ListByWishlist(ctx context.Context, wishlistID string) (_ []domain.Item, err error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE wishlist_id = $1
		ORDER BY priority DESC, created_at ASC`
	ctx, end := database.TraceQuery(ctx, "items.ListByWishlist", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, wishlistID)
	if err != nil {
		return nil, apperrors.Transient("list items", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err = scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Transient("iterate item rows", err)
	}
	return items, nil
}
