package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/pkg/database"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// ReservationRepository implements repository.ReservationRepository using
// PostgreSQL. The UNIQUE constraint on item_id is what makes an item
// reservable at most once.
type ReservationRepository struct {
	pool database.DBTX
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(pool database.DBTX) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// Create is a conditional insert: it writes nothing and returns false when
// the item already has a live reservation. A reservation that expired but
// was not swept yet is taken over in place.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) (_ bool, err error) {
	query := `
		INSERT INTO reservations (id, item_id, reserved_by, is_anonymous, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_id) DO UPDATE
		SET id = EXCLUDED.id,
			reserved_by = EXCLUDED.reserved_by,
			is_anonymous = EXCLUDED.is_anonymous,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE reservations.expires_at IS NOT NULL AND reservations.expires_at <= EXCLUDED.created_at
		RETURNING id`
	ctx, end := database.TraceQuery(ctx, "reservations.Create", query)
	defer func() { end(err) }()

	var id string
	err = r.pool.QueryRow(ctx, query,
		res.ID, res.ItemID, res.ReservedBy, res.IsAnonymous, res.CreatedAt, res.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if database.IsPgCode(err, database.ForeignKeyViolation) {
			return false, apperrors.NotFound("item", res.ItemID)
		}
		return false, apperrors.Transient("create reservation", err)
	}
	return true, nil
}

// Delete removes the reservation on itemID only if reservedBy holds it.
func (r *ReservationRepository) Delete(ctx context.Context, itemID, reservedBy string) (_ string, err error) {
	query := `DELETE FROM reservations WHERE item_id = $1 AND reserved_by = $2 RETURNING id`
	ctx, end := database.TraceQuery(ctx, "reservations.Delete", query)
	defer func() { end(err) }()

	var id string
	err = r.pool.QueryRow(ctx, query, itemID, reservedBy).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.Transient("delete reservation", err)
	}
	return id, nil
}

// liveReservation excludes rows that expired but were not swept yet.
const liveReservation = `(expires_at IS NULL OR expires_at > now())`

// ReservedItemIDs selects item ids only. reserved_by is deliberately not
// part of the projection.
func (r *ReservationRepository) ReservedItemIDs(ctx context.Context, itemIDs []string) (_ map[string]bool, err error) {
	reserved := make(map[string]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return reserved, nil
	}

	query := `SELECT item_id FROM reservations WHERE item_id = ANY($1) AND ` + liveReservation
	ctx, end := database.TraceQuery(ctx, "reservations.ReservedItemIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, itemIDs)
	if err != nil {
		return nil, apperrors.Transient("load reservation state", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reserved item id: %w", err)
		}
		reserved[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Transient("iterate reservation rows", err)
	}
	return reserved, nil
}

// ListByReserver returns full detail of the reservations reservedBy holds.
func (r *ReservationRepository) ListByReserver(ctx context.Context, itemIDs []string, reservedBy string) (_ []domain.Reservation, err error) {
	out := []domain.Reservation{}
	if len(itemIDs) == 0 || reservedBy == "" {
		return out, nil
	}

	query := `
		SELECT id, item_id, reserved_by, is_anonymous, created_at, expires_at
		FROM reservations
		WHERE item_id = ANY($1) AND reserved_by = $2 AND ` + liveReservation
	ctx, end := database.TraceQuery(ctx, "reservations.ListByReserver", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, itemIDs, reservedBy)
	if err != nil {
		return nil, apperrors.Transient("load own reservations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res domain.Reservation
		if err = rows.Scan(&res.ID, &res.ItemID, &res.ReservedBy, &res.IsAnonymous, &res.CreatedAt, &res.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		out = append(out, res)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Transient("iterate reservation rows", err)
	}
	return out, nil
}

// DeleteExpired releases every reservation whose expiry has passed and
// reports which items it freed.
func (r *ReservationRepository) DeleteExpired(ctx context.Context, now time.Time) (_ []domain.ReleasedReservation, err error) {
	query := `
		DELETE FROM reservations r
		USING items i
		WHERE r.item_id = i.id AND r.expires_at IS NOT NULL AND r.expires_at <= $1
		RETURNING r.id, r.item_id, i.wishlist_id, r.reserved_by`
	ctx, end := database.TraceQuery(ctx, "reservations.DeleteExpired", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, apperrors.Transient("release expired reservations", err)
	}
	defer rows.Close()

	released := []domain.ReleasedReservation{}
	for rows.Next() {
		var rel domain.ReleasedReservation
		if err = rows.Scan(&rel.ID, &rel.ItemID, &rel.WishlistID, &rel.ReservedBy); err != nil {
			return nil, fmt.Errorf("scan released reservation: %w", err)
		}
		released = append(released, rel)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Transient("iterate released reservations", err)
	}
	return released, nil
}
