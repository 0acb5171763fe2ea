package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smogalia/list-gift/internal/domain"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

var wishlistCols = []string{"id", "user_id", "title", "description", "event_date", "is_public", "created_at", "updated_at"}

func sampleWishlist() *domain.Wishlist {
	return &domain.Wishlist{
		ID:          "w-1",
		UserID:      "u-1",
		Title:       "Birthday",
		Description: "Turning 30",
		EventDate:   ptr(testTime),
		IsPublic:    true,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func TestWishlistRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)
	w := sampleWishlist()

	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs(w.ID, w.UserID, w.Title, w.Description, w.EventDate, w.IsPublic, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Create_UnknownOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs(anyArgs(8)...).
		WillReturnError(fkViolation)

	err := repo.Create(context.Background(), sampleWishlist())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Create_DriverErrorIsTransient(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectExec("INSERT INTO wishlists").
		WithArgs(anyArgs(8)...).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), sampleWishlist())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransientIO)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)
	w := sampleWishlist()

	mock.ExpectQuery("SELECT .+ FROM wishlists WHERE id =").
		WithArgs("w-1").
		WillReturnRows(pgxmock.NewRows(wishlistCols).
			AddRow(w.ID, w.UserID, w.Title, w.Description, w.EventDate, w.IsPublic, w.CreatedAt, w.UpdatedAt))

	got, err := repo.GetByID(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, w, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM wishlists WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWishlistRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)
	w := sampleWishlist()

	mock.ExpectExec("UPDATE wishlists").
		WithArgs(w.ID, w.Title, w.Description, w.EventDate, w.IsPublic, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), w))

	mock.ExpectExec("UPDATE wishlists").
		WithArgs(w.ID, w.Title, w.Description, w.EventDate, w.IsPublic, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Update(context.Background(), w), apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectExec("DELETE FROM wishlists WHERE id =").
		WithArgs("w-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), "w-1"))

	mock.ExpectExec("DELETE FROM wishlists WHERE id =").
		WithArgs("w-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "w-2"), apperrors.ErrNotFound)
}

func TestWishlistRepository_ListByOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)
	w := sampleWishlist()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT w.id").
		WithArgs("u-1", 2, 2).
		WillReturnRows(pgxmock.NewRows(append(wishlistCols, "item_count")).
			AddRow(w.ID, w.UserID, w.Title, w.Description, w.EventDate, w.IsPublic, w.CreatedAt, w.UpdatedAt, 4))

	got, total, err := repo.ListByOwner(context.Background(), "u-1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].ItemCount)
	assert.Equal(t, "Birthday", got[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistRepository_ListByOwner_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewWishlistRepository(mock)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT w.id").
		WithArgs("u-1", 20, 0).
		WillReturnRows(pgxmock.NewRows(append(wishlistCols, "item_count")))

	got, total, err := repo.ListByOwner(context.Background(), "u-1", 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
