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

var itemCols = []string{"id", "wishlist_id", "title", "description", "image_url", "product_url", "price", "priority", "created_at", "updated_at"}

func sampleItem(id string, priority int) domain.Item {
	return domain.Item{
		ID:          id,
		WishlistID:  "w-1",
		Title:       "Item " + id,
		Description: "",
		ImageURL:    ptr("https://img.example.com/" + id + ".jpg"),
		ProductURL:  nil,
		Price:       ptr(19.99),
		Priority:    priority,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	}
}

func itemRow(rows *pgxmock.Rows, it domain.Item) *pgxmock.Rows {
	return rows.AddRow(it.ID, it.WishlistID, it.Title, it.Description, it.ImageURL, it.ProductURL,
		it.Price, it.Priority, it.CreatedAt, it.UpdatedAt)
}

func TestItemRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	it := sampleItem("i-1", 3)

	mock.ExpectExec("INSERT INTO items").
		WithArgs(it.ID, it.WishlistID, it.Title, it.Description, it.ImageURL, it.ProductURL,
			it.Price, it.Priority, it.CreatedAt, it.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &it))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_Create_WishlistGone(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	it := sampleItem("i-1", 3)

	mock.ExpectExec("INSERT INTO items").
		WithArgs(anyArgs(10)...).
		WillReturnError(fkViolation)

	assert.ErrorIs(t, repo.Create(context.Background(), &it), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	it := sampleItem("i-1", 5)

	mock.ExpectQuery("SELECT .+ FROM items WHERE id =").
		WithArgs("i-1").
		WillReturnRows(itemRow(pgxmock.NewRows(itemCols), it))

	got, err := repo.GetByID(context.Background(), "i-1")
	require.NoError(t, err)
	assert.Equal(t, &it, got)

	mock.ExpectQuery("SELECT .+ FROM items WHERE id =").
		WithArgs("i-404").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "i-404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestItemRepository_UpdateAndDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	it := sampleItem("i-1", 2)

	mock.ExpectExec("UPDATE items").
		WithArgs(it.ID, it.Title, it.Description, it.ImageURL, it.ProductURL, it.Price, it.Priority, it.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), &it))

	mock.ExpectExec("DELETE FROM items WHERE id =").
		WithArgs("i-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "i-1"), apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_ListByWishlist(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)
	high, low := sampleItem("i-1", 5), sampleItem("i-2", 1)

	rows := pgxmock.NewRows(itemCols)
	itemRow(rows, high)
	itemRow(rows, low)
	mock.ExpectQuery("ORDER BY priority DESC, created_at ASC").
		WithArgs("w-1").
		WillReturnRows(rows)

	got, err := repo.ListByWishlist(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Item{high, low}, got)
}

func TestItemRepository_ListByWishlist_QueryError(t *testing.T) {
	mock := newMock(t)
	repo := NewItemRepository(mock)

	mock.ExpectQuery("FROM items").
		WithArgs("w-1").
		WillReturnError(errors.New("timeout"))

	_, err := repo.ListByWishlist(context.Background(), "w-1")
	assert.ErrorIs(t, err, apperrors.ErrTransientIO)
	assert.NoError(t, mock.ExpectationsWereMet())
}
