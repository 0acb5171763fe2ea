package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/smogalia/list-gift/internal/domain"
	"github.com/smogalia/list-gift/pkg/database"
	apperrors "github.com/smogalia/list-gift/pkg/errors"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, display_name, created_at, updated_at`

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`
	ctx, end := database.TraceQuery(ctx, "users.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query, u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsPgCode(err, database.UniqueViolation) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return apperrors.Transient("create user", err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "users.GetByID", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "users.GetByEmail", `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, op, query, arg string) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var u domain.User
	err = r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", arg)
		}
		return nil, apperrors.Transient("get user", err)
	}
	return &u, nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (err error) {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "users.UpdatePassword", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return apperrors.Transient("update password", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}
