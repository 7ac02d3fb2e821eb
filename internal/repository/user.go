package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/docdesk/internal/model"
)

// ErrDuplicateUser is returned when a username is already taken.
var ErrDuplicateUser = errors.New("username already exists")

// UserRepository reads the local users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Get returns a user by id.
func (r *UserRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, is_staff, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.IsStaff, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// Create inserts a user. Accounts normally come from the wider application;
// this exists for seeding.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	u.CreatedAt = time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, is_staff, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Username, u.Email, u.IsStaff, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", u.Username, ErrDuplicateUser)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
