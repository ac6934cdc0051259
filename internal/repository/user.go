package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

const userColumns = `id, email, name, password_hash, created_at, updated_at`

// CreateUserWithAPIKey inserts a user and their first key atomically.
func (r *Repository) CreateUserWithAPIKey(ctx context.Context, user *model.User, key *model.APIKey) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err, "") {
				return ErrEmailExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return insertAPIKey(ctx, tx, key)
	})
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

// GetUserByEmail matches email case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
