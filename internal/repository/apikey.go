package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

var ErrAPIKeyNotFound = errors.New("API key not found")

const apiKeyColumns = `id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, revoked_at, last_used_at, created_at`

// CreateAPIKey inserts a new API key.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	return insertAPIKey(ctx, r.pool, key)
}

func insertAPIKey(ctx context.Context, q querier, key *model.APIKey) error {
	_, err := q.Exec(ctx, `
		INSERT INTO api_keys (id, user_id, key_hash, key_prefix, scopes, rate_limit_tier, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		key.ID,
		key.UserID,
		key.KeyHash,
		key.KeyPrefix,
		pq.Array(key.Scopes),
		key.RateLimitTier,
		key.Name,
		key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}

// GetAPIKey retrieves one of the user's keys, revoked or not.
func (r *Repository) GetAPIKey(ctx context.Context, userID, id string) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1 AND user_id = $2`
	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err, ErrAPIKeyNotFound)
	}
	return key, nil
}

// GetAPIKeysByPrefix returns the active keys sharing a visible prefix.
// Authentication verifies the hash of each candidate.
func (r *Repository) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_prefix = $1 AND revoked_at IS NULL`
	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get API keys by prefix: %w", err)
	}
	return collect(rows, scanAPIKey)
}

// ListAPIKeys returns all of a user's keys, newest first.
func (r *Repository) ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return collect(rows, scanAPIKey)
}

// RevokeAPIKey sets revoked_at on an active key of the user.
func (r *Repository) RevokeAPIKey(ctx context.Context, userID, id string) error {
	return revokeAPIKey(ctx, r.pool, userID, id)
}

func revokeAPIKey(ctx context.Context, q querier, userID, id string) error {
	result, err := q.Exec(ctx, `
		UPDATE api_keys SET revoked_at = $3
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
	`, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// RotateAPIKey revokes oldID and inserts next in one transaction.
func (r *Repository) RotateAPIKey(ctx context.Context, userID, oldID string, next *model.APIKey) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := revokeAPIKey(ctx, tx, userID, oldID); err != nil {
			return err
		}
		return insertAPIKey(ctx, tx, next)
	})
}

// UpdateAPIKeyLastUsed stamps last_used_at. Called off the request path.
func (r *Repository) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update API key last used: %w", err)
	}
	return nil
}

func scanAPIKey(row rowScanner) (*model.APIKey, error) {
	var key model.APIKey
	var scopes []string

	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.KeyHash,
		&key.KeyPrefix,
		pq.Array(&scopes),
		&key.RateLimitTier,
		&key.Name,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan API key: %w", err)
	}

	key.Scopes = scopes
	return &key, nil
}
