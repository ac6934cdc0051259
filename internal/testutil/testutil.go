// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 770303

// AcquireDBLock grabs a global advisory lock to serialize DB tests across
// packages.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops every table and applies every up migration oldest
// first, leaving empty tables.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := DropSchema(ctx, pool); err != nil {
		return err
	}
	ups, _, err := migrationFiles()
	if err != nil {
		return err
	}
	return execFiles(ctx, pool, ups)
}

// DropSchema runs every down migration newest first and forgets the
// version recorded by the migrate tool.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, downs, err := migrationFiles()
	if err != nil {
		return err
	}
	slices.Reverse(downs)
	if err := execFiles(ctx, pool, downs); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}
	return nil
}

func execFiles(ctx context.Context, pool *pgxpool.Pool, paths []string) error {
	for _, path := range paths {
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filepath.Base(path), err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func migrationFiles() (ups, downs []string, err error) {
	root, err := ProjectRoot()
	if err != nil {
		return nil, nil, err
	}
	dir := filepath.Join(root, "migrations")

	ups, err = filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, nil, fmt.Errorf("list up migrations: %w", err)
	}
	downs, err = filepath.Glob(filepath.Join(dir, "*.down.sql"))
	if err != nil {
		return nil, nil, fmt.Errorf("list down migrations: %w", err)
	}
	if len(ups) == 0 {
		return nil, nil, fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(ups)
	sort.Strings(downs)
	return ups, downs, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the module root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", "..")), nil
}
