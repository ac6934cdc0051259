package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repository classifies.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// isUniqueViolation reports a unique violation, optionally on one constraint.
func isUniqueViolation(err error, constraint string) bool {
	return isViolation(err, pgUniqueViolation, constraint)
}

func isForeignKeyViolation(err error, constraint string) bool {
	return isViolation(err, pgForeignKeyViolation, constraint)
}

func isCheckViolation(err error) bool {
	return isViolation(err, pgCheckViolation, "")
}

func isViolation(err error, code, constraint string) bool {
	pgErr, ok := asPgError(err)
	if !ok || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
