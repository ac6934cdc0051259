// Package service holds the business rules of the invoicing backend. Each
// service depends on a narrow store interface so it can run against the
// Postgres repository in production and in-memory fakes in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

// Errors shared with the storage layer are re-exported so handlers only
// match against this package.
var (
	ErrInvalidCursor = repository.ErrInvalidCursor
)

// ValidationError reports invalid input by field. Field names follow the
// JSON request bodies.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors collects per-field messages; the first message per field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Clock returns today's civil date.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return func() time.Time { return recurrence.Today(loc) }
}

// FixedClock always returns day.
func FixedClock(day time.Time) Clock {
	day = recurrence.Truncate(day)
	return func() time.Time { return day }
}

// Page is one page of a cursor-paginated list.
type Page[T any] struct {
	Items      []*T
	NextCursor string
	HasMore    bool
}

func newPage[T any](items []*T, next string) *Page[T] {
	if items == nil {
		items = []*T{}
	}
	return &Page[T]{Items: items, NextCursor: next, HasMore: next != ""}
}

// PeriodFilter selects a year or one of its quarters. Zero Year means no
// date bound.
type PeriodFilter struct {
	Year    int
	Quarter int
}

func (p PeriodFilter) bounds() (*time.Time, *time.Time, error) {
	if p.Year == 0 {
		if p.Quarter != 0 {
			return nil, nil, invalid("quarter", "quarter requires year")
		}
		return nil, nil, nil
	}
	if p.Year < 2000 || p.Year > 2100 {
		return nil, nil, invalid("year", "year must be between 2000 and 2100")
	}
	if p.Quarter == 0 {
		from, to := recurrence.YearBounds(p.Year)
		return &from, &to, nil
	}
	if p.Quarter < 1 || p.Quarter > 4 {
		return nil, nil, invalid("quarter", "quarter must be between 1 and 4")
	}
	from, to := recurrence.QuarterBounds(p.Year, p.Quarter)
	return &from, &to, nil
}

func generateID() string {
	return ulid.Make().String()
}

func now() time.Time {
	return time.Now().UTC()
}

// bumpDataVersion drops the user's cached reports. A cache failure only
// delays invalidation until the reports expire, so it is logged.
func bumpDataVersion(ctx context.Context, versions DataVersioner, logger *slog.Logger, userID string) {
	if versions == nil {
		return
	}
	if err := versions.BumpDataVersion(ctx, userID); err != nil {
		logger.Warn("data_version_bump_failed", "user_id", userID, "error", err)
	}
}

func defaultLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

// validateRates checks IVA and IRPF rates against the legal lists.
func validateRates(fe fieldErrors, iva, irpf decimal.Decimal, ivaField, irpfField string) {
	if !model.IsValidIVARate(iva) {
		fe.add(ivaField, "IVA rate must be one of 21, 10, 4, 0")
	}
	if !model.IsValidIRPFRate(irpf) {
		fe.add(irpfField, "IRPF rate must be one of 0, 7, 15, 19")
	}
}

// checkOwnedClient verifies the client exists and belongs to the user.
func checkOwnedClient(ctx context.Context, store ClientReader, userID, clientID string) error {
	if clientID == "" {
		return invalid("cliente_id", "is required")
	}
	if _, err := store.GetClient(ctx, userID, clientID); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return invalid("cliente_id", "client not found")
		}
		return fmt.Errorf("failed to load client: %w", err)
	}
	return nil
}

// checkOwnedProfile verifies an optional billing profile reference.
func checkOwnedProfile(ctx context.Context, store BillingProfileReader, userID string, profileID *string) error {
	if profileID == nil || *profileID == "" {
		return nil
	}
	if _, err := store.GetBillingProfile(ctx, userID, *profileID); err != nil {
		if errors.Is(err, repository.ErrBillingProfileNotFound) {
			return invalid("datos_facturacion_id", "billing profile not found")
		}
		return fmt.Errorf("failed to load billing profile: %w", err)
	}
	return nil
}
