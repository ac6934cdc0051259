package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

var seq atomic.Int64

// UniqueID returns an ID unique within the test binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, ulid.Make().String())
}

// UniqueDNI returns a checksum-valid DNI not handed out before in this run.
func UniqueDNI() string {
	n := 10000000 + seq.Add(1)
	return fmt.Sprintf("%08d%c", n, "TRWAGMYFPDXBNJZSQVHLCKE"[n%23])
}

// NewTestUser returns a user with a unique email.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	now := time.Now().UTC()
	id := ulid.Make().String()
	return &model.User{
		ID:           id,
		Email:        "user-" + id + "@example.com",
		Name:         "Ana Autónoma",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestAPIKey returns a read/write key for userID.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	return &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        userID,
		KeyHash:       UniqueID("hash"),
		KeyPrefix:     fmt.Sprintf("%08x", seq.Add(1)),
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierStandard,
		Name:          "test",
		CreatedAt:     time.Now().UTC(),
	}
}

// NewTestClient returns an active Spanish client of userID.
func NewTestClient(t testing.TB, userID string) *model.Client {
	t.Helper()
	now := time.Now().UTC()
	return &model.Client{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Name:      "Cliente " + fmt.Sprint(seq.Add(1)),
		NIF:       UniqueDNI(),
		Country:   model.DefaultCountry,
		City:      "Madrid",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestInvoice returns a pending 21% IVA invoice of base for clientID.
func NewTestInvoice(t testing.TB, userID, clientID string, issued time.Time, base string) *model.Invoice {
	t.Helper()
	now := time.Now().UTC()
	inv := &model.Invoice{
		ID:        ulid.Make().String(),
		UserID:    userID,
		ClientID:  clientID,
		IssueDate: recurrence.Truncate(issued),
		Concept:   "Servicios de consultoría",
		Base:      decimal.RequireFromString(base),
		IVARate:   decimal.NewFromInt(21),
		IRPFRate:  decimal.NewFromInt(15),
		Status:    model.InvoicePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inv.ApplyTotals()
	return inv
}

// NewTestExpense returns a fully deductible 21% IVA expense.
func NewTestExpense(t testing.TB, userID string, issued time.Time, base string) *model.Expense {
	t.Helper()
	now := time.Now().UTC()
	e := &model.Expense{
		ID:            ulid.Make().String(),
		UserID:        userID,
		Concept:       "Licencia software",
		Category:      model.CategorySoftware,
		SupplierName:  "Proveedor SL",
		SupplierNIF:   "B12345674",
		IssueDate:     recurrence.Truncate(issued),
		Base:          decimal.RequireFromString(base),
		IVARate:       decimal.NewFromInt(21),
		Deductible:    true,
		DeductiblePct: decimal.NewFromInt(100),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e.ApplyTotals()
	return e
}

// NewTestTemplate returns an active monthly template generating on day 1.
func NewTestTemplate(t testing.TB, userID, clientID string, start time.Time) *model.Template {
	t.Helper()
	now := time.Now().UTC()
	start = recurrence.Truncate(start)
	return &model.Template{
		ID:         ulid.Make().String(),
		UserID:     userID,
		ClientID:   clientID,
		Name:       "Cuota mensual",
		Concept:    "Mantenimiento {periodo}",
		Base:       decimal.NewFromInt(300),
		IVARate:    decimal.NewFromInt(21),
		IRPFRate:   decimal.NewFromInt(15),
		Frequency:  recurrence.Monthly,
		DayPolicy:  recurrence.SpecificDay,
		Day:        1,
		StartDate:  start,
		PeriodKind: recurrence.PreviousMonth,
		DueDays:    30,
		Active:     true,
		NextDate:   &start,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewTestDocument returns document metadata with a unique checksum.
func NewTestDocument(t testing.TB, userID string) *model.Document {
	t.Helper()
	now := time.Now().UTC()
	return &model.Document{
		ID:         ulid.Make().String(),
		UserID:     userID,
		Name:       "factura.pdf",
		Kind:       model.DocumentExpenseInvoice,
		MimeType:   "application/pdf",
		SizeBytes:  2048,
		StorageRef: "s3://docs/" + ulid.Make().String(),
		Checksum:   fmt.Sprintf("%064x", seq.Add(1)),
		OCRStatus:  model.OCRPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
