package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var ErrExpenseNotFound = repository.ErrExpenseNotFound

var hundred = decimal.NewFromInt(100)

// ExpenseService records received invoices and costs.
type ExpenseService struct {
	store    ExpenseStore
	versions DataVersioner
	logger   *slog.Logger
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store ExpenseStore, versions DataVersioner, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{store: store, versions: versions, logger: defaultLogger(logger, "expenses")}
}

// ExpenseInput is the editable part of an expense. A nil DeductiblePct
// means fully deductible.
type ExpenseInput struct {
	Concept                string
	Category               model.ExpenseCategory
	SupplierName           string
	SupplierNIF            string
	SupplierIntracommunity bool
	IssueDate              time.Time
	PaidDate               *time.Time
	Paid                   bool
	Base                   decimal.Decimal
	IVARate                decimal.Decimal
	WithholdingRate        decimal.Decimal
	WithholdingKind        model.WithholdingKind
	Deductible             bool
	DeductiblePct          *decimal.Decimal
	Notes                  string
}

func (in ExpenseInput) build(e *model.Expense) error {
	e.Concept = strings.TrimSpace(in.Concept)
	e.Category = in.Category
	e.SupplierName = strings.TrimSpace(in.SupplierName)
	e.SupplierNIF = model.NormalizeTaxID(in.SupplierNIF)
	e.SupplierIntracommunity = in.SupplierIntracommunity
	e.IssueDate = recurrence.Truncate(in.IssueDate)
	e.PaidDate = truncatePtr(in.PaidDate)
	e.Paid = in.Paid || in.PaidDate != nil
	e.Base = in.Base
	e.IVARate = in.IVARate
	e.WithholdingRate = in.WithholdingRate
	e.WithholdingKind = in.WithholdingKind
	e.Deductible = in.Deductible
	e.DeductiblePct = hundred
	if in.DeductiblePct != nil {
		e.DeductiblePct = *in.DeductiblePct
	}
	e.Notes = in.Notes
	if e.WithholdingKind == "" {
		e.WithholdingKind = model.WithholdingNone
	}
	if e.Paid && e.PaidDate == nil {
		d := e.IssueDate
		e.PaidDate = &d
	}

	if err := validateExpense(e); err != nil {
		return err
	}
	e.ApplyTotals()
	return nil
}

func validateExpense(e *model.Expense) error {
	fe := fieldErrors{}
	if e.Concept == "" {
		fe.add("concepto", "is required")
	}
	if !e.Category.IsValid() {
		fe.add("categoria", "unknown category")
	}
	if e.SupplierNIF != "" {
		if err := model.ValidateTaxID(e.SupplierNIF, e.SupplierIntracommunity); err != nil {
			fe.add("proveedor_nif", err.Error())
		}
	}
	if e.IssueDate.IsZero() {
		fe.add("fecha_emision", "is required")
	}
	if e.PaidDate != nil && e.PaidDate.Before(e.IssueDate) {
		fe.add("fecha_pago", "is before the issue date")
	}
	if e.Base.IsNegative() {
		fe.add("base_imponible", "must not be negative")
	}
	if !model.IsValidIVARate(e.IVARate) {
		fe.add("tipo_iva", "IVA rate must be one of 21, 10, 4, 0")
	}
	if !e.WithholdingKind.IsValid() {
		fe.add("clase_retencion", "unknown withholding kind")
	} else if e.WithholdingKind != model.WithholdingNone && !model.IsValidPercent(e.WithholdingRate) {
		fe.add("tipo_retencion", "must be between 0 and 100")
	}
	if !model.IsValidPercent(e.DeductiblePct) {
		fe.add("porcentaje_deducible", "must be between 0 and 100")
	}
	return fe.err()
}

// Create records an expense.
func (s *ExpenseService) Create(ctx context.Context, userID string, input ExpenseInput) (*model.Expense, error) {
	ts := now()
	e := &model.Expense{ID: generateID(), UserID: userID, CreatedAt: ts, UpdatedAt: ts}
	if err := input.build(e); err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("expense_created", "user_id", userID, "expense_id", e.ID, "category", e.Category)
	return e, nil
}

// Get returns one of the user's expenses.
func (s *ExpenseService) Get(ctx context.Context, userID, id string) (*model.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

// ListExpensesInput defines input for List.
type ListExpensesInput struct {
	Period     PeriodFilter
	Category   model.ExpenseCategory
	Deductible *bool
	Cursor     string
	Limit      int
}

// List pages through expenses, newest issue date first.
func (s *ExpenseService) List(ctx context.Context, userID string, input ListExpensesInput) (*Page[model.Expense], error) {
	from, to, err := input.Period.bounds()
	if err != nil {
		return nil, err
	}
	if input.Category != "" && !input.Category.IsValid() {
		return nil, invalid("categoria", "unknown category")
	}

	filter := repository.ExpenseFilter{
		UserID:     userID,
		From:       from,
		To:         to,
		Category:   input.Category,
		Deductible: input.Deductible,
	}
	expenses, next, err := s.store.ListExpenses(ctx, filter, repository.Page{Cursor: input.Cursor, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return newPage(expenses, next), nil
}

// Update replaces the editable fields of an expense.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, input ExpenseInput) (*model.Expense, error) {
	e, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := input.build(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = now()

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)
	return e, nil
}

// Delete removes an expense. A linked document is unlinked by storage.
func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("expense_deleted", "user_id", userID, "expense_id", id)
	return nil
}
