package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var (
	ErrInvoiceNotFound     = repository.ErrInvoiceNotFound
	ErrInvoiceNumberTaken  = repository.ErrInvoiceNumberTaken
	ErrInvoiceNotEditable  = repository.ErrInvoiceNotEditable
	ErrInvalidReference    = repository.ErrInvalidReference
	ErrInvalidStatusChange = repository.ErrStatusChanged
)

const maxInvoiceNumberLength = 50

// InvoiceService issues and tracks invoices.
type InvoiceService struct {
	store    InvoiceStore
	versions DataVersioner
	today    Clock
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewInvoiceService creates an InvoiceService.
func NewInvoiceService(store InvoiceStore, versions DataVersioner, today Clock, recorder metrics.Recorder, logger *slog.Logger) *InvoiceService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if today == nil {
		today = SystemClock(time.UTC)
	}
	return &InvoiceService{
		store:    store,
		versions: versions,
		today:    today,
		metrics:  recorder,
		logger:   defaultLogger(logger, "invoices"),
	}
}

// Today is the civil date overdue flags are computed against.
func (s *InvoiceService) Today() time.Time {
	return s.today()
}

// InvoiceInput is the editable part of an invoice. An empty Number asks
// storage for the next YYYY-NNNN of the issue year.
type InvoiceInput struct {
	ClientID         string
	BillingProfileID *string
	Number           string
	IssueDate        time.Time
	DueDate          *time.Time
	Concept          string
	Description      string
	Base             decimal.Decimal
	IVARate          decimal.Decimal
	IRPFRate         decimal.Decimal
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
	Notes            string
}

func (in InvoiceInput) validate() error {
	fe := fieldErrors{}
	if len(in.Number) > maxInvoiceNumberLength {
		fe.add("numero_factura", fmt.Sprintf("must be at most %d characters", maxInvoiceNumberLength))
	}
	if in.IssueDate.IsZero() {
		fe.add("fecha_emision", "is required")
	}
	if in.DueDate != nil && !in.IssueDate.IsZero() && in.DueDate.Before(in.IssueDate) {
		fe.add("fecha_vencimiento", "is before the issue date")
	}
	if strings.TrimSpace(in.Concept) == "" {
		fe.add("concepto", "is required")
	}
	if in.Base.IsNegative() {
		fe.add("base_imponible", "must not be negative")
	}
	validateRates(fe, in.IVARate, in.IRPFRate, "tipo_iva", "tipo_irpf")
	if (in.PeriodStart == nil) != (in.PeriodEnd == nil) {
		fe.add("periodo_fin", "period needs both start and end")
	} else if in.PeriodStart != nil && in.PeriodEnd.Before(*in.PeriodStart) {
		fe.add("periodo_fin", "is before the period start")
	}
	return fe.err()
}

func (in InvoiceInput) apply(inv *model.Invoice) {
	inv.ClientID = in.ClientID
	inv.BillingProfileID = in.BillingProfileID
	inv.Number = strings.TrimSpace(in.Number)
	inv.IssueDate = recurrence.Truncate(in.IssueDate)
	inv.DueDate = truncatePtr(in.DueDate)
	inv.Concept = strings.TrimSpace(in.Concept)
	inv.Description = in.Description
	inv.Base = in.Base
	inv.IVARate = in.IVARate
	inv.IRPFRate = in.IRPFRate
	inv.PeriodStart = truncatePtr(in.PeriodStart)
	inv.PeriodEnd = truncatePtr(in.PeriodEnd)
	inv.Notes = in.Notes
	inv.ApplyTotals()
}

func (s *InvoiceService) checkReferences(ctx context.Context, userID string, in InvoiceInput) error {
	if err := checkOwnedClient(ctx, s.store, userID, in.ClientID); err != nil {
		return err
	}
	return checkOwnedProfile(ctx, s.store, userID, in.BillingProfileID)
}

// Create issues a pending invoice.
func (s *InvoiceService) Create(ctx context.Context, userID string, input InvoiceInput) (*model.Invoice, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, input); err != nil {
		return nil, err
	}

	ts := now()
	inv := &model.Invoice{
		ID:        generateID(),
		UserID:    userID,
		Status:    model.InvoicePending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	input.apply(inv)

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	s.metrics.IncInvoiceCreated(metrics.SourceManual)
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("invoice_created", "user_id", userID, "invoice_id", inv.ID, "number", inv.Number)
	return s.store.GetInvoice(ctx, userID, inv.ID)
}

// Get returns one of the user's invoices.
func (s *InvoiceService) Get(ctx context.Context, userID, id string) (*model.Invoice, error) {
	return s.store.GetInvoice(ctx, userID, id)
}

// ListInvoicesInput defines input for List.
type ListInvoicesInput struct {
	Period     PeriodFilter
	Status     model.InvoiceStatus
	ClientID   string
	TemplateID string
	Cursor     string
	Limit      int
}

// List pages through invoices, newest issue date first.
func (s *InvoiceService) List(ctx context.Context, userID string, input ListInvoicesInput) (*Page[model.Invoice], error) {
	from, to, err := input.Period.bounds()
	if err != nil {
		return nil, err
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, invalid("estado", "unknown status")
	}

	filter := repository.InvoiceFilter{
		UserID:     userID,
		From:       from,
		To:         to,
		Status:     input.Status,
		ClientID:   input.ClientID,
		TemplateID: input.TemplateID,
	}
	invoices, next, err := s.store.ListInvoices(ctx, filter, repository.Page{Cursor: input.Cursor, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return newPage(invoices, next), nil
}

// Update replaces the editable fields of a pending invoice.
func (s *InvoiceService) Update(ctx context.Context, userID, id string, input InvoiceInput) (*model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !inv.Editable() {
		return nil, ErrInvoiceNotEditable
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, input); err != nil {
		return nil, err
	}

	number := inv.Number
	input.apply(inv)
	if inv.Number == "" {
		inv.Number = number
	}
	inv.UpdatedAt = now()

	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("invoice_updated", "user_id", userID, "invoice_id", id)
	return s.store.GetInvoice(ctx, userID, id)
}

// MarkPaid records payment of a pending invoice. A nil date means today.
func (s *InvoiceService) MarkPaid(ctx context.Context, userID, id string, paidOn *time.Time) (*model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvoicePending {
		return nil, ErrInvalidStatusChange
	}

	date := s.today()
	if paidOn != nil {
		date = recurrence.Truncate(*paidOn)
	}
	if date.Before(inv.IssueDate) {
		return nil, invalid("fecha_pago", "is before the issue date")
	}
	return s.setStatus(ctx, inv, model.InvoicePaid, &date)
}

// MarkPending undoes a payment.
func (s *InvoiceService) MarkPending(ctx context.Context, userID, id string) (*model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvoicePaid {
		return nil, ErrInvalidStatusChange
	}
	return s.setStatus(ctx, inv, model.InvoicePending, nil)
}

// Cancel voids an invoice. Its number stays allocated and it no longer
// counts in tax reports. A paid invoice keeps its payment date.
func (s *InvoiceService) Cancel(ctx context.Context, userID, id string) (*model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvoiceCancelled {
		return nil, ErrInvalidStatusChange
	}
	return s.setStatus(ctx, inv, model.InvoiceCancelled, inv.PaidDate)
}

func (s *InvoiceService) setStatus(ctx context.Context, inv *model.Invoice, status model.InvoiceStatus, paidOn *time.Time) (*model.Invoice, error) {
	if err := s.store.SetInvoiceStatus(ctx, inv.UserID, inv.ID, inv.Status, status, paidOn); err != nil {
		return nil, err
	}
	bumpDataVersion(ctx, s.versions, s.logger, inv.UserID)

	s.logger.Info("invoice_status_changed", "user_id", inv.UserID, "invoice_id", inv.ID,
		"from", inv.Status, "to", status)
	return s.store.GetInvoice(ctx, inv.UserID, inv.ID)
}

// Delete removes a pending invoice.
func (s *InvoiceService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteInvoice(ctx, userID, id); err != nil {
		return err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("invoice_deleted", "user_id", userID, "invoice_id", id)
	return nil
}

func truncatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := recurrence.Truncate(*t)
	return &d
}
