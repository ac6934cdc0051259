package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// fakeInvoices overrides the methods a test needs. Calling any other
// method panics on the nil embedded interface.
type fakeInvoices struct {
	Invoices

	today     time.Time
	created   *service.InvoiceInput
	listed    *service.ListInvoicesInput
	paidOn    *time.Time
	payCalled bool
	err       error
}

func (f *fakeInvoices) Today() time.Time { return f.today }

func (f *fakeInvoices) Create(_ context.Context, userID string, input service.InvoiceInput) (*model.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &input
	totals := model.ComputeTotals(input.Base, input.IVARate, input.IRPFRate)
	return &model.Invoice{
		ID:         "inv-1",
		UserID:     userID,
		ClientID:   input.ClientID,
		Number:     "2025-0001",
		IssueDate:  input.IssueDate,
		DueDate:    input.DueDate,
		Concept:    input.Concept,
		Base:       input.Base,
		IVARate:    input.IVARate,
		IVAAmount:  totals.IVAAmount,
		IRPFRate:   input.IRPFRate,
		IRPFAmount: totals.IRPFAmount,
		Total:      totals.Total,
		Status:     model.InvoicePending,
	}, nil
}

func (f *fakeInvoices) Get(_ context.Context, _, id string) (*model.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return sampleInvoice(id), nil
}

func (f *fakeInvoices) List(_ context.Context, _ string, input service.ListInvoicesInput) (*service.Page[model.Invoice], error) {
	f.listed = &input
	return &service.Page[model.Invoice]{
		Items:      []*model.Invoice{sampleInvoice("inv-1")},
		NextCursor: "next",
		HasMore:    true,
	}, nil
}

func (f *fakeInvoices) MarkPaid(_ context.Context, _, id string, paidOn *time.Time) (*model.Invoice, error) {
	f.payCalled = true
	f.paidOn = paidOn
	inv := sampleInvoice(id)
	inv.Status = model.InvoicePaid
	paid := f.today
	if paidOn != nil {
		paid = *paidOn
	}
	inv.PaidDate = &paid
	return inv, nil
}

func (f *fakeInvoices) Update(_ context.Context, _, id string, _ service.InvoiceInput) (*model.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return sampleInvoice(id), nil
}

func (f *fakeInvoices) Cancel(_ context.Context, _, _ string) (*model.Invoice, error) {
	return nil, service.ErrInvalidStatusChange
}

func sampleInvoice(id string) *model.Invoice {
	due := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	return &model.Invoice{
		ID:         id,
		ClientID:   "cli-1",
		Number:     "2025-0001",
		IssueDate:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		DueDate:    &due,
		Concept:    "Servicios enero 2025",
		Base:       decimal.RequireFromString("1000"),
		IVARate:    decimal.RequireFromString("21"),
		IVAAmount:  decimal.RequireFromString("210"),
		IRPFRate:   decimal.RequireFromString("15"),
		IRPFAmount: decimal.RequireFromString("150"),
		Total:      decimal.RequireFromString("1060"),
		Status:     model.InvoicePending,
	}
}

func newInvoiceHandler(f *fakeInvoices) *InvoiceHandler {
	if f.today.IsZero() {
		f.today = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	}
	return NewInvoiceHandler(f, discardLogger)
}

func TestInvoiceHandler_Create(t *testing.T) {
	f := &fakeInvoices{}
	h := newInvoiceHandler(f)

	body := `{"cliente_id":"cli-1","fecha_emision":"2025-01-15","concepto":"Consultoría","base_imponible":"1000,50","tipo_irpf":"15"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.created == nil {
		t.Fatal("service was not called")
	}
	if !f.created.IVARate.Equal(decimal.NewFromInt(21)) {
		t.Errorf("expected default IVA 21, got %s", f.created.IVARate)
	}

	var resp dto.InvoiceResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Base != "1000.50" || resp.IVAAmount != "210.11" || resp.IRPFAmount != "150.08" || resp.Total != "1060.53" {
		t.Errorf("unexpected amounts: base=%s iva=%s irpf=%s total=%s", resp.Base, resp.IVAAmount, resp.IRPFAmount, resp.Total)
	}
}

func TestInvoiceHandler_Create_Validation(t *testing.T) {
	f := &fakeInvoices{}
	h := newInvoiceHandler(f)

	body := `{"cliente_id":"cli-1","fecha_emision":"15/01/2025","base_imponible":"mil"}`
	rec := httptest.NewRecorder()
	h.Create(rec, authed(httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != "VALIDATION_FAILED" {
		t.Errorf("expected VALIDATION_FAILED, got %s", resp.Code)
	}
	if _, ok := resp.Fields["concepto"]; !ok {
		t.Errorf("expected concepto field error, got %v", resp.Fields)
	}
	if f.created != nil {
		t.Error("service must not be called on invalid input")
	}
}

func TestInvoiceHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"found", nil, http.StatusOK},
		{"missing", service.ErrInvoiceNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newInvoiceHandler(&fakeInvoices{err: tt.err})

			req := authed(httptest.NewRequest(http.MethodGet, "/invoices/inv-9", nil))
			rec := serve(http.MethodGet, "/invoices/{id}", h.Get, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.err != nil {
				return
			}
			var resp dto.InvoiceResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.ID != "inv-9" {
				t.Errorf("expected id inv-9, got %s", resp.ID)
			}
			// Due 2025-02-14, today 2025-03-01, still pending.
			if !resp.Overdue {
				t.Error("expected invoice to be overdue")
			}
		})
	}
}

func TestInvoiceHandler_List(t *testing.T) {
	f := &fakeInvoices{}
	h := newInvoiceHandler(f)

	req := authed(httptest.NewRequest(http.MethodGet, "/invoices?year=2025&quarter=1&status=PENDIENTE&template_id=tpl-1&limit=5", nil))
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	want := service.ListInvoicesInput{
		Period:     service.PeriodFilter{Year: 2025, Quarter: 1},
		Status:     model.InvoicePending,
		TemplateID: "tpl-1",
		Limit:      5,
	}
	if *f.listed != want {
		t.Errorf("List input = %+v, want %+v", *f.listed, want)
	}

	var resp dto.ListResponse[dto.InvoiceResponse]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || !resp.Pagination.HasMore || resp.Pagination.NextCursor != "next" {
		t.Errorf("unexpected list response: %+v", resp)
	}
}

func TestInvoiceHandler_Pay(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPaid string
		wantArg  bool
	}{
		{name: "empty body pays today", body: "", wantPaid: "2025-03-01"},
		{name: "explicit date", body: `{"fecha_pago":"2025-02-20"}`, wantPaid: "2025-02-20", wantArg: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeInvoices{}
			h := newInvoiceHandler(f)

			req := authed(httptest.NewRequest(http.MethodPost, "/invoices/inv-1/pay", strings.NewReader(tt.body)))
			rec := serve(http.MethodPost, "/invoices/{id}/pay", h.Pay, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if !f.payCalled || (f.paidOn != nil) != tt.wantArg {
				t.Errorf("MarkPaid called=%v paidOn=%v", f.payCalled, f.paidOn)
			}
			var resp dto.InvoiceResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.PaidDate == nil || *resp.PaidDate != tt.wantPaid {
				t.Errorf("fecha_pago = %v, want %s", resp.PaidDate, tt.wantPaid)
			}
			if resp.Overdue {
				t.Error("paid invoice must not be overdue")
			}
		})
	}
}

func TestInvoiceHandler_Cancel_Conflict(t *testing.T) {
	h := newInvoiceHandler(&fakeInvoices{})

	req := authed(httptest.NewRequest(http.MethodPost, "/invoices/inv-1/cancel", nil))
	rec := serve(http.MethodPost, "/invoices/{id}/cancel", h.Cancel, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "INVALID_STATUS_CHANGE" {
		t.Errorf("expected INVALID_STATUS_CHANGE, got %s", resp.Code)
	}
}

func TestInvoiceHandler_Update_OccurrenceConflict(t *testing.T) {
	// Moving a template invoice onto a date the template already billed.
	err := fmt.Errorf("update invoice: %w", repository.ErrDuplicateOccurrence)
	h := newInvoiceHandler(&fakeInvoices{err: err})

	body := `{"cliente_id":"cli-1","fecha_emision":"2025-02-15","concepto":"Mantenimiento","base_imponible":"300"}`
	req := authed(httptest.NewRequest(http.MethodPut, "/invoices/inv-1", strings.NewReader(body)))
	rec := serve(http.MethodPut, "/invoices/{id}", h.Update, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Code != "OCCURRENCE_ALREADY_GENERATED" {
		t.Errorf("expected OCCURRENCE_ALREADY_GENERATED, got %s", resp.Code)
	}
}

func TestInvoiceHandler_Unauthenticated(t *testing.T) {
	h := newInvoiceHandler(&fakeInvoices{})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/invoices", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}
