package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *service.ValidationError", err)
	}
	return verr.Fields
}

func TestValidate_ClientRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     ClientRequest
		wantErr []string
	}{
		{
			name: "valid DNI",
			req:  ClientRequest{Name: "Acme SL", NIF: "12345678Z"},
		},
		{
			name: "valid CIF with dashes",
			req:  ClientRequest{Name: "Acme SL", NIF: "b-1234567-4", Country: "ES"},
		},
		{
			name: "EU VAT number",
			req:  ClientRequest{Name: "Acme GmbH", NIF: "DE123456789", Country: "DE", Intracommunity: true},
		},
		{
			name:    "bad control letter",
			req:     ClientRequest{Name: "Acme SL", NIF: "12345678A"},
			wantErr: []string{"nif"},
		},
		{
			name:    "missing name and bad email",
			req:     ClientRequest{NIF: "12345678Z", Email: "not-an-email"},
			wantErr: []string{"razon_social", "email"},
		},
		{
			name:    "three letter country",
			req:     ClientRequest{Name: "Acme SL", NIF: "12345678Z", Country: "ESP"},
			wantErr: []string{"pais"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.req)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			got := fields(t, err)
			for _, f := range tt.wantErr {
				if _, ok := got[f]; !ok {
					t.Errorf("fields = %v, missing %s", got, f)
				}
			}
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	t.Parallel()
	err := Validate(RegisterRequest{Email: "ana@example.com", Password: "short"})
	if got := fields(t, err)["password"]; got != "must be at least 8 characters" {
		t.Errorf("password message = %q", got)
	}

	err = Validate(TemplateRequest{Concept: "x", Base: "1", Frequency: "SEMANAL", StartDate: "2025-01-01"})
	if got := fields(t, err)["frecuencia"]; got != "must be one of: MENSUAL TRIMESTRAL ANUAL PERSONALIZADO" {
		t.Errorf("frecuencia message = %q", got)
	}
}

func TestInvoiceRequest_Input(t *testing.T) {
	t.Parallel()

	due := "2025-03-15"
	in, err := InvoiceRequest{
		ClientID:  "client-1",
		IssueDate: "2025-02-13",
		DueDate:   &due,
		Concept:   "Consultoría",
		Base:      "1000,50",
		IRPFRate:  "15",
	}.Input()
	if err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	if !in.IssueDate.Equal(time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("IssueDate = %v", in.IssueDate)
	}
	if in.DueDate == nil || in.DueDate.Day() != 15 {
		t.Errorf("DueDate = %v", in.DueDate)
	}
	if !in.Base.Equal(decimal.RequireFromString("1000.50")) {
		t.Errorf("Base = %s, want 1000.50", in.Base)
	}
	if !in.IVARate.Equal(decimal.NewFromInt(21)) {
		t.Errorf("IVARate = %s, want default 21", in.IVARate)
	}

	_, err = InvoiceRequest{IssueDate: "13/02/2025", Base: "mil"}.Input()
	got := fields(t, err)
	for _, f := range []string{"fecha_emision", "base_imponible"} {
		if _, ok := got[f]; !ok {
			t.Errorf("fields = %v, missing %s", got, f)
		}
	}
}

func TestToInvoiceResponse(t *testing.T) {
	t.Parallel()

	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := &model.Invoice{
		ID:        "inv-1",
		Number:    "2025-0001",
		IssueDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   &due,
		Base:      decimal.NewFromInt(1000),
		IVARate:   decimal.NewFromInt(21),
		IRPFRate:  decimal.NewFromInt(15),
		Status:    model.InvoicePending,
	}
	inv.ApplyTotals()

	resp := ToInvoiceResponse(inv, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	if resp.Total != "1060.00" || resp.IVAAmount != "210.00" || resp.IRPFAmount != "150.00" {
		t.Errorf("amounts = %s/%s/%s, want 210.00/150.00/1060.00", resp.IVAAmount, resp.IRPFAmount, resp.Total)
	}
	if resp.IVARate != "21" || resp.IssueDate != "2025-02-01" || *resp.DueDate != "2025-03-01" {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.Overdue {
		t.Error("Overdue = false after the due date")
	}

	if ToInvoiceResponse(inv, due).Overdue {
		t.Error("Overdue = true on the due date")
	}
}

func TestExpenseRequest_DeductibleDefault(t *testing.T) {
	t.Parallel()
	in, err := ExpenseRequest{Concept: "Hosting", Category: "SOFTWARE", IssueDate: "2025-01-10", Base: "20"}.Input()
	if err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	if !in.Deductible || in.DeductiblePct != nil {
		t.Errorf("Deductible = %v pct %v, want true and unset", in.Deductible, in.DeductiblePct)
	}

	no := false
	in, _ = ExpenseRequest{Concept: "Comida", Category: "OTROS", IssueDate: "2025-01-10", Base: "20", Deductible: &no}.Input()
	if in.Deductible {
		t.Error("Deductible = true, want false")
	}
}

func TestTemplateRequest_Input(t *testing.T) {
	t.Parallel()
	in, err := TemplateRequest{
		Concept:   "Cuota {mes}",
		Base:      "100",
		Frequency: "MENSUAL",
		Day:       10,
		StartDate: "2025-01-10",
	}.Input()
	if err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	if in.DayPolicy != "DIA_ESPECIFICO" {
		t.Errorf("DayPolicy = %s, want DIA_ESPECIFICO", in.DayPolicy)
	}

	bad := "2025-13-01"
	_, err = TemplateRequest{Base: "1", StartDate: "2025-01-01", EndDate: &bad}.Input()
	if _, ok := fields(t, err)["fecha_fin"]; !ok {
		t.Errorf("error = %v, want fecha_fin", err)
	}
}

func TestDateRangeRequest_Range(t *testing.T) {
	t.Parallel()
	from := "2025-01-01"
	gotFrom, gotTo, err := DateRangeRequest{From: &from}.Range()
	if err != nil || gotFrom == nil || gotTo != nil {
		t.Errorf("Range() = %v, %v, %v", gotFrom, gotTo, err)
	}
}
