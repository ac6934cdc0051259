package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/money"
)

// InvoiceStatus is the payment state of an issued invoice.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDIENTE"
	InvoicePaid      InvoiceStatus = "PAGADA"
	InvoiceCancelled InvoiceStatus = "ANULADA"
)

// IsValid reports whether s is a known status.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoicePending, InvoicePaid, InvoiceCancelled:
		return true
	}
	return false
}

// Invoice is an issued invoice (factura emitida).
type Invoice struct {
	ID               string
	UserID           string
	ClientID         string
	BillingProfileID *string
	TemplateID       *string
	Number           string
	IssueDate        time.Time
	DueDate          *time.Time
	Concept          string
	Description      string
	Base             decimal.Decimal
	IVARate          decimal.Decimal
	IVAAmount        decimal.Decimal
	IRPFRate         decimal.Decimal
	IRPFAmount       decimal.Decimal
	Total            decimal.Decimal
	Status           InvoiceStatus
	PaidDate         *time.Time
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined from clientes on read.
	ClientName           string
	ClientNIF            string
	ClientIntracommunity bool
}

// Totals are the derived amounts of an invoice line.
type Totals struct {
	IVAAmount  decimal.Decimal
	IRPFAmount decimal.Decimal
	Total      decimal.Decimal
}

// ComputeTotals derives the tax amounts and total from a taxable base.
// Each tax is rounded to cents before the total is formed.
func ComputeTotals(base, ivaRate, irpfRate decimal.Decimal) Totals {
	base = money.Round(base)
	iva := money.Percent(base, ivaRate)
	irpf := money.Percent(base, irpfRate)
	return Totals{
		IVAAmount:  iva,
		IRPFAmount: irpf,
		Total:      money.Sum(base, iva, irpf.Neg()),
	}
}

// ApplyTotals recomputes IVAAmount, IRPFAmount and Total from Base and rates.
func (i *Invoice) ApplyTotals() {
	i.Base = money.Round(i.Base)
	t := ComputeTotals(i.Base, i.IVARate, i.IRPFRate)
	i.IVAAmount = t.IVAAmount
	i.IRPFAmount = t.IRPFAmount
	i.Total = t.Total
}

// Editable reports whether amounts and dates may still change.
func (i *Invoice) Editable() bool {
	return i.Status == InvoicePending
}

// IsOverdue reports whether a pending invoice is past its due date.
func (i *Invoice) IsOverdue(today time.Time) bool {
	return i.Status == InvoicePending && i.DueDate != nil && i.DueDate.Before(today)
}

// Counts reports whether the invoice takes part in tax reports.
func (i *Invoice) Counts() bool {
	return i.Status != InvoiceCancelled
}

// FormatInvoiceNumber renders the sequential number for a year: 2026-0007.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}
