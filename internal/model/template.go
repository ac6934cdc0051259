package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

// Template is a recurring invoice template. Each occurrence of its schedule
// produces one invoice.
type Template struct {
	ID               string
	UserID           string
	ClientID         string
	BillingProfileID *string
	Name             string
	Concept          string
	Description      string
	Base             decimal.Decimal
	IVARate          decimal.Decimal
	IRPFRate         decimal.Decimal
	Frequency        recurrence.Frequency
	IntervalDays     int
	DayPolicy        recurrence.DayPolicy
	Day              int
	StartDate        time.Time
	EndDate          *time.Time
	PeriodKind       recurrence.PeriodKind
	DueDays          int
	Active           bool
	NextDate         *time.Time
	LastDate         *time.Time
	GeneratedCount   int
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined from clientes on read.
	ClientName string
}

// Schedule returns the template's recurrence rule.
func (t *Template) Schedule() recurrence.Schedule {
	return recurrence.Schedule{
		Frequency:    t.Frequency,
		IntervalDays: t.IntervalDays,
		Policy:       t.DayPolicy,
		Day:          t.Day,
		Start:        t.StartDate,
		End:          t.EndDate,
	}
}

// Ended reports whether the schedule has no occurrence after today.
func (t *Template) Ended(today time.Time) bool {
	return t.EndDate != nil && recurrence.Truncate(*t.EndDate).Before(today)
}

// InvoiceFor drafts the invoice for the occurrence on date. The number is
// left empty so storage allocates the next one.
func (t *Template) InvoiceFor(date time.Time) *Invoice {
	date = recurrence.Truncate(date)

	inv := &Invoice{
		UserID:           t.UserID,
		ClientID:         t.ClientID,
		BillingProfileID: t.BillingProfileID,
		IssueDate:        date,
		Concept:          recurrence.RenderConcept(t.Concept, date, t.PeriodKind),
		Description:      t.Description,
		Base:             t.Base,
		IVARate:          t.IVARate,
		IRPFRate:         t.IRPFRate,
		Status:           InvoicePending,
	}
	if t.ID != "" {
		id := t.ID
		inv.TemplateID = &id
	}
	if t.DueDays > 0 {
		due := date.AddDate(0, 0, t.DueDays)
		inv.DueDate = &due
	}
	if p, ok := recurrence.PeriodFor(t.PeriodKind, date); ok {
		start, end := p.Start, p.End
		inv.PeriodStart = &start
		inv.PeriodEnd = &end
	}
	inv.ApplyTotals()
	return inv
}
