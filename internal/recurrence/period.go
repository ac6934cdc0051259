package recurrence

import (
	"strconv"
	"strings"
	"time"
)

// PeriodKind selects the billing period an invoice covers relative to its
// generation date.
type PeriodKind string

// Supported billing periods.
const (
	NoPeriod        PeriodKind = "NINGUNO"
	PreviousMonth   PeriodKind = "MES_ANTERIOR"
	PreviousQuarter PeriodKind = "TRIMESTRE_ANTERIOR"
	PreviousYear    PeriodKind = "ANO_ANTERIOR"
	CurrentMonth    PeriodKind = "MES_ACTUAL"
)

// IsValid reports whether k is a known period kind.
func (k PeriodKind) IsValid() bool {
	switch k {
	case NoPeriod, PreviousMonth, PreviousQuarter, PreviousYear, CurrentMonth:
		return true
	}
	return false
}

// Period is an inclusive date range billed by an invoice.
type Period struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
}

// PeriodFor returns the billing period for an invoice generated on date.
// ok is false for NINGUNO and unknown kinds.
func PeriodFor(kind PeriodKind, date time.Time) (Period, bool) {
	date = Truncate(date)
	y, m := date.Year(), date.Month()

	switch kind {
	case PreviousMonth:
		py, pm := AddMonths(y, m, -1)
		return Period{Kind: kind, Start: Date(py, pm, 1), End: Date(py, pm, DaysIn(py, pm))}, true
	case CurrentMonth:
		return Period{Kind: kind, Start: Date(y, m, 1), End: Date(y, m, DaysIn(y, m))}, true
	case PreviousQuarter:
		q := Quarter(date) - 1
		qy := y
		if q == 0 {
			q = 4
			qy--
		}
		start, end := QuarterBounds(qy, q)
		return Period{Kind: kind, Start: start, End: end}, true
	case PreviousYear:
		start, end := YearBounds(y - 1)
		return Period{Kind: kind, Start: start, End: end}, true
	}
	return Period{}, false
}

// Label renders the period the way it is printed on invoices:
// "marzo 2026", "1T 2026" or "2025".
func (p Period) Label() string {
	switch p.Kind {
	case PreviousMonth, CurrentMonth:
		return MonthName(p.Start.Month()) + " " + strconv.Itoa(p.Start.Year())
	case PreviousQuarter:
		return strconv.Itoa(Quarter(p.Start)) + "T " + strconv.Itoa(p.Start.Year())
	case PreviousYear:
		return strconv.Itoa(p.Start.Year())
	}
	return ""
}

// RenderConcept fills the placeholders of a template concept.
//
//	{periodo}   period label, or the generation month when there is no period
//	{mes}       month name of the period start
//	{trimestre} quarter of the period start, e.g. "2T"
//	{ano}       year of the period start
func RenderConcept(concept string, date time.Time, kind PeriodKind) string {
	if !strings.Contains(concept, "{") {
		return concept
	}

	ref, ok := PeriodFor(kind, date)
	if !ok {
		ref, _ = PeriodFor(CurrentMonth, date)
	}

	r := strings.NewReplacer(
		"{periodo}", ref.Label(),
		"{mes}", MonthName(ref.Start.Month()),
		"{trimestre}", strconv.Itoa(Quarter(ref.Start))+"T",
		"{ano}", strconv.Itoa(ref.Start.Year()),
	)
	return r.Replace(concept)
}
