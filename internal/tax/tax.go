// Package tax computes the AEAT forms a freelancer files from issued
// invoices and received expenses. Calculators are pure: callers load the
// period's data and pass it in.
//
// Cancelled invoices never take part in a calculation.
package tax

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

// ErrInvalidPeriod is returned for a year or quarter out of range.
var ErrInvalidPeriod = errors.New("invalid tax period")

// Result kinds of a self-assessment.
const (
	ResultPay        = "INGRESAR"
	ResultCompensate = "COMPENSAR"
	ResultRefund     = "DEVOLVER"
	ResultZero       = "CERO"
)

const (
	minYear = 2000
	maxYear = 2100
)

// ValidateYear checks year is in the supported range.
func ValidateYear(year int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	return nil
}

// ValidateQuarter checks year and quarter (1-4).
func ValidateQuarter(year, quarter int) error {
	if err := ValidateYear(year); err != nil {
		return err
	}
	if quarter < 1 || quarter > 4 {
		return fmt.Errorf("%w: quarter %d", ErrInvalidPeriod, quarter)
	}
	return nil
}

func within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// countedInvoices keeps the non-cancelled invoices issued in [from, to].
func countedInvoices(invoices []*model.Invoice, from, to time.Time) []*model.Invoice {
	var out []*model.Invoice
	for _, inv := range invoices {
		if inv.Counts() && within(inv.IssueDate, from, to) {
			out = append(out, inv)
		}
	}
	return out
}

func expensesIn(expenses []*model.Expense, from, to time.Time) []*model.Expense {
	var out []*model.Expense
	for _, e := range expenses {
		if within(e.IssueDate, from, to) {
			out = append(out, e)
		}
	}
	return out
}

func quarterOf(year, quarter int) (time.Time, time.Time) {
	return recurrence.QuarterBounds(year, quarter)
}

// resultKind classifies a 303-style result. Only the last quarter can ask
// for a refund; earlier negative results carry forward.
func resultKind(result decimal.Decimal, quarter int) string {
	switch {
	case result.IsPositive():
		return ResultPay
	case result.IsZero():
		return ResultZero
	case quarter == 4:
		return ResultRefund
	default:
		return ResultCompensate
	}
}

// party identifies a counterparty by tax id, falling back to its name.
func party(nif, name string) string {
	if nif != "" {
		return model.NormalizeTaxID(nif)
	}
	return name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
