package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

// IVA rates accepted on invoices and expenses (general, reduced,
// super-reduced and exempt).
var IVARates = []int64{21, 10, 4, 0}

// IRPF withholding rates accepted on issued invoices.
var IRPFRates = []int64{0, 7, 15, 19}

// IsValidIVARate reports whether r is one of IVARates.
func IsValidIVARate(r decimal.Decimal) bool {
	return isListedRate(r, IVARates)
}

// IsValidIRPFRate reports whether r is one of IRPFRates.
func IsValidIRPFRate(r decimal.Decimal) bool {
	return isListedRate(r, IRPFRates)
}

// IsValidPercent reports whether r is within 0..100.
func IsValidPercent(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(100))
}

func isListedRate(r decimal.Decimal, list []int64) bool {
	if !r.IsInteger() {
		return false
	}
	return slices.Contains(list, r.IntPart())
}
