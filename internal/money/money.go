// Package money holds the euro arithmetic shared by invoices, expenses and
// tax reports. Amounts are decimal.Decimal values rounded to cents.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is the number of decimal places kept for euro amounts.
const Cents = 2

var hundred = decimal.NewFromInt(100)

// ErrInvalidAmount is returned for strings that are not decimal numbers.
var ErrInvalidAmount = errors.New("invalid amount")

// Round rounds d to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}

// Percent returns rate percent of base, rounded to cents.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(rate).Div(hundred))
}

// Portion returns pct percent of amount without rounding.
// Used when accumulating partially deductible amounts.
func Portion(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Parse reads an amount such as "1210.5" or "1210,50".
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Sum adds values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Max0 clamps negative amounts to zero.
func Max0(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Format renders d with exactly two decimals, "1210.00".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Cents)
}

// Amount is a euro amount that marshals to JSON as a two-decimal string.
type Amount struct {
	decimal.Decimal
}

// A wraps d rounded to cents.
func A(d decimal.Decimal) Amount {
	return Amount{Round(d)}
}

// MarshalJSON renders "1210.00".
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Format(a.Decimal) + `"`), nil
}

// UnmarshalJSON accepts quoted or bare numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}
