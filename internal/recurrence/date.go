// Package recurrence computes generation dates and billing periods for
// recurring invoice templates.
//
// All dates handled here are civil dates: a time.Time at midnight UTC.
// Callers convert wall-clock instants with Truncate before using them.
package recurrence

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for civil dates.
const DateLayout = "2006-01-02"

// Date returns the civil date y-m-d.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t, keeping the calendar day as seen in t's location.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// Today returns the current civil date in loc.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Truncate(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsBusinessDay reports whether t falls Monday to Friday.
// Public holidays are not taken into account.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AddMonths moves (year, month) by n months, n may be negative.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	total := year*12 + int(month) - 1 + n
	y := total / 12
	m := total % 12
	if m < 0 {
		m += 12
		y--
	}
	return y, time.Month(m + 1)
}

// Quarter returns the calendar quarter (1-4) of t.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// QuarterBounds returns the first and last day of a calendar quarter.
func QuarterBounds(year, quarter int) (time.Time, time.Time) {
	first := time.Month((quarter-1)*3 + 1)
	last := first + 2
	return Date(year, first, 1), Date(year, last, DaysIn(year, last))
}

// YearBounds returns 1 January and 31 December of year.
func YearBounds(year int) (time.Time, time.Time) {
	return Date(year, time.January, 1), Date(year, time.December, 31)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the Spanish month name in lower case.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}
