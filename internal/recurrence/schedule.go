package recurrence

import (
	"errors"
	"time"
)

// Frequency is how often a template produces an invoice.
type Frequency string

// Supported frequencies.
const (
	Monthly   Frequency = "MENSUAL"
	Quarterly Frequency = "TRIMESTRAL"
	Yearly    Frequency = "ANUAL"
	Custom    Frequency = "PERSONALIZADO"
)

// IsValid reports whether f is a known frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case Monthly, Quarterly, Yearly, Custom:
		return true
	}
	return false
}

// months is the step in months for calendar frequencies, 0 for Custom.
func (f Frequency) months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Yearly:
		return 12
	}
	return 0
}

// DayPolicy selects the generation day inside a month.
type DayPolicy string

// Supported generation-day policies.
const (
	SpecificDay      DayPolicy = "DIA_ESPECIFICO"
	FirstCalendarDay DayPolicy = "PRIMER_DIA_NATURAL"
	FirstBusinessDay DayPolicy = "PRIMER_DIA_LABORAL"
	LastCalendarDay  DayPolicy = "ULTIMO_DIA_NATURAL"
	LastBusinessDay  DayPolicy = "ULTIMO_DIA_LABORAL"
)

// IsValid reports whether p is a known policy.
func (p DayPolicy) IsValid() bool {
	switch p {
	case SpecificDay, FirstCalendarDay, FirstBusinessDay, LastCalendarDay, LastBusinessDay:
		return true
	}
	return false
}

// MaxOccurrences bounds every enumeration.
const MaxOccurrences = 1000

// MaxIntervalDays is the longest custom interval accepted.
const MaxIntervalDays = 366

// Schedule validation errors.
var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidPolicy    = errors.New("invalid generation day policy")
	ErrInvalidDay       = errors.New("generation day must be between 1 and 31")
	ErrInvalidInterval  = errors.New("custom interval must be between 1 and 366 days")
	ErrMissingStart     = errors.New("start date is required")
	ErrEndBeforeStart   = errors.New("end date is before start date")
)

// Schedule describes when a recurring template generates invoices.
type Schedule struct {
	Frequency    Frequency
	IntervalDays int // PERSONALIZADO only
	Policy       DayPolicy
	Day          int // DIA_ESPECIFICO only
	Start        time.Time
	End          *time.Time
}

// Validate checks the schedule is computable.
func (s Schedule) Validate() error {
	if !s.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if s.Start.IsZero() {
		return ErrMissingStart
	}
	if s.End != nil && Truncate(*s.End).Before(Truncate(s.Start)) {
		return ErrEndBeforeStart
	}
	if s.Frequency == Custom {
		if s.IntervalDays < 1 || s.IntervalDays > MaxIntervalDays {
			return ErrInvalidInterval
		}
		return nil
	}
	if !s.Policy.IsValid() {
		return ErrInvalidPolicy
	}
	if s.Policy == SpecificDay && (s.Day < 1 || s.Day > 31) {
		return ErrInvalidDay
	}
	return nil
}

// DayInMonth returns the generation date in the given month.
// DIA_ESPECIFICO is clamped to the month length, so day 31 in February
// yields the 28th (29th in leap years). Unknown policies fall back to
// the first calendar day.
func DayInMonth(year int, month time.Month, policy DayPolicy, day int) time.Time {
	last := DaysIn(year, month)
	switch policy {
	case SpecificDay:
		d := day
		if d < 1 {
			d = 1
		}
		if d > last {
			d = last
		}
		return Date(year, month, d)
	case FirstBusinessDay:
		t := Date(year, month, 1)
		for !IsBusinessDay(t) {
			t = t.AddDate(0, 0, 1)
		}
		return t
	case LastCalendarDay:
		return Date(year, month, last)
	case LastBusinessDay:
		t := Date(year, month, last)
		for !IsBusinessDay(t) {
			t = t.AddDate(0, 0, -1)
		}
		return t
	default:
		return Date(year, month, 1)
	}
}

// First returns the first occurrence on or after Start.
// ok is false when End is before that occurrence.
func (s Schedule) First() (time.Time, bool) {
	start := Truncate(s.Start)

	var first time.Time
	if s.Frequency == Custom {
		first = start
	} else {
		y, m := start.Year(), start.Month()
		first = DayInMonth(y, m, s.Policy, s.Day)
		if first.Before(start) {
			y, m = AddMonths(y, m, s.Frequency.months())
			first = DayInMonth(y, m, s.Policy, s.Day)
		}
	}

	if s.pastEnd(first) {
		return time.Time{}, false
	}
	return first, true
}

// Next returns the occurrence following occ.
// Calendar frequencies recompute the policy day in the target month, so a
// clamped day does not drift: 31 Jan, 28 Feb, 31 Mar.
func (s Schedule) Next(occ time.Time) (time.Time, bool) {
	occ = Truncate(occ)

	var next time.Time
	if s.Frequency == Custom {
		if s.IntervalDays < 1 {
			return time.Time{}, false
		}
		next = occ.AddDate(0, 0, s.IntervalDays)
	} else {
		step := s.Frequency.months()
		if step == 0 {
			return time.Time{}, false
		}
		y, m := AddMonths(occ.Year(), occ.Month(), step)
		next = DayInMonth(y, m, s.Policy, s.Day)
	}

	if s.pastEnd(next) {
		return time.Time{}, false
	}
	return next, true
}

// OnOrAfter returns the first occurrence that is not before t.
func (s Schedule) OnOrAfter(t time.Time) (time.Time, bool) {
	t = Truncate(t)

	first, ok := s.First()
	if !ok {
		return time.Time{}, false
	}
	if !first.Before(t) {
		return first, true
	}

	var occ time.Time
	if s.Frequency == Custom {
		if s.IntervalDays < 1 {
			return time.Time{}, false
		}
		steps := daysBetween(first, t) / s.IntervalDays
		occ = first.AddDate(0, 0, steps*s.IntervalDays)
		if occ.Before(t) {
			occ = occ.AddDate(0, 0, s.IntervalDays)
		}
	} else {
		step := s.Frequency.months()
		k := monthsBetween(first, t) / step
		y, m := AddMonths(first.Year(), first.Month(), k*step)
		occ = DayInMonth(y, m, s.Policy, s.Day)
		if occ.Before(t) {
			y, m = AddMonths(y, m, step)
			occ = DayInMonth(y, m, s.Policy, s.Day)
		}
	}

	if s.pastEnd(occ) {
		return time.Time{}, false
	}
	return occ, true
}

// NextAfter returns the first occurrence strictly after t.
func (s Schedule) NextAfter(t time.Time) (time.Time, bool) {
	return s.OnOrAfter(Truncate(t).AddDate(0, 0, 1))
}

// Between lists the occurrences in [from, to], at most MaxOccurrences.
func (s Schedule) Between(from, to time.Time) []time.Time {
	from, to = Truncate(from), Truncate(to)
	if to.Before(from) {
		return nil
	}

	var out []time.Time
	occ, ok := s.OnOrAfter(from)
	for ok && !occ.After(to) && len(out) < MaxOccurrences {
		out = append(out, occ)
		next, more := s.Next(occ)
		if !more || !next.After(occ) {
			break
		}
		occ = next
	}
	return out
}

// Upcoming lists the next n occurrences on or after from.
func (s Schedule) Upcoming(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	if n > MaxOccurrences {
		n = MaxOccurrences
	}

	out := make([]time.Time, 0, n)
	occ, ok := s.OnOrAfter(from)
	for ok && len(out) < n {
		out = append(out, occ)
		next, more := s.Next(occ)
		if !more || !next.After(occ) {
			break
		}
		occ = next
	}
	return out
}

func (s Schedule) pastEnd(t time.Time) bool {
	return s.End != nil && t.After(Truncate(*s.End))
}

// Missing returns the expected dates that have no counterpart in existing.
func Missing(expected, existing []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(existing))
	for _, t := range existing {
		seen[Truncate(t)] = struct{}{}
	}

	var out []time.Time
	for _, t := range expected {
		if _, ok := seen[Truncate(t)]; !ok {
			out = append(out, Truncate(t))
		}
	}
	return out
}
