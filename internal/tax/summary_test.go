package tax

import (
	"errors"
	"testing"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

func TestYearSummary(t *testing.T) {
	t.Parallel()

	invoices := []*model.Invoice{
		invoice("2026-02-10", "1000", "21", "15"),
		invoice("2026-11-10", "500", "21", "0", status(model.InvoicePending)),
		invoice("2026-11-11", "700", "21", "0", status(model.InvoiceCancelled)),
	}
	expenses := []*model.Expense{expense("2026-05-10", "200", "21", deductiblePct("50"))}

	s, err := YearSummary(2026, invoices, expenses)
	if err != nil {
		t.Fatalf("YearSummary: %v", err)
	}
	if len(s.Quarters) != 4 {
		t.Fatalf("quarters = %d", len(s.Quarters))
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Q1 income", s.Quarters[0].Income.String(), "1000"},
		{"Q1 irpf", s.Quarters[0].IRPFWithheld.String(), "150"},
		{"Q2 expenses", s.Quarters[1].Expenses.String(), "100"},
		{"Q2 iva input", s.Quarters[1].IVAInput.String(), "21"},
		{"Q4 pending", s.Quarters[3].Pending.String(), "605"},
		{"total income", s.Total.Income.String(), "1500"},
		{"total profit", s.Total.Profit.String(), "1400"},
		{"total iva result", s.Total.IVAResult.String(), "294"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}
}

func TestCalendar(t *testing.T) {
	t.Parallel()

	got, err := Calendar(2026, []string{model.Modelo347, model.Modelo303, model.Modelo390})
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}

	want := []struct{ modelo, period, date string }{
		{"303", "1T", "2026-04-20"},
		{"303", "2T", "2026-07-20"},
		{"303", "3T", "2026-10-20"},
		{"303", "4T", "2027-02-01"},
		{"390", PeriodAnnual, "2027-02-01"},
		{"347", PeriodAnnual, "2027-03-01"},
	}
	if len(got) != len(want) {
		t.Fatalf("deadlines = %+v", got)
	}
	for i, w := range want {
		if got[i].Modelo != w.modelo || got[i].Period != w.period || got[i].Date != w.date {
			t.Errorf("deadline %d = %+v, want %v", i, got[i], w)
		}
		if got[i].Description == "" {
			t.Errorf("deadline %d has no description", i)
		}
	}
}

func TestCalendar_UnknownModelo(t *testing.T) {
	t.Parallel()

	if _, err := Calendar(2026, []string{"999"}); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("error = %v, want ErrInvalidPeriod", err)
	}
}
