package tax

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
)

func TestNumberFormat_Spanish(t *testing.T) {
	t.Parallel()

	f := newNumberFormat(language.Spanish)
	tests := []struct {
		in   string
		want string
	}{
		{"12345.67", "12.345,67"},
		{"-1234567.8", "-1.234.567,80"},
		{"5", "5,00"},
		{"0.05", "0,05"},
		{"-0.5", "-0,50"},
		{"999999.999", "1.000.000,00"},
	}
	for _, tt := range tests {
		if got := f.amount(money.A(dec(tt.in))); got != tt.want {
			t.Errorf("amount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	invoices := []*model.Invoice{
		invoice("2026-01-10", "12345.67", "0", "0", intracommunity(), withClient("DE123456789", "Kunde; GmbH")),
	}
	r, err := Modelo349(2026, 1, invoices, nil)
	if err != nil {
		t.Fatalf("Modelo349: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "NIF operador;Nombre;Clave;Base imponible\n") {
		t.Errorf("unexpected header in %q", buf.String())
	}

	cr := csv.NewReader(&buf)
	cr.Comma = ';'
	records, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header, operator and total", len(records))
	}
	if records[1][1] != "Kunde; GmbH" || records[1][3] != "12.345,67" {
		t.Errorf("operator row = %v", records[1])
	}
}
