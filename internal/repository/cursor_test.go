package repository

import (
	"errors"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	encoded := encodeCursor(cursor{ID: "01J0", At: at})

	got, err := decodeCursor(encoded)
	if err != nil {
		t.Fatalf("decodeCursor: %v", err)
	}
	if got.ID != "01J0" || !got.At.Equal(at) {
		t.Errorf("decoded = %+v", got)
	}
}

func TestCursor_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"not json", "bm90LWpzb24="},
		{"missing id", encodeCursor(cursor{Key: "Acme"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := decodeCursor(tt.input); !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("error = %v, want ErrInvalidCursor", err)
			}
		})
	}

	if c, err := decodeCursor(""); c != nil || err != nil {
		t.Errorf("empty cursor = %v, %v; want nil, nil", c, err)
	}
}

func TestPage_Limit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{0, DefaultPageLimit},
		{-3, DefaultPageLimit},
		{10, 10},
		{MaxPageLimit + 1, MaxPageLimit},
	}
	for _, tt := range tests {
		if got := (Page{Limit: tt.in}).limit(); got != tt.want {
			t.Errorf("limit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTrimPage(t *testing.T) {
	t.Parallel()

	type row struct{ id string }
	rows := []*row{{"a"}, {"b"}, {"c"}}
	next := func(r *row) cursor { return cursor{ID: r.id} }

	page, cur := trimPage(rows, 2, next)
	if len(page) != 2 || cur == "" {
		t.Fatalf("page = %d rows, cursor %q", len(page), cur)
	}
	decoded, _ := decodeCursor(cur)
	if decoded.ID != "b" {
		t.Errorf("cursor points at %q, want b", decoded.ID)
	}

	page, cur = trimPage(rows, 3, next)
	if len(page) != 3 || cur != "" {
		t.Errorf("last page = %d rows, cursor %q", len(page), cur)
	}
}

func TestArgList(t *testing.T) {
	t.Parallel()

	var args argList
	for i := 1; i <= 11; i++ {
		p := args.add(i)
		if i == 11 && p != "$11" {
			t.Errorf("placeholder = %s, want $11", p)
		}
	}
	if len(args) != 11 {
		t.Errorf("len = %d", len(args))
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike = %q", got)
	}
}
