package model

import (
	"errors"
	"testing"
)

func TestValidateNIF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid DNI", "12345678Z", false},
		{"DNI lower case with dash", "12345678-z", false},
		{"DNI wrong letter", "12345678A", true},
		{"valid NIE X", "X1234567L", false},
		{"NIE wrong letter", "X1234567A", true},
		{"CIF with digit control", "B12345674", false},
		{"CIF with wrong digit", "B12345675", true},
		{"CIF letter-only entity", "P1234567D", false},
		{"CIF letter-only entity with digit", "P12345674", true},
		{"CIF either control accepts letter", "G1234567D", false},
		{"CIF either control accepts digit", "G12345674", false},
		{"too short", "1234Z", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateNIF(tt.id)
			if tt.wantErr && !errors.Is(err, ErrInvalidNIF) {
				t.Errorf("ValidateNIF(%q) = %v, want ErrInvalidNIF", tt.id, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateNIF(%q) unexpected error: %v", tt.id, err)
			}
		})
	}
}

func TestValidateTaxID_Intracommunity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		intra   bool
		wantErr bool
	}{
		{"FR12345678901", true, false},
		{"DE123456789", true, false},
		{"ESB12345674", true, false},
		{"ESB12345675", true, true},
		{"FR12345678901", false, true},
		{"12345678Z", true, true},
	}

	for _, tt := range tests {
		err := ValidateTaxID(tt.id, tt.intra)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTaxID(%q, %v) = %v, wantErr %v", tt.id, tt.intra, err, tt.wantErr)
		}
	}
}

func TestValidateIBAN(t *testing.T) {
	t.Parallel()

	if !ValidateIBAN("ES91 2100 0418 4502 0005 1332") {
		t.Error("known valid IBAN rejected")
	}
	if ValidateIBAN("ES92 2100 0418 4502 0005 1332") {
		t.Error("IBAN with wrong check digits accepted")
	}
	if ValidateIBAN("ES91") {
		t.Error("short IBAN accepted")
	}
}

func TestClient_Normalize(t *testing.T) {
	t.Parallel()

	c := &Client{NIF: " b-1234567 4 "}
	c.Normalize()
	if c.NIF != "B12345674" {
		t.Errorf("NIF = %q, want B12345674", c.NIF)
	}
	if c.Country != DefaultCountry {
		t.Errorf("Country = %q, want %q", c.Country, DefaultCountry)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
