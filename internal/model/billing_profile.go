package model

import "time"

// BillingProfile is the issuer data printed on invoices.
// A user has at most one active profile.
type BillingProfile struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"razon_social"`
	NIF        string    `json:"nif"`
	Address    string    `json:"direccion"`
	PostalCode string    `json:"codigo_postal"`
	City       string    `json:"ciudad"`
	Province   string    `json:"provincia"`
	Country    string    `json:"pais"`
	IBAN       string    `json:"iban,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"telefono,omitempty"`
	Active     bool      `json:"activo"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Normalize canonicalizes identifiers.
func (p *BillingProfile) Normalize() {
	p.NIF = NormalizeTaxID(p.NIF)
	p.IBAN = NormalizeTaxID(p.IBAN)
	if p.Country == "" {
		p.Country = DefaultCountry
	}
}
