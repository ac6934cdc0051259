package model

import "time"

// DefaultCountry is used when a client has no country.
const DefaultCountry = "ES"

// Client is a customer invoices are issued to.
type Client struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"razon_social"`
	NIF            string    `json:"nif"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"telefono,omitempty"`
	Address        string    `json:"direccion,omitempty"`
	PostalCode     string    `json:"codigo_postal,omitempty"`
	City           string    `json:"ciudad,omitempty"`
	Province       string    `json:"provincia,omitempty"`
	Country        string    `json:"pais"`
	Intracommunity bool      `json:"intracomunitario"`
	Active         bool      `json:"activo"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Normalize canonicalizes the NIF and country code.
func (c *Client) Normalize() {
	c.NIF = NormalizeTaxID(c.NIF)
	if c.Country == "" {
		c.Country = DefaultCountry
	}
	c.Country = NormalizeTaxID(c.Country)
}

// Validate checks the tax identifier against the client's kind.
func (c *Client) Validate() error {
	return ValidateTaxID(c.NIF, c.Intracommunity)
}
