package dto

import (
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// ClientRequest represents the request body for creating or replacing a client.
type ClientRequest struct {
	Name           string `json:"razon_social" validate:"required,max=200"`
	NIF            string `json:"nif" validate:"required,nif"`
	Email          string `json:"email" validate:"omitempty,email,max=254"`
	Phone          string `json:"telefono" validate:"max=30"`
	Address        string `json:"direccion" validate:"max=300"`
	PostalCode     string `json:"codigo_postal" validate:"max=10"`
	City           string `json:"ciudad" validate:"max=100"`
	Province       string `json:"provincia" validate:"max=100"`
	Country        string `json:"pais" validate:"omitempty,len=2,alpha"`
	Intracommunity bool   `json:"intracomunitario"`
}

// Input converts the request.
func (r ClientRequest) Input() service.ClientInput {
	return service.ClientInput{
		Name:           r.Name,
		NIF:            r.NIF,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		PostalCode:     r.PostalCode,
		City:           r.City,
		Province:       r.Province,
		Country:        r.Country,
		Intracommunity: r.Intracommunity,
	}
}

// BillingProfileRequest represents the request body for a billing profile.
type BillingProfileRequest struct {
	Name       string `json:"razon_social" validate:"required,max=200"`
	NIF        string `json:"nif" validate:"required,nif"`
	Address    string `json:"direccion" validate:"required,max=300"`
	PostalCode string `json:"codigo_postal" validate:"max=10"`
	City       string `json:"ciudad" validate:"max=100"`
	Province   string `json:"provincia" validate:"max=100"`
	Country    string `json:"pais" validate:"omitempty,len=2,alpha"`
	IBAN       string `json:"iban" validate:"max=42"`
	Email      string `json:"email" validate:"omitempty,email,max=254"`
	Phone      string `json:"telefono" validate:"max=30"`
}

// Input converts the request.
func (r BillingProfileRequest) Input() service.BillingProfileInput {
	return service.BillingProfileInput{
		Name:       r.Name,
		NIF:        r.NIF,
		Address:    r.Address,
		PostalCode: r.PostalCode,
		City:       r.City,
		Province:   r.Province,
		Country:    r.Country,
		IBAN:       r.IBAN,
		Email:      r.Email,
		Phone:      r.Phone,
	}
}
