// Package model defines the domain entities of the invoicing service:
// users and their keys, clients, issuer profiles, invoices, expenses,
// recurring templates, documents and fiscal preferences.
package model

import "time"

// User owns every other entity.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
