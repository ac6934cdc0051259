package dto

import (
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// RegisterRequest represents the request body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"max=200"`
}

// Input converts the request.
func (r RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{Email: r.Email, Password: r.Password, Name: r.Name}
}

// LoginRequest represents the request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateAPIKeyRequest represents the request body for POST /api-keys.
type CreateAPIKeyRequest struct {
	Name          string   `json:"name" validate:"max=100"`
	Scopes        []string `json:"scopes" validate:"dive,oneof=read write admin"`
	RateLimitTier string   `json:"rate_limit_tier" validate:"omitempty,oneof=standard bulk unlimited"`
}

// Input converts the request.
func (r CreateAPIKeyRequest) Input() service.CreateKeyInput {
	return service.CreateKeyInput{Name: r.Name, Scopes: r.Scopes, RateLimitTier: r.RateLimitTier}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKeyResponse represents an API key without its secret.
type APIKeyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IssuedKeyResponse carries the plaintext key. It is shown once.
type IssuedKeyResponse struct {
	User *UserResponse `json:"user,omitempty"`
	Key  string        `json:"key"`
	APIKeyResponse
}

// ToAPIKeyResponse converts a model.APIKey.
func ToAPIKeyResponse(k *model.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:            k.ID,
		Name:          k.Name,
		KeyPrefix:     k.KeyPrefix,
		Scopes:        k.Scopes,
		RateLimitTier: k.RateLimitTier,
		LastUsedAt:    k.LastUsedAt,
		RevokedAt:     k.RevokedAt,
		CreatedAt:     k.CreatedAt,
	}
}

// ToIssuedKeyResponse converts a freshly minted key.
func ToIssuedKeyResponse(k *service.IssuedKey) IssuedKeyResponse {
	resp := IssuedKeyResponse{Key: k.Plaintext, APIKeyResponse: ToAPIKeyResponse(k.Key)}
	if k.User != nil {
		resp.User = &UserResponse{ID: k.User.ID, Email: k.User.Email, Name: k.User.Name, CreatedAt: k.User.CreatedAt}
	}
	return resp
}
