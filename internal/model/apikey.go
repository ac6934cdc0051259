package model

import (
	"slices"
	"time"
)

// Scope constants for API key authorization.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// OwnerScopes are granted to the keys issued on register and login.
var OwnerScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// Rate limit tiers.
const (
	TierStandard  = "standard"
	TierBulk      = "bulk"
	TierUnlimited = "unlimited"
)

// RateLimitConfig defines rate limit parameters per tier.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// TierConfigs maps tier names to their rate limit configurations.
// Bulk is meant for integrations that import invoices and expenses in batches.
var TierConfigs = map[string]RateLimitConfig{
	TierStandard:  {RequestsPerMinute: 120, Burst: 30},
	TierBulk:      {RequestsPerMinute: 1200, Burst: 200},
	TierUnlimited: {RequestsPerMinute: 0, Burst: 0}, // 0 means unlimited
}

// APIKey is a credential issued to a user.
type APIKey struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"key_prefix"`
	Scopes        []string   `json:"scopes"`
	RateLimitTier string     `json:"rate_limit_tier"`
	Name          string     `json:"name,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// HasScope checks if the key has a specific scope.
// Admin scope implies all other scopes.
func (k *APIKey) HasScope(scope string) bool {
	return hasScope(k.Scopes, scope)
}

// RateLimit returns the limits for the key's tier, standard when unknown.
func (k *APIKey) RateLimit() RateLimitConfig {
	return TierRateLimit(k.RateLimitTier)
}

// TierRateLimit returns the limits for tier, standard when unknown.
func TierRateLimit(tier string) RateLimitConfig {
	if cfg, ok := TierConfigs[tier]; ok {
		return cfg
	}
	return TierConfigs[TierStandard]
}

// AuthContext is what the auth middleware stores in the request context.
type AuthContext struct {
	KeyID         string   `json:"key_id"`
	KeyPrefix     string   `json:"key_prefix"`
	UserID        string   `json:"user_id"`
	Scopes        []string `json:"scopes"`
	RateLimitTier string   `json:"rate_limit_tier"`
}

// HasScope checks if the auth context has a specific scope.
func (a *AuthContext) HasScope(scope string) bool {
	return hasScope(a.Scopes, scope)
}

func hasScope(scopes []string, scope string) bool {
	if slices.Contains(scopes, ScopeAdmin) {
		return true
	}
	return slices.Contains(scopes, scope)
}

// IsValidScope reports whether s is a known scope.
func IsValidScope(s string) bool {
	return slices.Contains(ValidScopes, s)
}
