package model

import (
	"testing"
	"time"
)

func TestAPIKey_HasScope(t *testing.T) {
	testCases := []struct {
		name      string
		keyScopes []string
		checkFor  string
		want      bool
	}{
		{
			name:      "has exact scope",
			keyScopes: []string{ScopeRead, ScopeWrite},
			checkFor:  ScopeRead,
			want:      true,
		},
		{
			name:      "does not have scope",
			keyScopes: []string{ScopeRead},
			checkFor:  ScopeWrite,
			want:      false,
		},
		{
			name:      "admin implies read",
			keyScopes: []string{ScopeAdmin},
			checkFor:  ScopeRead,
			want:      true,
		},
		{
			name:      "admin implies write",
			keyScopes: []string{ScopeAdmin},
			checkFor:  ScopeWrite,
			want:      true,
		},
		{
			name:      "empty scopes",
			keyScopes: []string{},
			checkFor:  ScopeRead,
			want:      false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := &APIKey{Scopes: tc.keyScopes}
			if got := key.HasScope(tc.checkFor); got != tc.want {
				t.Errorf("HasScope(%s) = %v, want %v", tc.checkFor, got, tc.want)
			}
		})
	}
}

func TestAuthContext_HasScope(t *testing.T) {
	ctx := &AuthContext{Scopes: []string{ScopeRead}}
	if !ctx.HasScope(ScopeRead) {
		t.Error("read key should have read scope")
	}
	if ctx.HasScope(ScopeWrite) {
		t.Error("read key should not have write scope")
	}
}

func TestAPIKey_IsRevoked(t *testing.T) {
	key := &APIKey{}
	if key.IsRevoked() {
		t.Error("new key should not be revoked")
	}
	now := time.Now()
	key.RevokedAt = &now
	if !key.IsRevoked() {
		t.Error("key with revoked_at should be revoked")
	}
}

func TestAPIKey_RateLimit(t *testing.T) {
	testCases := []struct {
		tier      string
		wantRPM   int
		wantBurst int
	}{
		{TierStandard, 120, 30},
		{TierBulk, 1200, 200},
		{TierUnlimited, 0, 0},
		{"unknown", 120, 30},
	}

	for _, tc := range testCases {
		t.Run(tc.tier, func(t *testing.T) {
			key := &APIKey{RateLimitTier: tc.tier}
			cfg := key.RateLimit()
			if cfg.RequestsPerMinute != tc.wantRPM {
				t.Errorf("RPM = %d, want %d", cfg.RequestsPerMinute, tc.wantRPM)
			}
			if cfg.Burst != tc.wantBurst {
				t.Errorf("Burst = %d, want %d", cfg.Burst, tc.wantBurst)
			}
		})
	}
}

func TestIsValidScope(t *testing.T) {
	for _, s := range []string{ScopeRead, ScopeWrite, ScopeAdmin} {
		if !IsValidScope(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidScope("webhook") {
		t.Error("webhook is not a scope of this service")
	}
}
