package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

const (
	// minAuthDuration is the minimum time spent on a failed or slow-path
	// authentication so response times do not reveal which check failed.
	minAuthDuration = 200 * time.Millisecond

	lastUsedTimeout = 5 * time.Second
)

// KeyStore looks up API keys by their public prefix.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches verified keys so the argon2 check runs once per key.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, authCtx *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Keys   KeyStore
	Cache  AuthCache // optional
	// MinDuration overrides minAuthDuration when positive.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates API requests.
// It reads the key from the Authorization or X-API-Key header, verifies it
// and stores the resulting model.AuthContext in the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	floor := minAuthDuration
	if cfg.MinDuration > 0 {
		floor = cfg.MinDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			fail := func(reason string) {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", getClientIP(r)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if elapsed := time.Since(start); elapsed < floor {
					time.Sleep(floor - elapsed)
				}
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
			}

			key := extractAPIKey(r)
			if key == "" {
				fail("missing_key")
				return
			}

			parsed, err := auth.ParseAPIKey(key)
			if err != nil {
				auth.VerifyDummy(key)
				fail("invalid_format")
				return
			}

			cacheKey := auth.CacheKey(key)
			if cfg.Cache != nil {
				if authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey); authCtx != nil {
					logSuccess(cfg.Logger, r, authCtx, true)
					next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), authCtx)))
					return
				}
			}

			keys, err := cfg.Keys.GetAPIKeysByPrefix(r.Context(), parsed.Prefix)
			if err != nil {
				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				fail("lookup_error")
				return
			}
			if len(keys) == 0 {
				auth.VerifyDummy(key)
				fail("invalid_key")
				return
			}

			// Prefixes can collide, so every candidate is checked.
			var matched *model.APIKey
			for _, k := range keys {
				if k.IsRevoked() {
					continue
				}
				if ok, err := auth.VerifySecret(key, k.KeyHash); err == nil && ok {
					matched = k
					break
				}
			}
			if matched == nil {
				fail("invalid_key")
				return
			}

			authCtx := &model.AuthContext{
				KeyID:         matched.ID,
				KeyPrefix:     matched.KeyPrefix,
				UserID:        matched.UserID,
				Scopes:        matched.Scopes,
				RateLimitTier: matched.RateLimitTier,
			}
			if cfg.Cache != nil {
				if err := cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx); err != nil {
					cfg.Logger.Warn("failed to cache auth context", slog.String("error", err.Error()))
				}
			}

			go func(ctx context.Context, id string) {
				ctx, cancel := context.WithTimeout(ctx, lastUsedTimeout)
				defer cancel()
				if err := cfg.Keys.UpdateAPIKeyLastUsed(ctx, id); err != nil {
					cfg.Logger.Warn("failed to update key last use", slog.String("key_id", id), slog.String("error", err.Error()))
				}
			}(context.WithoutCancel(r.Context()), matched.ID)

			logSuccess(cfg.Logger, r, authCtx, false)
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), authCtx)))
		})
	}
}

func logSuccess(logger *slog.Logger, r *http.Request, authCtx *model.AuthContext, cacheHit bool) {
	logger.Debug("authentication successful",
		slog.String("key_id", authCtx.KeyID),
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("user_id", authCtx.UserID),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractAPIKey reads "Authorization: Bearer <key>", falling back to
// "X-API-Key: <key>".
func extractAPIKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
