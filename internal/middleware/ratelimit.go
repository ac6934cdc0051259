package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/cache"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

// RateLimiter takes tokens from the shared buckets in Redis.
type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, keyID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for the rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	// Per API key, sized by the key's tier.
	APIEnabled bool
	// Per client IP, for the unauthenticated register and login routes.
	IPEnabled bool
	IPRPS     int
	IPBurst   int
}

// RateLimitAPI limits requests per API key according to its tier.
// It must run after Auth. Limiter failures let the request through.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.FromContext(r.Context())
			if !cfg.APIEnabled || authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier := model.TierRateLimit(authCtx.RateLimitTier)
			if tier.RequestsPerMinute == 0 {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Limiter.CheckAPIRateLimit(r.Context(), authCtx.KeyID, tier.RequestsPerMinute, tier.Burst)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("key_id", authCtx.KeyID),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, tier.RequestsPerMinute, result)
			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "api_key"),
					slog.String("key_id", authCtx.KeyID),
					slog.String("tier", authCtx.RateLimitTier),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits requests per client IP. It guards the public account
// routes against credential stuffing.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.IPEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.IPRPS, cfg.IPBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("type", "ip"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, result *cache.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Retry after "+strconv.Itoa(secs)+" seconds.")
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address without its port.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
