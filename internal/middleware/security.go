package middleware

import (
	"net/http"
)

// DefaultMaxBodySize bounds JSON request bodies.
const DefaultMaxBodySize int64 = 1 << 20

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS for plain HTTP local runs.
	IsDevelopment bool
}

// Security sets the response headers every API response carries. The API
// serves JSON and CSV only, so the content policy forbids everything.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
			// Invoices and tax figures must not sit in shared caches.
			h.Set("Cache-Control", "no-store")
			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects bodies whose declared length exceeds maxBytes and
// caps streamed bodies at the same size.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
