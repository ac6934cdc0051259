package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Version != Version {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"postgres": &stubPinger{}, "redis": &stubPinger{}},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:       "database down",
			checks:     map[string]HealthChecker{"postgres": &stubPinger{err: errors.New("connection refused")}, "redis": &stubPinger{}},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"postgres": "error: connection refused", "redis": "ok"},
		},
		{
			name:       "cache not configured",
			checks:     map[string]HealthChecker{"postgres": &stubPinger{}, "redis": nil},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks, nil)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			for name, want := range tt.wantChecks {
				if got := resp.Checks[name]; got != want {
					t.Errorf("check %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}
