package main

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://gestor:s3cret@db:5432/migestor?sslmode=disable", "postgres://gestor@db:5432/migestor?sslmode=disable"},
		{"redis://:s3cret@cache:6379/0", "redis://redacted@cache:6379/0"},
		{"redis://cache:6379/0", "redis://cache:6379/0"},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	dsn := "postgres://gestor:s3cret@db:5432/migestor"
	err := errors.New("dial " + dsn + " failed: password=s3cret rejected")

	got := sanitizeError(err, dsn, "")
	if strings.Contains(got, "s3cret") {
		t.Errorf("sanitizeError leaked the password: %q", got)
	}
	if !strings.Contains(got, "postgres://gestor@db:5432/migestor") {
		t.Errorf("sanitizeError dropped the redacted URL: %q", got)
	}
	if sanitizeError(nil) != "" {
		t.Error("sanitizeError(nil) should be empty")
	}
}
