package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NotFoundHandler(), Config{
		Port:            0,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}, logger)
}

func TestShutdownStopsComponentsInReverseOrder(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	var order []string
	for _, name := range []string{"scheduler", "cache", "database"} {
		srv.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"database", "cache", "scheduler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdownJoinsComponentErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := 0
	srv.OnShutdown("a", func(context.Context) error { ran++; return errA })
	srv.OnShutdown("ok", func(context.Context) error { ran++; return nil })
	srv.OnShutdown("b", func(context.Context) error { ran++; return errB })

	err := srv.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("Shutdown() error = %v, want both component errors", err)
	}
	if ran != 3 {
		t.Errorf("ran %d components, want 3", ran)
	}
}

func TestShutdownPassesDeadline(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	srv.OnShutdown("worker", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	})

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	stopped := make(chan struct{})
	srv.OnShutdown("worker", func(context.Context) error {
		close(stopped)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	select {
	case <-stopped:
	default:
		t.Error("registered component was not stopped")
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), Config{Port: 8080}, logger)
	if got := srv.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q, want :8080", got)
	}
}
