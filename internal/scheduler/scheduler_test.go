package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/cache"
	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

type fakeProcessor struct {
	mu      sync.Mutex
	calls   []string
	err     error
	called  chan struct{}
	timeout bool
}

func (p *fakeProcessor) ProcessDue(ctx context.Context, userID string) (*service.DueResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, userID)
	_, hasDeadline := ctx.Deadline()
	p.timeout = hasDeadline
	p.mu.Unlock()

	if p.called != nil {
		select {
		case p.called <- struct{}{}:
		default:
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &service.DueResult{Templates: 1, Generated: 2}, nil
}

func (p *fakeProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeLock struct {
	released *int
	mu       *sync.Mutex
}

func (l fakeLock) Release(context.Context) error {
	l.mu.Lock()
	*l.released++
	l.mu.Unlock()
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	err      error
	names    []string
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, name string, _ time.Duration) (Unlocker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.names = append(l.names, name)
	return fakeLock{released: &l.released, mu: &l.mu}, nil
}

func newTestScheduler(p Processor, l Locker, rec metrics.Recorder) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(p, l, time.Hour, time.Minute, rec, logger)
}

func TestScheduler_RunOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		lockErr     error
		processErr  error
		wantErr     bool
		wantCalls   int
		wantOutcome string
	}{
		{name: "completed", wantCalls: 1, wantOutcome: metrics.RunCompleted},
		{name: "lock held elsewhere", lockErr: cache.ErrLockHeld, wantOutcome: metrics.RunLocked},
		{name: "redis down", lockErr: errors.New("dial tcp: refused"), wantErr: true, wantOutcome: metrics.RunFailed},
		{name: "processing failed", processErr: errors.New("db gone"), wantErr: true, wantCalls: 1, wantOutcome: metrics.RunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			proc := &fakeProcessor{err: tt.processErr}
			locker := &fakeLocker{err: tt.lockErr}
			rec := metrics.NewInMemory()
			s := newTestScheduler(proc, locker, rec)

			err := s.RunOnce(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunOnce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if proc.count() != tt.wantCalls {
				t.Errorf("ProcessDue calls = %d, want %d", proc.count(), tt.wantCalls)
			}
			if got := rec.Snapshot().SchedulerRuns[tt.wantOutcome]; got != 1 {
				t.Errorf("runs[%s] = %d, want 1", tt.wantOutcome, got)
			}
			if tt.lockErr == nil && locker.released != 1 {
				t.Errorf("lock released %d times, want 1", locker.released)
			}
		})
	}
}

func TestScheduler_RunOnceProcessesAllUsersUnderDeadline(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{}
	locker := &fakeLocker{}
	s := newTestScheduler(proc, locker, nil)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(proc.calls) != 1 || proc.calls[0] != "" {
		t.Errorf("calls = %q, want one all-users run", proc.calls)
	}
	if !proc.timeout {
		t.Error("run context has no deadline")
	}
	if len(locker.names) != 1 || locker.names[0] != LockName {
		t.Errorf("locks = %v, want %s", locker.names, LockName)
	}
}

func TestScheduler_RunAndShutdown(t *testing.T) {
	t.Parallel()
	proc := &fakeProcessor{called: make(chan struct{}, 1)}
	s := newTestScheduler(proc, &fakeLocker{}, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	select {
	case <-proc.called:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not run on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v", err)
	}

	if err := s.Run(context.Background()); err == nil {
		t.Error("second Run() succeeded")
	}
}

func TestScheduler_ShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(&fakeProcessor{}, &fakeLocker{}, nil)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
