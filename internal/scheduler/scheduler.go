// Package scheduler runs recurring invoice generation in the background.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/cache"
	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

const (
	// LockName is the Redis lock that keeps a single instance generating.
	LockName = "scheduler:recurring-invoices"

	DefaultInterval = time.Hour
	DefaultLockTTL  = 10 * time.Minute
)

// Processor generates the due occurrences of every user's templates.
type Processor interface {
	ProcessDue(ctx context.Context, userID string) (*service.DueResult, error)
}

// Unlocker releases a held lock.
type Unlocker interface {
	Release(ctx context.Context) error
}

// Locker takes a named lock for ttl. It returns cache.ErrLockHeld when
// another instance holds it.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Unlocker, error)
}

// RedisLocker adapts *cache.Cache to Locker.
type RedisLocker struct {
	Cache *cache.Cache
}

// Acquire implements Locker.
func (l RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (Unlocker, error) {
	lock, err := l.Cache.AcquireLock(ctx, name, ttl)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// Scheduler periodically runs due processing under a distributed lock.
type Scheduler struct {
	processor Processor
	locker    Locker
	interval  time.Duration
	lockTTL   time.Duration
	metrics   metrics.Recorder
	logger    *slog.Logger

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// New creates a Scheduler. A run is bounded by lockTTL so the lock never
// expires under a live run.
func New(processor Processor, locker Locker, interval, lockTTL time.Duration, recorder metrics.Recorder, logger *slog.Logger) *Scheduler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Scheduler{
		processor: processor,
		locker:    locker,
		interval:  interval,
		lockTTL:   lockTTL,
		metrics:   recorder,
		logger:    logger.With("component", "scheduler"),
	}
}

// Run processes due templates right away and then every interval.
// Blocks until ctx is cancelled or Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	s.logger.Info("scheduler started", "interval", s.interval, "lock_ttl", s.lockTTL)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduler run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce takes the lock and processes every user's due templates.
// A lock held elsewhere is not an error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	lock, err := s.locker.Acquire(ctx, LockName, s.lockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			s.metrics.IncSchedulerRun(metrics.RunLocked)
			s.logger.Debug("scheduler lock held elsewhere, skipping run")
			return nil
		}
		s.metrics.IncSchedulerRun(metrics.RunFailed)
		return fmt.Errorf("acquire scheduler lock: %w", err)
	}
	defer func() {
		// The run context may be cancelled by now.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			s.logger.Warn("scheduler lock release failed", "error", err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	defer cancel()

	start := time.Now()
	res, err := s.processor.ProcessDue(runCtx, "")
	elapsed := time.Since(start)
	s.metrics.ObserveSchedulerDuration(elapsed)

	if err != nil {
		s.metrics.IncSchedulerRun(metrics.RunFailed)
		return fmt.Errorf("process due templates: %w", err)
	}
	s.metrics.IncSchedulerRun(metrics.RunCompleted)

	s.logger.Info("scheduler run completed",
		"templates", res.Templates,
		"generated", res.Generated,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

// Shutdown stops the loop and waits for an in-flight run.
// It implements server.ShutdownFunc.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	s.logger.Info("scheduler shutdown initiated")
	cancel()

	select {
	case <-done:
		s.logger.Info("scheduler shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler shutdown timed out")
		return ctx.Err()
	}
}
