// Package scheduler runs recurring maintenance jobs on cron expressions:
// the periodic guide refresh and the expired-cache sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"

	"github.com/zaptv/zaptv/internal/observability"
)

// Job is one recurring unit of work.
type Job struct {
	// Name identifies the job in logs.
	Name string
	// Spec is a 5-field cron expression or a descriptor like "@hourly".
	Spec string
	// Run does the work. The context is cancelled when the scheduler stops.
	Run func(ctx context.Context) error
}

// Scheduler schedules and executes jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a scheduler. Jobs are registered with Schedule before Start.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		logger: logger.With(slog.String("component", "scheduler")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule registers a job. Returns an error for an invalid cron spec.
func (s *Scheduler) Schedule(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(job) }); err != nil {
		return fmt.Errorf("scheduling %s with spec %q: %w", job.Name, job.Spec, err)
	}
	s.logger.Info("job scheduled",
		slog.String("job", job.Name),
		slog.String("spec", job.Spec),
	)
	return nil
}

// RunNow executes a job immediately on the caller's goroutine, outside its
// cron schedule. Used for priming runs at startup.
func (s *Scheduler) RunNow(job Job) {
	s.execute(job)
}

// Start begins dispatching scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for in-flight cron entries to finish,
// up to the deadline of ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	stopped := s.cron.Stop()
	s.cancel()

	select {
	case <-stopped.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// execute runs one job with a fresh run id, timing, and panic containment.
func (s *Scheduler) execute(job Job) {
	runID := ulid.Make().String()
	logger := s.logger.With(
		slog.String("job", job.Name),
		slog.String("run_id", runID),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	done := observability.TimedOperation(s.ctx, logger, job.Name)
	defer done()

	start := time.Now()
	if err := job.Run(s.ctx); err != nil {
		logger.Warn("job failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("job completed", slog.Duration("duration", time.Since(start)))
}
