package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const jobName = "reconcile-aggregate"

// Scheduler runs a Job every interval. Overlapping runs are rescheduled
// rather than stacked.
type Scheduler struct {
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// NewScheduler registers job to run every interval. Runs use a context
// derived from ctx that is cancelled on Shutdown.
func NewScheduler(ctx context.Context, job *Job, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reconcile interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_, _ = job.Run(runCtx)
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("register %s job: %w", jobName, err)
	}

	return &Scheduler{scheduler: s, cancel: cancel, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	s.logger.Info("reconcile scheduler started", "job", jobName)
}

// Shutdown cancels in-flight runs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("reconcile scheduler stopped")
	return nil
}
