// Package reconcile runs the aggregate reconciliation on a schedule and hands
// each report to a set of sinks.
package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"charity/internal/registry/models"
)

// Reconciler produces a report comparing the stored aggregate with the records.
type Reconciler interface {
	Reconcile(ctx context.Context) (models.ReconcileReport, error)
}

// ReportSink receives every report the job produces.
type ReportSink interface {
	Store(ctx context.Context, report models.ReconcileReport) error
}

// Job runs one reconciliation and fans the report out to its sinks.
type Job struct {
	reconciler Reconciler
	sinks      []ReportSink
	logger     *slog.Logger
}

type Option func(*Job)

func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

func WithSink(sink ReportSink) Option {
	return func(j *Job) {
		if sink != nil {
			j.sinks = append(j.sinks, sink)
		}
	}
}

func NewJob(reconciler Reconciler, opts ...Option) *Job {
	j := &Job{
		reconciler: reconciler,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run reconciles once. A sink failure does not stop the remaining sinks; all
// sink errors are joined into the returned error.
func (j *Job) Run(ctx context.Context) (models.ReconcileReport, error) {
	report, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "reconcile failed", "error", err)
		return models.ReconcileReport{}, err
	}

	var errs []error
	for _, sink := range j.sinks {
		if err := sink.Store(ctx, report); err != nil {
			j.logger.ErrorContext(ctx, "failed to store reconcile report", "error", err)
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// LogSink writes a one-line summary of each report.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Store(ctx context.Context, report models.ReconcileReport) error {
	level := slog.LevelInfo
	if report.Drifted() {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "reconcile report",
		"drifted", report.Drifted(),
		"total_projects", report.Stored.TotalProjects,
		"recomputed_projects", report.Recomputed.TotalProjects,
		"total_donations", report.Stored.TotalDonations,
		"recomputed_donations", report.Recomputed.TotalDonations,
		"missing_ids", len(report.MissingIDs),
	)
	return nil
}
