// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// UploadPurger removes uploads older than a given age.
type UploadPurger interface {
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	uploads  UploadPurger
	schedule string
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that sweeps uploads left behind by
// interrupted imports. schedule is a standard 5-field spec or a descriptor
// such as "@hourly".
func NewScheduler(uploads UploadPurger, schedule string, maxAge time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		uploads:  uploads,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweepStaleUploads)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("upload_sweep", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the upload sweep synchronously.
func (s *Scheduler) RunNow() {
	s.sweepStaleUploads()
}

func (s *Scheduler) sweepStaleUploads() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.uploads.PurgeOlderThan(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("failed to sweep stale uploads",
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("stale upload sweep completed",
		slog.Int("removed", removed),
		slog.Duration("max_age", s.maxAge),
	)
}
