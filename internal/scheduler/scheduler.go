package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/parking-data-aggregation/internal/ingest"
	"github.com/i474232898/parking-data-aggregation/internal/pipeline"
)

// Scheduler periodically runs an ingestion pass followed by the analytics
// pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ingest    *ingest.Service
	runner    *pipeline.Runner
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger
}

// New creates a Scheduler. timeout bounds each ingestion's outbound calls.
func New(ing *ingest.Service, runner *pipeline.Runner, interval, timeout time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ingest:    ing,
		runner:    runner,
		interval:  interval,
		timeout:   timeout,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.log.Info().Msg("scheduled run starting")

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.ingest.Run(ctx); err != nil {
			// Analysis still runs: the existing history is worth refreshing
			// even when the live fetch failed.
			s.log.Error().Err(err).Msg("ingestion failed")
		}
		if err := s.runner.Analyze(); err != nil {
			s.log.Error().Err(err).Msg("analysis failed")
			return
		}
		s.log.Info().Msg("scheduled run complete")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
