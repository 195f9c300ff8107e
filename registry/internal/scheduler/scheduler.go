// CLAUDE:SUMMARY Ticker-driven poller that hands due sources to a scrape sink.
// Package scheduler polls for due sources and hands them to a scrape sink.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/fieldreg/registry/internal/store"
)

// Job is a scrape job emitted by the scheduler.
type Job struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
}

// JobSink receives due-source jobs. Errors are logged, not retried; the
// source stays due and the next tick picks it up again.
type JobSink func(ctx context.Context, job *Job) error

// Config configures the scheduler.
type Config struct {
	// CheckInterval is how often to poll for due sources. Default: 1 minute.
	CheckInterval time.Duration
	// MaxFailCount is the failure count at which a source is skipped.
	// Default: 10.
	MaxFailCount int
}

func (c *Config) defaults() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.MaxFailCount <= 0 {
		c.MaxFailCount = 10
	}
}

// Scheduler periodically checks for due sources.
type Scheduler struct {
	store  *store.Store
	sink   JobSink
	config Config
	logger *slog.Logger
}

// New creates a Scheduler.
func New(st *store.Store, sink JobSink, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: st, sink: sink, config: cfg, logger: logger}
}

// Run polls for due sources on a ticker. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	// Run once immediately on start.
	s.enqueueDueSources(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueueDueSources(ctx)
		}
	}
}

// enqueueDueSources fetches due sources and passes each to the sink.
func (s *Scheduler) enqueueDueSources(ctx context.Context) {
	due, err := s.store.DueSources(ctx, s.config.MaxFailCount)
	if err != nil {
		s.logger.Error("scheduler: due sources", "error", err)
		return
	}

	for _, src := range due {
		job := &Job{SourceID: src.ID, URL: src.URL}
		if err := s.sink(ctx, job); err != nil {
			s.logger.Warn("scheduler: run job", "source_id", src.ID, "error", err)
		}
	}

	if len(due) > 0 {
		s.logger.Debug("scheduler: dispatched", "jobs", len(due))
	}
}
