// Package scheduler drives the collect -> dedup -> filter -> score cycle:
// a cron-style ticker finds due sources and fans work out across a bounded
// worker pool, enforcing at-most-one in-flight run per source.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/repository"
)

// SourceProcessor runs the full per-source pipeline (collect, dedup,
// filter, score, persist, and enqueue any resulting alerts). The
// scheduler only decides *when* and *how many at once*; Processor owns
// *what happens* during a run.
type SourceProcessor interface {
	ProcessSource(ctx context.Context, source *entity.Source) error
}

// Config controls tick cadence and fan-out.
type Config struct {
	TickInterval time.Duration // how often the scheduler checks for due sources
	MaxParallel  int           // worker pool size bound
	JobTimeout   time.Duration // per-source hard deadline
	Timezone     string        // IANA timezone for the cron expression
}

// DefaultConfig matches internal/infra/worker's SchedulerConfig defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval: 30 * time.Second,
		MaxParallel:  4,
		JobTimeout:   2 * time.Minute,
		Timezone:     "UTC",
	}
}

// Scheduler owns the cron ticker, the active-source guard, and the
// worker pool that runs SourceProcessor.ProcessSource for due sources.
type Scheduler struct {
	config    Config
	sources   repository.SourceRepository
	processor SourceProcessor
	logger    *slog.Logger
	metrics   *Metrics

	cron *cron.Cron

	mu            sync.Mutex
	activeSources map[string]struct{}

	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs a Scheduler. Call Start to begin ticking.
func New(config Config, sources repository.SourceRepository, processor SourceProcessor, metrics *Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		config:        config,
		sources:       sources,
		processor:     processor,
		logger:        logger,
		metrics:       metrics,
		activeSources: make(map[string]struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start loads the configured timezone, schedules the recurring tick via
// robfig/cron's `@every` syntax, and starts the cron scheduler. It
// returns once the first tick is registered; ticks run in the background
// until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	loc, err := time.LoadLocation(s.config.Timezone)
	if err != nil {
		s.logger.Error("invalid timezone, using UTC", slog.String("timezone", s.config.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	s.cron = cron.New(cron.WithLocation(loc))
	spec := fmt.Sprintf("@every %s", s.config.TickInterval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: add cron job: %w", err)
	}
	s.cron.Start()

	s.logger.Info("scheduler started",
		slog.Duration("tick_interval", s.config.TickInterval),
		slog.Int("max_parallel", s.config.MaxParallel))
	return nil
}

// Stop halts the cron ticker and waits for a running tick to finish; a
// tick returns only after every source job it started has returned, and
// each job is bounded by JobTimeout.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cron != nil {
			stopCtx := s.cron.Stop()
			<-stopCtx.Done()
		}
		close(s.stopped)
	})
}

// tick loads due sources, orders them, and submits each to the bounded
// worker pool, skipping any already in flight.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	sources, err := s.sources.ListDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("scheduler: failed to list due sources", slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.RecordTick("failure", time.Since(start).Seconds())
		}
		return
	}

	if s.metrics != nil {
		s.metrics.RecordSourcesChecked(len(sources))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxParallel)

	submitted := 0
	for _, source := range sources {
		source := source
		if !s.acquire(source.ID) {
			continue
		}
		submitted++
		g.Go(func() error {
			defer s.release(source.ID)
			s.runOne(gctx, source)
			return nil
		})
	}

	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.RecordTick("success", time.Since(start).Seconds())
	}
	s.logger.Info("scheduler tick complete",
		slog.Int("due", len(sources)),
		slog.Int("submitted", submitted),
		slog.Duration("elapsed", time.Since(start)))
}

// RunNow immediately processes a single source on the caller's goroutine,
// bypassing its cadence. It respects the active-source guard (if the
// source is already running it is a no-op) but not MaxParallel: a RunNow
// call is not counted against a running tick's worker limit.
func (s *Scheduler) RunNow(ctx context.Context, source *entity.Source) (ran bool) {
	if !s.acquire(source.ID) {
		return false
	}
	defer s.release(source.ID)
	s.runOne(ctx, source)
	return true
}

func (s *Scheduler) runOne(ctx context.Context, source *entity.Source) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.processor.ProcessSource(jobCtx, source); err != nil {
		s.logger.Error("source processing failed",
			slog.String("source_id", source.ID),
			slog.String("source_name", source.Name),
			slog.Any("error", err))
		s.recordFailure(jobCtx, source)
		return
	}
	s.recordSuccess(jobCtx, source)
}

func (s *Scheduler) recordSuccess(ctx context.Context, source *entity.Source) {
	if err := s.sources.TouchChecked(ctx, source.ID, time.Now(), true); err != nil {
		s.logger.Error("failed to record source check success", slog.String("source_id", source.ID), slog.Any("error", err))
	}
}

func (s *Scheduler) recordFailure(ctx context.Context, source *entity.Source) {
	if err := s.sources.TouchChecked(ctx, source.ID, time.Now(), false); err != nil {
		s.logger.Error("failed to record source check failure", slog.String("source_id", source.ID), slog.Any("error", err))
	}
}

func (s *Scheduler) acquire(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, active := s.activeSources[sourceID]; active {
		return false
	}
	s.activeSources[sourceID] = struct{}{}
	return true
}

func (s *Scheduler) release(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeSources, sourceID)
}
