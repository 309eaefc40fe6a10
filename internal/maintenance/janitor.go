// Package maintenance runs scheduled housekeeping over the store: pruning
// old operation events, capping snapshot history per graph, and vacuuming
// the database.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/regraph/internal/store"
)

// Config tunes the janitor. Zero values fall back to defaults.
type Config struct {
	// Schedule is a five-field cron expression. Default "0 3 * * *".
	Schedule string
	// EventRetention is how long operation events are kept. Default 30 days.
	EventRetention time.Duration
	// SnapshotKeep is how many snapshot versions each graph retains.
	// Default 20.
	SnapshotKeep int
	// Vacuum reclaims database space after each sweep.
	Vacuum bool
}

func (c Config) withDefaults() Config {
	if c.Schedule == "" {
		c.Schedule = "0 3 * * *"
	}
	if c.EventRetention <= 0 {
		c.EventRetention = 30 * 24 * time.Hour
	}
	if c.SnapshotKeep <= 0 {
		c.SnapshotKeep = 20
	}
	return c
}

// SweepReport summarizes one housekeeping pass.
type SweepReport struct {
	EventsPruned    int64
	SnapshotsPruned int64
	GraphsVisited   int
	Vacuumed        bool
}

// Janitor schedules and runs housekeeping sweeps.
type Janitor struct {
	store  store.Store
	cfg    Config
	parser cron.Parser
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewJanitor creates a janitor over the store.
func NewJanitor(s store.Store, cfg Config, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Janitor{
		store:  s,
		cfg:    cfg.withDefaults(),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger: logger,
	}
}

// NextRun computes the next sweep time after from.
func (j *Janitor) NextRun(from time.Time) (time.Time, error) {
	schedule, err := j.parser.Parse(j.cfg.Schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", j.cfg.Schedule, err)
	}
	return schedule.Next(from), nil
}

// Start launches the background sweep loop.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.NextRun(time.Now()); err != nil {
		return err
	}

	j.mu.Lock()
	if j.done != nil {
		j.mu.Unlock()
		return fmt.Errorf("janitor already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	j.cancel = cancel
	j.done = done
	j.mu.Unlock()

	go j.loop(loopCtx, done)
	j.logger.Info("janitor started", slog.String("schedule", j.cfg.Schedule))
	return nil
}

func (j *Janitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		next, err := j.NextRun(time.Now())
		if err != nil {
			j.logger.Error("janitor schedule broken", slog.String("error", err.Error()))
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if report, err := j.Sweep(ctx); err != nil {
				j.logger.Error("sweep failed", slog.String("error", err.Error()))
			} else {
				j.logger.Info("sweep completed",
					slog.Int64("events_pruned", report.EventsPruned),
					slog.Int64("snapshots_pruned", report.SnapshotsPruned),
					slog.Int("graphs_visited", report.GraphsVisited))
			}
		}
	}
}

// Sweep runs one housekeeping pass. Concurrent invocations short-circuit:
// a sweep already in progress makes the second call a no-op.
func (j *Janitor) Sweep(ctx context.Context) (SweepReport, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return SweepReport{}, nil
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	var report SweepReport

	cutoff := time.Now().UTC().Add(-j.cfg.EventRetention)
	pruned, err := j.store.PruneOperationEvents(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("prune operation events: %w", err)
	}
	report.EventsPruned = pruned

	graphs, err := j.store.ListGraphs(ctx, store.GraphFilter{})
	if err != nil {
		return report, fmt.Errorf("list graphs: %w", err)
	}
	for _, g := range graphs {
		n, err := j.store.PruneSnapshots(ctx, g.ID, j.cfg.SnapshotKeep)
		if err != nil {
			return report, fmt.Errorf("prune snapshots of graph %q: %w", g.ID, err)
		}
		report.SnapshotsPruned += n
	}
	report.GraphsVisited = len(graphs)

	if j.cfg.Vacuum {
		if err := j.store.Vacuum(ctx); err != nil {
			return report, fmt.Errorf("vacuum: %w", err)
		}
		report.Vacuumed = true
	}

	return report, nil
}

// Stop gracefully shuts down the janitor, waiting for an in-flight sweep
// to finish. The wait happens outside the mutex: an active sweep needs it
// to clear its running flag before the loop can exit.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel = nil
	j.done = nil
	j.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	j.logger.Info("janitor stopped")
	return nil
}
