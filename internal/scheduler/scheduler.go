// Package scheduler runs periodic catalog synchronization for every owner.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/robfig/cron/v3"
)

// DefaultSpec runs the sync once a day.
const DefaultSpec = "@daily"

// Owners lists every owner known to the store.
type Owners interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// Syncer applies the catalog to one owner.
type Syncer interface {
	SyncSystemCatalog(ctx context.Context, owner string) (*engine.SeedReport, error)
}

// RunResult summarizes one pass over all owners.
type RunResult struct {
	Owners  int
	Changed int
	Failed  int
}

// Scheduler wraps a cron runner with the catalog sync job.
type Scheduler struct {
	cron    *cron.Cron
	owners  Owners
	syncer  Syncer
	timeout time.Duration
	mu      sync.Mutex
}

// New creates a scheduler. timeout bounds one full pass; zero means no bound.
func New(owners Owners, syncer Syncer, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		owners:  owners,
		syncer:  syncer,
		timeout: timeout,
	}
}

// Schedule registers the sync job on a cron spec such as "@daily" or "0 3 * * *".
func (s *Scheduler) Schedule(spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	id, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		if _, err := s.RunOnce(ctx); err != nil {
			slog.Error("Scheduled catalog sync failed", "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return id, nil
}

// RunOnce syncs every owner. One owner's failure does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result RunResult
	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list owners: %w", err)
	}

	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Owners++
		report, err := s.syncer.SyncSystemCatalog(ctx, owner)
		if err != nil {
			result.Failed++
			slog.Warn("Catalog sync failed for owner", "owner", owner, "error", err)
			continue
		}
		if report.Changed() {
			result.Changed++
		}
	}

	slog.Info("Catalog sync pass complete",
		"owners", result.Owners,
		"changed", result.Changed,
		"failed", result.Failed)
	return result, nil
}

// Start runs scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
