// Package engine implements category reconciliation: seeding the system
// catalog, collapsing duplicate categories and repairing task references.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/taskflow/internal/catalog"
	"github.com/Veraticus/taskflow/internal/service"
)

// Engine reconciles an owner's category tree against a catalog.
type Engine struct {
	store    Store
	catalog  *catalog.Catalog
	locks    *ownerLocks
	fallback string
	maxBatch int
}

// Config holds configuration options for the engine.
type Config struct {
	// FallbackName overrides the catalog's fallback category for link repair.
	FallbackName string
	// MaxBatchWrites caps the writes per committed batch.
	MaxBatchWrites int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxBatchWrites: 500,
	}
}

// New creates an engine with the default configuration.
func New(store Store, cat *catalog.Catalog) *Engine {
	return NewWithConfig(store, cat, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(store Store, cat *catalog.Catalog, config Config) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	if config.MaxBatchWrites <= 0 {
		config.MaxBatchWrites = DefaultConfig().MaxBatchWrites
	}
	fallback := config.FallbackName
	if fallback == "" {
		fallback = cat.Fallback()
	}
	return &Engine{
		store:    store,
		catalog:  cat,
		locks:    newOwnerLocks(),
		fallback: fallback,
		maxBatch: config.MaxBatchWrites,
	}
}

// Catalog returns the catalog this engine seeds from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// SyncSystemCatalog seeds the catalog for owner. It is additive and idempotent.
func (e *Engine) SyncSystemCatalog(ctx context.Context, owner string) (*SeedReport, error) {
	return e.Seed(ctx, owner)
}

// ForceReset deduplicates owner's categories and then reseeds the catalog.
// Deduplication runs first so seeding never heals a record about to be deleted.
func (e *Engine) ForceReset(ctx context.Context, owner string) (*ResetReport, error) {
	unlock := e.locks.lock(owner)
	defer unlock()

	slog.Info("Starting force reset", "owner", owner)

	dedup, err := e.deduplicate(ctx, owner)
	if err != nil {
		return &ResetReport{Dedup: dedup}, fmt.Errorf("force reset: %w", err)
	}
	seed, err := e.seed(ctx, owner)
	if err != nil {
		return &ResetReport{Dedup: dedup, Seed: seed}, fmt.Errorf("force reset: %w", err)
	}

	slog.Info("Force reset complete", "owner", owner,
		"categories_removed", dedup.CategoriesRemoved,
		"categories_created", seed.CategoriesCreated)
	return &ResetReport{Dedup: dedup, Seed: seed}, nil
}

// EnsureSeeded seeds owner only when they have no categories at all.
// When nothing needed to be done the report is empty: Changed is false and
// Repair holds no changes.
func (e *Engine) EnsureSeeded(ctx context.Context, owner string) (*SeedReport, error) {
	unlock := e.locks.lock(owner)
	defer unlock()

	cats, err := e.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	if len(cats) > 0 {
		return &SeedReport{CatalogVersion: e.catalog.Version(), Repair: &RepairReport{}}, nil
	}
	return e.seed(ctx, owner)
}

// Seed applies the catalog to owner and then repairs task links.
func (e *Engine) Seed(ctx context.Context, owner string) (*SeedReport, error) {
	unlock := e.locks.lock(owner)
	defer unlock()
	return e.seed(ctx, owner)
}

// Deduplicate collapses same-name categories and subcategories for owner and
// repairs tasks onto the surviving records.
func (e *Engine) Deduplicate(ctx context.Context, owner string) (*DedupReport, error) {
	unlock := e.locks.lock(owner)
	defer unlock()
	return e.deduplicate(ctx, owner)
}

// RepairLinks fixes dangling task references for owner. remap may be empty.
// progress may be nil.
func (e *Engine) RepairLinks(ctx context.Context, owner string, remap Remap, progress ProgressFunc) (*RepairReport, error) {
	unlock := e.locks.lock(owner)
	defer unlock()
	return e.repair(ctx, owner, remap, progress)
}

// ownerLocks serializes reconciliation per owner within this process.
type ownerLocks struct {
	locks map[string]*sync.Mutex
	mu    sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *ownerLocks) lock(owner string) func() {
	l.mu.Lock()
	m, ok := l.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		l.locks[owner] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// chunkedBatch spreads writes across batches of at most limit writes.
// Each chunk is atomic; the sequence is not.
type chunkedBatch struct {
	store   Store
	current service.Batch
	limit   int
	commits int
	writes  int
}

func newChunkedBatch(store Store, limit int) *chunkedBatch {
	return &chunkedBatch{store: store, limit: limit}
}

// next returns a batch with room for one more write, committing a full one first.
func (c *chunkedBatch) next(ctx context.Context) (service.Batch, error) {
	if c.current != nil && c.current.Len() >= c.limit {
		if err := c.flush(ctx); err != nil {
			return nil, err
		}
	}
	if c.current == nil {
		c.current = c.store.NewBatch()
	}
	c.writes++
	return c.current, nil
}

func (c *chunkedBatch) flush(ctx context.Context) error {
	if c.current == nil || c.current.Len() == 0 {
		c.current = nil
		return nil
	}
	if err := c.current.Commit(ctx); err != nil {
		return err
	}
	c.commits++
	c.current = nil
	return nil
}
