package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/taskflow/internal/catalog"
	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/config"
	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/Veraticus/taskflow/internal/intake"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/Veraticus/taskflow/internal/storage"
	"github.com/Veraticus/taskflow/internal/storage/gormstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app bundles what most commands need.
type app struct {
	store  service.Storage
	engine *engine.Engine
	out    io.Writer
	in     io.Reader
	owner  string
}

// openStore connects to the configured backend and brings its schema up to date.
func openStore(ctx context.Context, c *config.Config) (service.Storage, error) {
	var (
		store service.Storage
		err   error
	)

	switch c.Database.Driver {
	case config.DriverSQLite, config.DriverSQLitePure:
		store, err = storage.NewSQLiteStorageWithOptions(storage.Options{
			Path:   c.Database.Path,
			Driver: c.Database.Driver,
		})
	case config.DriverPostgres:
		store, err = gormstore.Open(gormstore.Options{
			Dialect: gormstore.DialectPostgres,
			DSN:     c.Database.DSN,
		})
	case config.DriverGormSQLite:
		store, err = gormstore.Open(gormstore.Options{
			Dialect: gormstore.DialectSQLite,
			DSN:     c.Database.DSN,
		})
	default:
		return nil, fmt.Errorf("%w: database driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func loadCatalog(c *config.Config) (*catalog.Catalog, error) {
	if c.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(c.Catalog.Path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded catalog", "path", c.Catalog.Path, "version", cat.Version())
	return cat, nil
}

func newEngine(store service.Storage, c *config.Config) (*engine.Engine, error) {
	cat, err := loadCatalog(c)
	if err != nil {
		return nil, err
	}
	return engine.NewWithConfig(store, cat, engine.Config{
		FallbackName:   c.Engine.Fallback,
		MaxBatchWrites: c.Engine.MaxBatchWrites,
	}), nil
}

func newResolver(e *engine.Engine, c *config.Config) *intake.Resolver {
	fallback := c.Engine.Fallback
	if fallback == "" {
		fallback = e.Catalog().Fallback()
	}
	return intake.NewResolver(intake.FallbackNamed, fallback)
}

// currentOwner returns --owner / TASKFLOW_OWNER.
func currentOwner() (string, error) {
	owner := strings.TrimSpace(viper.GetString("owner"))
	if owner == "" {
		return "", common.NewUserError("no owner selected (use --owner or TASKFLOW_OWNER)", common.ErrMissingConfig)
	}
	return owner, nil
}

// withApp opens the store for the duration of fn. needOwner controls whether
// an owner must be selected.
func withApp(cmd *cobra.Command, needOwner bool, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a := &app{out: cmd.OutOrStdout(), in: cmd.InOrStdin()}
	if needOwner {
		owner, err := currentOwner()
		if err != nil {
			return err
		}
		a.owner = owner
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()
	a.store = store

	a.engine, err = newEngine(store, cfg)
	if err != nil {
		return err
	}

	return fn(ctx, a)
}

// printf writes to the command output; write errors are logged.
func (a *app) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(a.out, format, args...); err != nil {
		slog.Error("failed to write output", "error", err)
	}
}

func (a *app) println(s string) {
	a.printf("%s\n", s)
}
