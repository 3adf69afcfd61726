package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Migrations also run automatically before every command that opens the
database; this command is for deploy scripts.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the schema version after migrating")

	return cmd
}

// schemaVersioner is implemented by stores that track a numeric schema version.
type schemaVersioner interface {
	SchemaVersion(ctx context.Context) (int, error)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	slog.Info("Starting database migration", "driver", cfg.Database.Driver)

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		a.println(cli.FormatSuccess("Database migrations completed"))
		if !status {
			return nil
		}
		v, ok := a.store.(schemaVersioner)
		if !ok {
			a.println(cli.FormatInfo(fmt.Sprintf("%s schema is managed by GORM auto-migration", cfg.Database.Driver)))
			return nil
		}
		current, err := v.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		a.println(cli.FormatInfo(fmt.Sprintf("Schema version %d (expected %d)", current, storage.ExpectedSchemaVersion)))
		return nil
	})
}
