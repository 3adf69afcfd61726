package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/taskflow/internal/cli"
	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
	// cfg is loaded by initConfig before any command runs.
	cfg     *config.Config
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskflow",
		Short: "Task manager with a self-healing category catalog",
		Long: `taskflow keeps tasks organized under per-user categories.

It seeds the system category catalog, merges duplicate categories and
repairs tasks whose category links went stale. The same operations are
available over HTTP with 'taskflow serve'.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/taskflow/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("owner", "", "owner whose data the command operates on")
	cmd.PersistentFlags().String("db", "", "database path (sqlite drivers)")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("owner", cmd.PersistentFlags().Lookup("owner"))
	_ = viper.BindPFlag("database.path", cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(subcategoriesCmd())
	cmd.AddCommand(tasksCmd())
	cmd.AddCommand(catalogCmd())
	cmd.AddCommand(reconcileCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(tokenCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func main() {
	ctx, release := cli.NewInterruptHandler(os.Stderr, "Interrupted, shutting down...").
		HandleInterrupts(context.Background())

	err := rootCmd.ExecuteContext(ctx)
	release()

	if err != nil {
		var userErr *common.UserError
		if errors.As(err, &userErr) {
			fmt.Fprintln(os.Stderr, cli.FormatError(userErr.Error()))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return err
		}

		viper.AddConfigPath(dir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded

	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	slog.Debug("Configuration loaded",
		"config_file", viper.ConfigFileUsed(),
		"driver", cfg.Database.Driver)
	return nil
}

func setupLogging(lc config.LoggingConfig) error {
	level, err := common.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	return common.SetupLogger(level, lc.Format)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskflow %s\n", version)
		},
	}
}
