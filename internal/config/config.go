package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TASKFLOW_JWT_SECRET.
const EnvPrefix = "TASKFLOW"

// Database drivers accepted in database.driver.
const (
	DriverSQLite     = "sqlite3"
	DriverSQLitePure = "sqlite"
	DriverPostgres   = "postgres"
	DriverGormSQLite = "gorm-sqlite"
)

// Config is the typed view of the viper settings.
type Config struct {
	Logging   LoggingConfig
	Database  DatabaseConfig
	Server    ServerConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	Catalog   CatalogConfig
	Engine    EngineConfig
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string
	// Path is used by the sqlite drivers.
	Path string
	// DSN is used by the gorm drivers.
	DSN string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                 string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	ShutdownTimeout      time.Duration
}

// JWTConfig configures bearer tokens.
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// SchedulerConfig configures the periodic catalog sync.
type SchedulerConfig struct {
	SyncSpec string
	Timezone string
	Timeout  time.Duration
}

// CatalogConfig points at an optional catalog file. Empty means the built-in catalog.
type CatalogConfig struct {
	Path string
}

// EngineConfig tunes reconciliation.
type EngineConfig struct {
	MaxBatchWrites int
	Fallback       string
}

// DefaultDatabasePath returns the default SQLite location.
func DefaultDatabasePath() string {
	return ExpandPath("~/.local/share/taskflow/taskflow.db")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("scheduler.sync_spec", "@daily")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.timeout", 5*time.Minute)
	v.SetDefault("engine.max_batch_writes", 500)
}

// BindEnv makes nested keys overridable from the environment.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			Path:   ExpandPath(v.GetString("database.path")),
			DSN:    v.GetString("database.dsn"),
		},
		Server: ServerConfig{
			Addr:                 v.GetString("server.addr"),
			CORSAllowedOrigins:   splitList(v.GetStringSlice("cors.origins")),
			CORSAllowCredentials: v.GetBool("cors.allow_credentials"),
			ShutdownTimeout:      v.GetDuration("server.shutdown_timeout"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		Scheduler: SchedulerConfig{
			SyncSpec: v.GetString("scheduler.sync_spec"),
			Timezone: v.GetString("scheduler.timezone"),
			Timeout:  v.GetDuration("scheduler.timeout"),
		},
		Catalog: CatalogConfig{
			Path: ExpandPath(v.GetString("catalog.path")),
		},
		Engine: EngineConfig{
			MaxBatchWrites: v.GetInt("engine.max_batch_writes"),
			Fallback:       v.GetString("engine.fallback"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings every command depends on. The JWT secret is checked
// separately by RequireJWTSecret since only the server and token commands need it.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverSQLitePure:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn", common.ErrMissingConfig)
		}
	case DriverGormSQLite:
		if c.Database.DSN == "" {
			c.Database.DSN = c.Database.Path
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: database driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}

	if c.Engine.MaxBatchWrites <= 0 {
		return fmt.Errorf("%w: engine.max_batch_writes must be positive", common.ErrInvalidConfig)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%w: jwt.ttl must be positive", common.ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// RequireJWTSecret reports a missing or short signing secret.
func (c *Config) RequireJWTSecret() error {
	switch {
	case c.JWT.Secret == "":
		return fmt.Errorf("%w: jwt.secret (set %s_JWT_SECRET)", common.ErrMissingConfig, EnvPrefix)
	case len(c.JWT.Secret) < 16:
		return fmt.Errorf("%w: jwt.secret must be at least 16 bytes", common.ErrInvalidConfig)
	}
	return nil
}

// Location resolves the scheduler time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduler.timezone %q", common.ErrInvalidConfig, c.Scheduler.Timezone)
	}
	return loc, nil
}

// DefaultConfigDir is where the CLI looks for config.yaml.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "taskflow"), nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
