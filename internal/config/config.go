// Package config loads treasury's settings from viper: the config file,
// TREASURY_ environment variables and defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Default locations.
const (
	DefaultAccountsPath = "~/.local/share/treasury/accounts.toml"
	DefaultSQLitePath   = "~/.local/share/treasury/accounts.db"
)

// Config is the complete process configuration.
type Config struct {
	Names       map[string]string `mapstructure:"names"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Currencies  []CurrencyConfig  `mapstructure:"currencies"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
	// SaveInterval is in seconds; zero or less saves on every mutation.
	SaveInterval int `mapstructure:"save_interval"`
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// JobsConfig holds defaults for player job attributes.
type JobsConfig struct {
	NotificationsDefault bool `mapstructure:"notifications_default"`
}

// LeaderboardConfig sizes leaderboard pages and the worker pool serving them.
type LeaderboardConfig struct {
	PageSize  int `mapstructure:"page_size"`
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// IdentityConfig configures display name resolution.
type IdentityConfig struct {
	// CacheTTL is in seconds.
	CacheTTL int `mapstructure:"cache_ttl"`
}

// CurrencyConfig is one entry of the currencies list.
type CurrencyConfig struct {
	Name            string `mapstructure:"name"`
	Plural          string `mapstructure:"plural"`
	Symbol          string `mapstructure:"symbol"`
	StartingBalance string `mapstructure:"starting_balance"`
	Default         bool   `mapstructure:"default"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("storage.backend", storage.BackendFile)
	v.SetDefault("storage.path", DefaultAccountsPath)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.save_interval", 30)
	v.SetDefault("storage.max_open_conns", 10)

	v.SetDefault("jobs.notifications_default", true)

	v.SetDefault("leaderboard.page_size", 5)
	v.SetDefault("leaderboard.workers", 2)
	v.SetDefault("leaderboard.queue_size", 64)

	v.SetDefault("identity.cache_ttl", 300)

	v.SetDefault("currencies", []map[string]any{
		{
			"name":             "Dollar",
			"plural":           "Dollars",
			"symbol":           "$",
			"starting_balance": "0.00",
			"default":          true,
		},
	})
}

// BindEnv makes TREASURY_STORAGE_BACKEND and friends override file values.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("TREASURY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults, decodes v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}

	switch strings.ToLower(c.Storage.Backend) {
	case storage.BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for the file backend", common.ErrMissingConfig)
		}
	case storage.BackendSQLite:
	case storage.BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage.dsn is required for the postgres backend", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", common.ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Leaderboard.PageSize < 1 {
		return fmt.Errorf("%w: leaderboard.page_size must be at least 1", common.ErrInvalidConfig)
	}
	if c.Leaderboard.Workers < 1 {
		return fmt.Errorf("%w: leaderboard.workers must be at least 1", common.ErrInvalidConfig)
	}
	if c.Leaderboard.QueueSize < 0 {
		return fmt.Errorf("%w: leaderboard.queue_size cannot be negative", common.ErrInvalidConfig)
	}

	if len(c.Currencies) == 0 {
		return fmt.Errorf("%w: at least one currency is required", common.ErrMissingConfig)
	}
	if _, err := c.CurrencyModels(); err != nil {
		return err
	}
	return nil
}

// CurrencyModels converts the configured currencies.
func (c *Config) CurrencyModels() ([]model.Currency, error) {
	currencies := make([]model.Currency, 0, len(c.Currencies))
	for _, cc := range c.Currencies {
		starting := decimal.Zero
		if strings.TrimSpace(cc.StartingBalance) != "" {
			d, err := decimal.NewFromString(strings.TrimSpace(cc.StartingBalance))
			if err != nil {
				return nil, fmt.Errorf("%w: currency %q has invalid starting_balance %q",
					common.ErrInvalidConfig, cc.Name, cc.StartingBalance)
			}
			starting = d.Round(2)
		}

		currency := model.Currency{
			Name:            cc.Name,
			PluralName:      cc.Plural,
			Symbol:          cc.Symbol,
			StartingBalance: starting,
			Default:         cc.Default,
		}
		if err := currency.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
		}
		currencies = append(currencies, currency)
	}
	return currencies, nil
}

// SaveInterval returns the autosave period.
func (c *Config) SaveInterval() time.Duration {
	return time.Duration(c.Storage.SaveInterval) * time.Second
}

// CacheTTL returns how long resolved names are cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Identity.CacheTTL) * time.Second
}

// StorageOptions translates the storage section for storage.Open. Paths
// have ~ and environment variables expanded.
func (c *Config) StorageOptions() storage.Options {
	backend := strings.ToLower(c.Storage.Backend)
	dsn := c.Storage.DSN
	if backend == storage.BackendSQLite {
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		dsn = ExpandPath(dsn)
	}
	return storage.Options{
		Backend:      backend,
		Path:         ExpandPath(c.Storage.Path),
		DSN:          dsn,
		MaxOpenConns: c.Storage.MaxOpenConns,
	}
}

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}
