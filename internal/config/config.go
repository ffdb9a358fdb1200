// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/msmolkin/nwsharvest/internal/series"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig            `mapstructure:"logging"`
	Fetch   FetchConfig              `mapstructure:"fetch"`
	Harvest HarvestConfig            `mapstructure:"harvest"`
	Output  OutputConfig             `mapstructure:"output"`
	Archive ArchiveConfig            `mapstructure:"archive"`
	Server  ServerConfig             `mapstructure:"server"`
	Series  map[string]series.Series `mapstructure:"series"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// FetchConfig configures per-version HTTP retrieval behavior.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Attempts       int    `mapstructure:"attempts"`
	BackoffSeconds int    `mapstructure:"backoff_seconds"`
}

// HarvestConfig governs worker pool sizing.
//
// Workers == 0 means derive the pool size from the CPU count; WorkerCap bounds
// the derived value so the remote endpoint is not overwhelmed.
type HarvestConfig struct {
	Workers   int `mapstructure:"workers"`
	WorkerCap int `mapstructure:"worker_cap"`
}

// OutputConfig controls transcript persistence.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	Clipboard bool   `mapstructure:"clipboard"`
}

// ArchiveConfig controls the SQLite harvest archive.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NWSHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Series == nil {
		cfg.Series = series.DefaultCatalog()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("fetch.user_agent", "nwsharvest/1.0 (+https://github.com/msmolkin/nwsharvest)")
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.attempts", 3)
	v.SetDefault("fetch.backoff_seconds", 2)
	v.SetDefault("harvest.workers", 0)
	v.SetDefault("harvest.worker_cap", 32)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.clipboard", false)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.path", "nwsharvest.db")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.Attempts <= 0 {
		return fmt.Errorf("fetch.attempts must be > 0")
	}
	if c.Fetch.BackoffSeconds < 0 {
		return fmt.Errorf("fetch.backoff_seconds must be >= 0")
	}
	if c.Harvest.Workers < 0 {
		return fmt.Errorf("harvest.workers must be >= 0")
	}
	if c.Harvest.WorkerCap <= 0 {
		return fmt.Errorf("harvest.worker_cap must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive.path must be set when the archive is enabled")
	}
	for _, s := range c.Series {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Timeout returns the per-attempt request timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Backoff returns the pause between failed attempts as a duration.
func (c FetchConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}
