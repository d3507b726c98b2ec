// Package config provides configuration management for dealpulse.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 38800

	// BackendSQLite selects the embedded raw-SQL backend.
	BackendSQLite = "sqlite"
	// BackendPostgres selects the PostgreSQL backend via GORM.
	BackendPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort int `yaml:"worker_port"`

	// Storage settings. Backend is "sqlite" or "postgres".
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	MaxConns    int    `yaml:"max_conns"`

	// Optional Redis score cache. Empty address disables caching.
	RedisAddr       string `yaml:"redis_addr"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`

	// Batch settings
	QueueBatchSize   int `yaml:"queue_batch_size"`
	SweepBatchSize   int `yaml:"sweep_batch_size"`
	BatchConcurrency int `yaml:"batch_concurrency"`
	StaleAfterHours  int `yaml:"stale_after_hours"`

	// Scoring overrides. Zero values keep the built-in signal defaults.
	BaseScore float64 `yaml:"base_score"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the data directory path (~/.dealpulse).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dealpulse")
}

// SQLitePath returns the default database file path.
func SQLitePath() string {
	return filepath.Join(DataDir(), "dealpulse.db")
}

// SettingsPath returns the settings file path, honoring the
// DEALPULSE_CONFIG override.
func SettingsPath() string {
	if path := os.Getenv("DEALPULSE_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(DataDir(), "settings.yaml")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerPort:       DefaultWorkerPort,
		Backend:          BackendSQLite,
		SQLitePath:       SQLitePath(),
		MaxConns:         4,
		CacheTTLSeconds:  300,
		QueueBatchSize:   100,
		SweepBatchSize:   500,
		BatchConcurrency: 4,
		StaleAfterHours:  23,
		BaseScore:        100,
	}
}

// Load loads configuration from the settings file, merging with defaults
// and then applying environment overrides. A missing or unparsable
// settings file falls back to defaults rather than failing startup.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			cfg = Default()
		}
	}

	applyEnv(cfg)

	if cfg.Backend != BackendPostgres {
		cfg.Backend = BackendSQLite
	}
	if cfg.WorkerPort <= 0 {
		cfg.WorkerPort = DefaultWorkerPort
	}
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 4
	}
	return cfg, nil
}

// applyEnv overlays DEALPULSE_* environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DEALPULSE_WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.WorkerPort = p
		}
	}
	if v := os.Getenv("DEALPULSE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("DEALPULSE_SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("DEALPULSE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("DEALPULSE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("DEALPULSE_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConns = n
		}
	}
	if v := os.Getenv("DEALPULSE_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchConcurrency = n
		}
	}
	if v := os.Getenv("DEALPULSE_STALE_AFTER_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StaleAfterHours = n
		}
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// StaleAfter returns the staleness cutoff as a duration.
func (c *Config) StaleAfter() time.Duration {
	if c.StaleAfterHours <= 0 {
		return 23 * time.Hour
	}
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})
	return globalConfig
}
