package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "crate"

// StorageDriver selects the local store engine
type StorageDriver string

const (
	StorageDriverBolt   StorageDriver = "bolt"
	StorageDriverSQLite StorageDriver = "sqlite"
)

// DefaultAlbumIDs is the album set fetched by a plain load
var DefaultAlbumIDs = []string{
	"382ObEPsp2rxGrnsizN5TX",
	"1A2GTWGtFfWp7KSQTwWOyo",
	"2noRn2Aes5aoNVsU6iWThc",
}

// Config holds all application configuration
type Config struct {
	Remote  RemoteConfig  `mapstructure:"remote"`
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Workers WorkersConfig `mapstructure:"workers"`
	Session SessionConfig `mapstructure:"session"`
	Network NetworkConfig `mapstructure:"network"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RemoteConfig holds catalog API configuration
type RemoteConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // Requests per second, 0 = unlimited
	Burst     int           `mapstructure:"burst"`
}

// StorageConfig holds local store configuration
type StorageConfig struct {
	Driver        StorageDriver `mapstructure:"driver"`
	Dir           string        `mapstructure:"dir"`
	DeferredFlush bool          `mapstructure:"deferred_flush"` // bolt only: fsync on Flush instead of every commit
}

// SyncConfig holds freshness and fetch configuration
type SyncConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	DefaultIDs []string      `mapstructure:"default_ids"`
	PageSize   int           `mapstructure:"page_size"`
}

// WorkersConfig sizes the background pool
type WorkersConfig struct {
	Size  int `mapstructure:"size"`
	Queue int `mapstructure:"queue"`
}

// SessionConfig identifies the active user
type SessionConfig struct {
	UserID string `mapstructure:"user_id"`
}

// NetworkConfig controls connectivity detection
type NetworkConfig struct {
	Offline      bool          `mapstructure:"offline"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:   "http://localhost:8080/",
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     5,
		},
		Storage: StorageConfig{
			Driver: StorageDriverBolt,
			Dir:    defaultCachePath(),
		},
		Sync: SyncConfig{
			Interval:   24 * time.Hour,
			DefaultIDs: append([]string(nil), DefaultAlbumIDs...),
			PageSize:   10,
		},
		Workers: WorkersConfig{
			Size:  4,
			Queue: 32,
		},
		Network: NetworkConfig{
			ProbeTimeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path
func defaultLogPath() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// defaultConfigPath returns the default config directory
func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// defaultCachePath returns the default store directory
func defaultCachePath() string {
	return filepath.Join(xdg.DataHome, appName, "cache")
}

// newViper builds a viper instance reading config.yaml and CRATE_* env vars.
func newViper(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides: CRATE_REMOTE_BASE_URL, CRATE_SESSION_USER_ID, ...
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Register every key so env overrides apply without a config file
	setDefaults(v, DefaultConfig())
	return v
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("remote.base_url", cfg.Remote.BaseURL)
	v.SetDefault("remote.token", cfg.Remote.Token)
	v.SetDefault("remote.timeout", cfg.Remote.Timeout)
	v.SetDefault("remote.rate_limit", cfg.Remote.RateLimit)
	v.SetDefault("remote.burst", cfg.Remote.Burst)
	v.SetDefault("storage.driver", string(cfg.Storage.Driver))
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("storage.deferred_flush", cfg.Storage.DeferredFlush)
	v.SetDefault("sync.interval", cfg.Sync.Interval)
	v.SetDefault("sync.default_ids", cfg.Sync.DefaultIDs)
	v.SetDefault("sync.page_size", cfg.Sync.PageSize)
	v.SetDefault("workers.size", cfg.Workers.Size)
	v.SetDefault("workers.queue", cfg.Workers.Queue)
	v.SetDefault("session.user_id", cfg.Session.UserID)
	v.SetDefault("network.offline", cfg.Network.Offline)
	v.SetDefault("network.probe_timeout", cfg.Network.ProbeTimeout)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// LoadConfig loads configuration from file and environment.
// An empty configFile searches the config directory and the working directory.
func LoadConfig(configFile string) (*Config, error) {
	v := newViper(configFile)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverBolt, StorageDriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be positive, got %d", c.Sync.PageSize)
	}
	if c.Workers.Size <= 0 {
		return fmt.Errorf("workers.size must be positive, got %d", c.Workers.Size)
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must not be negative")
	}
	return nil
}

// SaveConfig writes cfg to config.yaml in the config directory.
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfig(cfg, filepath.Join(configPath, "config.yaml"))
}

func writeConfig(cfg *Config, path string) error {
	v := viper.New()
	setDefaults(v, cfg)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveToken updates just the API token in the configuration
func SaveToken(cfg *Config, token string) error {
	cfg.Remote.Token = token
	return SaveConfig(cfg)
}

// ClearCache removes the local store directory
func ClearCache(cfg *Config) error {
	if err := os.RemoveAll(cfg.Storage.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
