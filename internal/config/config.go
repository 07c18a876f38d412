package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Poll      PollConfig      `mapstructure:"poll"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	UI        UIConfig        `mapstructure:"ui"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds registry connection settings
type ServerConfig struct {
	URL       string        `mapstructure:"url"`        // API base, e.g. http://localhost:8000/api
	APIKey    string        `mapstructure:"api_key"`    // Sent as X-API-Key
	Timeout   time.Duration `mapstructure:"timeout"`    // Per-request transport timeout
	RateLimit int           `mapstructure:"rate_limit"` // Requests per second across all loops
}

// PollConfig tunes the per-job polling loops
type PollConfig struct {
	Interval      time.Duration `mapstructure:"interval"`        // Delay between ticks of an active job
	RetryDelay    time.Duration `mapstructure:"retry_delay"`     // Delay after a failed tick
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"` // > RetryDelay enables exponential backoff
	StallAfter    time.Duration `mapstructure:"stall_after"`     // 0 = retry forever
}

// DownloadsConfig holds where fetched artifacts are written
type DownloadsConfig struct {
	Dir string `mapstructure:"dir"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	ShortFilter string `mapstructure:"short_filter"` // "shorts", "long" or "all"
}

// CacheConfig holds the local cache location ("" = memory only)
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:       "http://localhost:8000/api",
			Timeout:   30 * time.Second,
			RateLimit: 20,
		},
		Poll: PollConfig{
			Interval:   1000 * time.Millisecond,
			RetryDelay: 1500 * time.Millisecond,
		},
		Downloads: DownloadsConfig{
			Dir: defaultDownloadPath(),
		},
		UI: UIConfig{
			ShortFilter: "shorts",
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel", "reel.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", "reel.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reel")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reel", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", "cache")
	}
}

func defaultDownloadPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads", "reel")
}

// newViper builds a viper instance with every key registered so that
// REEL_* environment variables override file values during Unmarshal.
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.api_key", cfg.Server.APIKey)
	v.SetDefault("server.timeout", cfg.Server.Timeout)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("poll.interval", cfg.Poll.Interval)
	v.SetDefault("poll.retry_delay", cfg.Poll.RetryDelay)
	v.SetDefault("poll.max_retry_delay", cfg.Poll.MaxRetryDelay)
	v.SetDefault("poll.stall_after", cfg.Poll.StallAfter)
	v.SetDefault("downloads.dir", cfg.Downloads.Dir)
	v.SetDefault("ui.short_filter", cfg.UI.ShortFilter)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	return v
}

// LoadConfig loads configuration from file, .env and environment.
// configFile overrides the search path; envFile is optional.
func LoadConfig(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading env file: %w", err)
		}
	}

	cfg := DefaultConfig()
	v := newViper(cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		// An explicit path that does not exist surfaces as a PathError
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.RetryDelay <= 0 {
		return fmt.Errorf("poll.retry_delay must be positive")
	}
	if c.Poll.StallAfter < 0 {
		return fmt.Errorf("poll.stall_after must not be negative")
	}
	switch c.UI.ShortFilter {
	case "shorts", "long", "all":
	default:
		return fmt.Errorf("ui.short_filter must be one of shorts, long, all (got %q)", c.UI.ShortFilter)
	}
	return nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(cfg, defaultConfigPath())
}

// SaveConfigTo writes config.yaml into dir
func SaveConfigTo(cfg *Config, dir string) error {
	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.api_key", cfg.Server.APIKey)
	v.Set("server.timeout", cfg.Server.Timeout.String())
	v.Set("server.rate_limit", cfg.Server.RateLimit)

	v.Set("poll.interval", cfg.Poll.Interval.String())
	v.Set("poll.retry_delay", cfg.Poll.RetryDelay.String())
	v.Set("poll.max_retry_delay", cfg.Poll.MaxRetryDelay.String())
	v.Set("poll.stall_after", cfg.Poll.StallAfter.String())

	v.Set("downloads.dir", cfg.Downloads.Dir)
	v.Set("ui.short_filter", cfg.UI.ShortFilter)
	v.Set("cache.dir", cfg.Cache.Dir)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the server URL and API key are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.APIKey != ""
}

// ClearCache removes all cached data
func ClearCache(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(cfg.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
