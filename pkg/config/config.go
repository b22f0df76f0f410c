package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the scraper and downloader
type Config struct {
	// Auth maps site name to opaque secret values (e.g. DDOS-Guard cookie
	// strings) consumed by per-site cookie priming. Read-only at runtime.
	Auth map[string]map[string]string `yaml:"auth" json:"auth"`

	Scraper   ScraperConfig   `yaml:"scraper" json:"scraper"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ScraperConfig holds work-queue and dispatch settings
type ScraperConfig struct {
	Workers   int `yaml:"workers" json:"workers"`
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	// Per-crawler request budget: RequestsPerWindow ops per Window.
	RequestsPerWindow int           `yaml:"requests_per_window" json:"requests_per_window"`
	Window            time.Duration `yaml:"window" json:"window"`
	// Per-domain politeness applied by the engine before dispatch.
	DomainRequests int           `yaml:"domain_requests" json:"domain_requests"`
	DomainWindow   time.Duration `yaml:"domain_window" json:"domain_window"`
}

// OutputConfig holds download destination settings
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	BlockSubFolders   bool   `yaml:"block_sub_folders" json:"block_sub_folders"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// DownloadConfig holds download-execution settings
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	MaxAttempts         int           `yaml:"max_attempts" json:"max_attempts"`
	DisableTimestamps   bool          `yaml:"disable_timestamps" json:"disable_timestamps"`
	WriteMetadata       bool          `yaml:"write_metadata" json:"write_metadata"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Auth: make(map[string]map[string]string),
		Scraper: ScraperConfig{
			Workers:   5,
			QueueSize: 256,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 10,
			Window:            time.Second,
			DomainRequests:    10,
			DomainWindow:      time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     5 * time.Minute,
			MaxAttempts:         3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SiteSecret returns the configured secret for a site/key pair, or "" when
// unset. Missing sites and keys are not errors; cookie priming skips them.
func (c *Config) SiteSecret(site, key string) string {
	values, ok := c.Auth[site]
	if !ok {
		return ""
	}
	return values[key]
}

// LoadFromFile loads configuration from a YAML file. An empty path tries the
// standard locations and is not an error when nothing is found.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{
		".mediagrab.yaml",
		".mediagrab.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "mediagrab", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "mediagrab", "config.yml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv overrides settings from MEDIAGRAB_* environment variables.
// Site secrets follow MEDIAGRAB_AUTH_<SITE>_<KEY>.
func (c *Config) LoadFromEnv() {
	if dir := os.Getenv("MEDIAGRAB_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if level := os.Getenv("MEDIAGRAB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("MEDIAGRAB_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scraper.Workers = n
		}
	}
	if v := os.Getenv("MEDIAGRAB_CONCURRENT_DOWNLOADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Download.ConcurrentDownloads = n
		}
	}

	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || value == "" || !strings.HasPrefix(key, "MEDIAGRAB_AUTH_") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(key, "MEDIAGRAB_AUTH_"), "_", 2)
		if len(parts) != 2 {
			continue
		}
		c.SetSiteSecret(strings.ToLower(parts[0]), strings.ToLower(parts[1]), value)
	}
}

// SetSiteSecret stores a secret value for a site/key pair
func (c *Config) SetSiteSecret(site, key, value string) {
	if c.Auth == nil {
		c.Auth = make(map[string]map[string]string)
	}
	if c.Auth[site] == nil {
		c.Auth[site] = make(map[string]string)
	}
	c.Auth[site][key] = value
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Scraper.Workers <= 0 {
		errs = append(errs, errors.New("scraper workers must be positive"))
	}
	if c.Scraper.QueueSize <= 0 {
		errs = append(errs, errors.New("scraper queue size must be positive"))
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max download attempts must be positive"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error", "disabled":
	default:
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load builds configuration from all sources.
// Precedence: env variables > .env file > config file > defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".mediagrab.env"))

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
