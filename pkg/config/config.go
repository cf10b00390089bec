package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "twitsent"

// Config holds all configuration options for a collection run
type Config struct {
	Twitter       TwitterConfig      `yaml:"twitter" json:"twitter"`
	Collection    CollectionConfig   `yaml:"collection" json:"collection"`
	Throttle      ThrottleConfig     `yaml:"throttle" json:"throttle"`
	Storage       StorageConfig      `yaml:"storage" json:"storage"`
	Scoring       ScoringConfig      `yaml:"scoring" json:"scoring"`
	Metrics       MetricsConfig      `yaml:"metrics" json:"metrics"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging"`
}

// TwitterConfig holds the search API connection settings.
// BearerToken may stay empty here when the token comes from the credential store.
type TwitterConfig struct {
	BearerToken string        `yaml:"bearer_token" json:"bearer_token"`
	Account     string        `yaml:"account" json:"account"`
	Elevated    bool          `yaml:"elevated" json:"elevated"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
}

// CollectionConfig holds default collection parameters
type CollectionConfig struct {
	// Keywords are OR groups of AND terms.
	Keywords            [][]string `yaml:"keywords" json:"keywords"`
	SampleTerms         [][]string `yaml:"sample_terms" json:"sample_terms"`
	Languages           []string   `yaml:"languages" json:"languages"`
	MaxItemsPerInterval int        `yaml:"max_items_per_interval" json:"max_items_per_interval"`
	IntervalMinutes     int        `yaml:"interval_minutes" json:"interval_minutes"`
	DensityProbe        bool       `yaml:"density_probe" json:"density_probe"`
}

// ThrottleConfig holds the cooldown and pacing applied around each request
type ThrottleConfig struct {
	Cooldown       time.Duration `yaml:"cooldown" json:"cooldown"`
	StandardPacing time.Duration `yaml:"standard_pacing" json:"standard_pacing"`
	ElevatedPacing time.Duration `yaml:"elevated_pacing" json:"elevated_pacing"`
}

// StorageConfig holds where series files and the index live
type StorageConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// ScoringConfig holds sentiment scoring settings
type ScoringConfig struct {
	Workers int `yaml:"workers" json:"workers"`
	// Lexicon optionally points at a tab-separated word/valence file scored
	// in place of VADER.
	Lexicon string `yaml:"lexicon" json:"lexicon"`
}

// MetricsConfig enables a Prometheus endpoint while a run is in progress.
type MetricsConfig struct {
	Address string `yaml:"address" json:"address"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
	OnCooldown bool `yaml:"on_cooldown" json:"on_cooldown"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			BaseURL:   "https://api.twitter.com",
			Timeout:   30 * time.Second,
			UserAgent: "v2RecentSearchPython",
		},
		Collection: CollectionConfig{
			Languages:           []string{"en"},
			MaxItemsPerInterval: 10,
			IntervalMinutes:     240,
			DensityProbe:        true,
		},
		Throttle: ThrottleConfig{
			Cooldown:       15 * time.Minute,
			StandardPacing: 2 * time.Second,
			ElevatedPacing: 3 * time.Second,
		},
		Storage: StorageConfig{
			Directory: DefaultDataDir(),
		},
		Scoring: ScoringConfig{
			Workers: 4,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
			OnCooldown: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir is where stored series live unless configured otherwise.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, appName, "storedqueries")
}

// DefaultConfigPath is the per-user config file location.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LoadFromEnv loads configuration from TWITSENT_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if token := os.Getenv("TWITSENT_BEARER_TOKEN"); token != "" {
		c.Twitter.BearerToken = token
	}
	if account := os.Getenv("TWITSENT_ACCOUNT"); account != "" {
		c.Twitter.Account = account
	}
	if elevated := os.Getenv("TWITSENT_ELEVATED"); elevated != "" {
		c.Twitter.Elevated = strings.ToLower(elevated) == "true"
	}
	if baseURL := os.Getenv("TWITSENT_BASE_URL"); baseURL != "" {
		c.Twitter.BaseURL = baseURL
	}
	if langs := os.Getenv("TWITSENT_LANGUAGES"); langs != "" {
		c.Collection.Languages = splitList(langs)
	}
	if v := os.Getenv("TWITSENT_MAX_ITEMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWITSENT_MAX_ITEMS: %w", err))
		} else {
			c.Collection.MaxItemsPerInterval = n
		}
	}
	if v := os.Getenv("TWITSENT_INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWITSENT_INTERVAL_MINUTES: %w", err))
		} else {
			c.Collection.IntervalMinutes = n
		}
	}
	if v := os.Getenv("TWITSENT_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWITSENT_COOLDOWN: %w", err))
		} else {
			c.Throttle.Cooldown = d
		}
	}
	if dir := os.Getenv("TWITSENT_DATA_DIR"); dir != "" {
		c.Storage.Directory = dir
	}
	if lexicon := os.Getenv("TWITSENT_LEXICON"); lexicon != "" {
		c.Scoring.Lexicon = lexicon
	}
	if addr := os.Getenv("TWITSENT_METRICS_ADDR"); addr != "" {
		c.Metrics.Address = addr
	}
	if enabled := os.Getenv("TWITSENT_NOTIFICATIONS_ENABLED"); enabled != "" {
		c.Notifications.Enabled = strings.ToLower(enabled) == "true"
	}
	if level := os.Getenv("TWITSENT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
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

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	locations := []string{
		".twitsent.yaml",
		".twitsent.yml",
		DefaultConfigPath(),
		filepath.Join(xdg.ConfigHome, appName, "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Twitter.BaseURL == "" {
		errs = append(errs, errors.New("twitter base URL is required"))
	}
	if c.Twitter.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Collection.MaxItemsPerInterval < 1 {
		errs = append(errs, errors.New("max items per interval must be at least 1"))
	}
	if c.Collection.IntervalMinutes < 1 {
		errs = append(errs, errors.New("interval length must be at least one minute"))
	}

	if c.Throttle.Cooldown <= 0 {
		errs = append(errs, errors.New("throttle cooldown must be positive"))
	}
	if c.Throttle.StandardPacing < 0 || c.Throttle.ElevatedPacing < 0 {
		errs = append(errs, errors.New("pacing delays cannot be negative"))
	}

	if c.Storage.Directory == "" {
		errs = append(errs, errors.New("storage directory is required"))
	}
	if c.Scoring.Workers < 1 {
		errs = append(errs, errors.New("scoring workers must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
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

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys that were explicitly set by the caller should be present in flags.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["bearer-token"].(string); ok && token != "" {
		c.Twitter.BearerToken = token
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Twitter.Account = account
	}
	if elevated, ok := flags["elevated"].(bool); ok {
		c.Twitter.Elevated = elevated
	}
	if langs, ok := flags["languages"].([]string); ok && len(langs) > 0 {
		c.Collection.Languages = langs
	}
	if max, ok := flags["max-items"].(int); ok && max != 0 {
		c.Collection.MaxItemsPerInterval = max
	}
	if interval, ok := flags["interval"].(int); ok && interval != 0 {
		c.Collection.IntervalMinutes = interval
	}
	if probe, ok := flags["density-probe"].(bool); ok {
		c.Collection.DensityProbe = probe
	}
	if dir, ok := flags["data-dir"].(string); ok && dir != "" {
		c.Storage.Directory = dir
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Scoring.Workers = workers
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Address = addr
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.ConfigHome, appName, appName+".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
