package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
)

// Default values
const (
	// Storage defaults
	DefaultListingsDir    = "json"
	DefaultOutputDir      = "assets"
	DefaultOutputFilename = "assets.json"

	// Fetch defaults
	DefaultFetchPolicy  = domain.FetchFailFast
	DefaultFetchWorkers = 4
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxRetries   = 0

	// Derive defaults
	DefaultStrict        = true
	DefaultDeriveWorkers = 4

	// Cache defaults
	DefaultCacheEnabled = false
	DefaultCacheTTL     = time.Hour

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "GALLERY_ASSETS"
)

// DefaultTags is the category tag list queried when none is configured
var DefaultTags = []string{
	"birds",
	"insects",
	"locations",
	"reptiles",
	"amphibians",
}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gallery-assets"
	}
	return filepath.Join(home, ".gallery-assets")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "gallery-assets.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Tags: append([]string(nil), DefaultTags...),
		Listings: ListingsConfig{
			Directory: DefaultListingsDir,
		},
		Output: OutputConfig{
			Directory: DefaultOutputDir,
			Filename:  DefaultOutputFilename,
		},
		Fetch: FetchConfig{
			Policy:     DefaultFetchPolicy,
			Workers:    DefaultFetchWorkers,
			Timeout:    DefaultFetchTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Derive: DeriveConfig{
			Strict:  DefaultStrict,
			Workers: DefaultDeriveWorkers,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
