package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
)

// Config represents the application configuration
type Config struct {
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary" yaml:"cloudinary"`
	Tags       []string         `mapstructure:"tags" yaml:"tags"`
	Listings   ListingsConfig   `mapstructure:"listings" yaml:"listings"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Fetch      FetchConfig      `mapstructure:"fetch" yaml:"fetch"`
	Derive     DeriveConfig     `mapstructure:"derive" yaml:"derive"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CloudinaryConfig contains the account used for listing and delivery URLs
type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name" yaml:"cloud_name"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	// BaseURL is where tag listings are fetched from. Delivery URLs in the
	// manifest always use res.cloudinary.com.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// ListingsConfig contains intermediate listing storage settings
type ListingsConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// OutputConfig contains manifest output settings
type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Filename  string `mapstructure:"filename" yaml:"filename"`
	DryRun    bool   `mapstructure:"dry_run" yaml:"dry_run"`
}

// FetchConfig contains listing fetch settings
type FetchConfig struct {
	Policy     domain.FetchPolicy `mapstructure:"policy" yaml:"policy"`
	Workers    int                `mapstructure:"workers" yaml:"workers"`
	Timeout    time.Duration      `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int                `mapstructure:"max_retries" yaml:"max_retries"`
	UserAgent  string             `mapstructure:"user_agent" yaml:"user_agent"`
}

// DeriveConfig contains variant derivation settings
type DeriveConfig struct {
	Strict  bool `mapstructure:"strict" yaml:"strict"`
	Workers int  `mapstructure:"workers" yaml:"workers"`
}

// CacheConfig contains response cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration, replacing out-of-range values with
// defaults and rejecting values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Fetch.Workers < 1 {
		c.Fetch.Workers = DefaultFetchWorkers
	}
	if c.Fetch.Timeout < time.Second {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Fetch.MaxRetries < 0 {
		c.Fetch.MaxRetries = 0
	}
	if c.Derive.Workers < 1 {
		c.Derive.Workers = DefaultDeriveWorkers
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Listings.Directory == "" {
		c.Listings.Directory = DefaultListingsDir
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Output.Filename == "" {
		c.Output.Filename = DefaultOutputFilename
	}
	if strings.ContainsAny(c.Output.Filename, `/\`) {
		return domain.NewValidationError("output.filename", "must be a bare file name")
	}

	policy, err := domain.ParseFetchPolicy(string(c.Fetch.Policy))
	if err != nil {
		return domain.NewValidationError("fetch.policy", err.Error())
	}
	c.Fetch.Policy = policy

	tags, err := normalizeTags(c.Tags)
	if err != nil {
		return err
	}
	c.Tags = tags

	return nil
}

// normalizeTags trims tags, drops blanks and duplicates, and rejects tags
// that cannot be used as a file name stem
func normalizeTags(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	tags := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if strings.ContainsAny(tag, `/\`) || tag == "." || tag == ".." {
			return nil, domain.NewValidationError("tags", fmt.Sprintf("invalid tag %q", tag))
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, &domain.ValidationError{Field: "tags", Message: "at least one tag is required", Err: domain.ErrNoTags}
	}
	return tags, nil
}

// RequireCredentials reports which Cloudinary credentials are missing
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Cloudinary.CloudName == "" {
		missing = append(missing, "CLOUD_NAME")
	}
	if c.Cloudinary.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if c.Cloudinary.APISecret == "" {
		missing = append(missing, "API_SECRET")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{
			Field:   "cloudinary",
			Message: "missing " + strings.Join(missing, ", "),
			Err:     domain.ErrMissingCredentials,
		}
	}
	return nil
}

// Redacted returns a copy safe to print, with the key and secret masked
func (c Config) Redacted() Config {
	c.Tags = append([]string(nil), c.Tags...)
	c.Cloudinary.APIKey = mask(c.Cloudinary.APIKey, 4)
	c.Cloudinary.APISecret = mask(c.Cloudinary.APISecret, 0)
	return c
}

func mask(s string, keep int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + strings.Repeat("*", 8)
}
