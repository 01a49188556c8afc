package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DotEnvFile is read before the environment is consulted. Variables already
// present in the process environment win over the file.
var DotEnvFile = ".env"

// Load loads configuration from file, .env, environment, and defaults.
// Uses the global viper instance to access CLI flag bindings
func Load() (*Config, error) {
	return load(viper.GetViper())
}

// LoadWithViper loads configuration into a fresh viper instance and
// returns it alongside the config
func LoadWithViper() (*Config, *viper.Viper, error) {
	v := viper.New()
	cfg, err := load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	explicit := v.ConfigFileUsed() != ""
	if !explicit {
		v.SetConfigName("gallery-assets")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}

	// Read config file (ignore if not found, unless it was asked for)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	// Environment variables (GALLERY_ASSETS_*)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare names are the ones the deploy environment already exports
	_ = v.BindEnv("cloudinary.cloud_name", EnvPrefix+"_CLOUDINARY_CLOUD_NAME", "CLOUD_NAME")
	_ = v.BindEnv("cloudinary.api_key", EnvPrefix+"_CLOUDINARY_API_KEY", "API_KEY")
	_ = v.BindEnv("cloudinary.api_secret", EnvPrefix+"_CLOUDINARY_API_SECRET", "API_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of a .env file; a missing file is fine
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Cloudinary defaults
	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.base_url", "https://res.cloudinary.com")

	v.SetDefault("tags", DefaultTags)

	// Storage defaults
	v.SetDefault("listings.directory", DefaultListingsDir)
	v.SetDefault("output.directory", DefaultOutputDir)
	v.SetDefault("output.filename", DefaultOutputFilename)
	v.SetDefault("output.dry_run", false)

	// Fetch defaults
	v.SetDefault("fetch.policy", string(DefaultFetchPolicy))
	v.SetDefault("fetch.workers", DefaultFetchWorkers)
	v.SetDefault("fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("fetch.max_retries", DefaultMaxRetries)
	v.SetDefault("fetch.user_agent", "")

	// Derive defaults
	v.SetDefault("derive.strict", DefaultStrict)
	v.SetDefault("derive.workers", DefaultDeriveWorkers)

	// Cache defaults
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.directory", CacheDir())

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}
