package app

import (
	"fmt"

	"github.com/avjpl/gallery-assets-json-generation/internal/cache"
	"github.com/avjpl/gallery-assets-json-generation/internal/cloudinary"
	"github.com/avjpl/gallery-assets-json-generation/internal/config"
	"github.com/avjpl/gallery-assets-json-generation/internal/deriver"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/fetcher"
	"github.com/avjpl/gallery-assets-json-generation/internal/output"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
)

// Dependencies holds the components of one pipeline run
type Dependencies struct {
	Logger   *utils.Logger
	Cache    domain.Cache
	Fetcher  domain.Fetcher
	URLs     *cloudinary.URLBuilder
	Listings *fetcher.ListingFetcher
	Deriver  *deriver.Deriver
	Writer   *output.Writer
}

// DependencyOptions contains options for building Dependencies
type DependencyOptions struct {
	domain.CommonOptions
	Config *config.Config
	Logger *utils.Logger
	// Fetcher replaces the HTTP client; used by tests
	Fetcher domain.Fetcher
}

// NewDependencies wires the pipeline components from configuration
func NewDependencies(opts DependencyOptions) (*Dependencies, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	urls, err := cloudinary.NewURLBuilder(cfg.Cloudinary.BaseURL, cloudinary.Credentials{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	})
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{Logger: logger, URLs: urls}

	// Create cache if enabled
	if cfg.Cache.Enabled && opts.Fetcher == nil {
		c, err := cache.NewBadgerCache(cache.Options{
			Directory: utils.ExpandPath(cfg.Cache.Directory),
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		deps.Cache = c
	}

	deps.Fetcher = opts.Fetcher
	if deps.Fetcher == nil {
		client, err := fetcher.NewClient(fetcher.ClientOptions{
			Timeout:     cfg.Fetch.Timeout,
			MaxRetries:  cfg.Fetch.MaxRetries,
			EnableCache: deps.Cache != nil,
			CacheTTL:    cfg.Cache.TTL,
			Cache:       deps.Cache,
			UserAgent:   cfg.Fetch.UserAgent,
		})
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.Fetcher = client
	}

	deps.Listings = fetcher.NewListingFetcher(fetcher.ListingOptions{
		URLs:      deps.URLs,
		Fetcher:   deps.Fetcher,
		Directory: cfg.Listings.Directory,
		Policy:    cfg.Fetch.Policy,
		Workers:   cfg.Fetch.Workers,
		Timeout:   cfg.Fetch.Timeout,
		Logger:    logger,
		Progress:  opts.Progress,
	})

	deps.Deriver = deriver.NewDeriver(deriver.Options{
		URLs:     deps.URLs,
		Strict:   cfg.Derive.Strict,
		Workers:  cfg.Derive.Workers,
		Logger:   logger,
		Progress: opts.Progress,
	})

	deps.Writer = output.NewWriter(output.WriterOptions{
		Directory: cfg.Output.Directory,
		Filename:  cfg.Output.Filename,
		DryRun:    opts.DryRun || cfg.Output.DryRun,
	})

	return deps, nil
}

// Close releases the fetcher and cache
func (d *Dependencies) Close() error {
	var firstErr error
	if d.Fetcher != nil {
		if err := d.Fetcher.Close(); err != nil {
			firstErr = err
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
