package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/config"
	"github.com/avjpl/gallery-assets-json-generation/internal/deriver"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
)

// Pipeline runs fetch, derive and write, in that order, each stage starting
// only once the previous one has finished
type Pipeline struct {
	config *config.Config
	deps   *Dependencies
	logger *utils.Logger
	dryRun bool
}

// Options contains options for creating a Pipeline
type Options struct {
	domain.CommonOptions
	Config *config.Config
	// Logger overrides the logger built from Config.Logging
	Logger *utils.Logger
	// Fetcher replaces the HTTP client; used by tests
	Fetcher domain.Fetcher
}

// Result summarises a completed run
type Result struct {
	Tags        []string
	FetchedTags []string
	FailedTags  []string
	FromCache   int
	Listings    int
	Resources   int
	Bundles     int
	Skipped     []string
	Categories  []string
	OutputPath  string
	DryRun      bool
	Duration    time.Duration
}

// NewPipeline creates a pipeline from configuration. Credentials must be
// present.
func NewPipeline(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewLogger(utils.LoggerOptions{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Verbose: opts.Verbose,
		})
	}

	deps, err := NewDependencies(DependencyOptions{
		CommonOptions: opts.CommonOptions,
		Config:        cfg,
		Logger:        logger,
		Fetcher:       opts.Fetcher,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dependencies: %w", err)
	}

	return &Pipeline{
		config: cfg,
		deps:   deps,
		logger: logger.WithComponent("pipeline"),
		dryRun: opts.DryRun || cfg.Output.DryRun,
	}, nil
}

// Run executes one full rebuild of the manifest
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := p.config

	p.logger.Info().
		Strs("tags", cfg.Tags).
		Str("policy", string(cfg.Fetch.Policy)).
		Str("listings", cfg.Listings.Directory).
		Str("output", p.deps.Writer.Path()).
		Msg("Starting manifest generation")

	// Stage 1: listings
	report, err := p.deps.Listings.FetchAll(ctx, cfg.Tags)
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Warn().Msg("Generation cancelled")
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	p.logger.Info().
		Int("fetched", len(report.Fetched)).
		Int("failed", len(report.Failed)).
		Int("cached", report.FromCache).
		Msg("Listings fetched")

	p.warnUnexpectedListings(report.Fetched)

	// Stage 2: variants
	derived, err := p.deps.Deriver.Derive(ctx, cfg.Listings.Directory)
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Warn().Msg("Generation cancelled")
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("derive variants: %w", err)
	}

	// Stage 3: manifest
	path, err := p.deps.Writer.Write(ctx, derived.Manifest)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	result := &Result{
		Tags:        cfg.Tags,
		FetchedTags: report.Fetched,
		FailedTags:  report.FailedTags(),
		FromCache:   report.FromCache,
		Listings:    derived.Listings,
		Resources:   derived.Resources,
		Bundles:     derived.Manifest.Len(),
		Categories:  derived.Manifest.Category,
		OutputPath:  path,
		DryRun:      p.dryRun,
		Duration:    time.Since(start),
	}
	for _, s := range derived.Skipped {
		result.Skipped = append(result.Skipped, s.PublicID)
	}

	event := p.logger.Info()
	if len(result.FailedTags) > 0 || len(result.Skipped) > 0 {
		event = p.logger.Warn().
			Strs("failed_tags", result.FailedTags).
			Int("skipped", len(result.Skipped))
	}
	event.
		Int("resources", result.Resources).
		Strs("categories", result.Categories).
		Str("output", result.OutputPath).
		Bool("dry_run", result.DryRun).
		Dur("duration", result.Duration).
		Msg("Manifest generation completed")

	return result, nil
}

// warnUnexpectedListings flags listing files left over from tags that are
// not part of this run; they still feed the manifest
func (p *Pipeline) warnUnexpectedListings(fetched []string) {
	files, err := deriver.ListingFiles(p.config.Listings.Directory)
	if err != nil {
		return
	}
	known := make(map[string]bool, len(fetched))
	for _, tag := range fetched {
		known[tag] = true
	}
	for _, f := range files {
		tag := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if !known[tag] {
			p.logger.Warn().Str("file", f).Msg("Listing file does not belong to a fetched tag")
		}
	}
}

// Close releases all resources held by the pipeline
func (p *Pipeline) Close() error {
	if p.deps != nil {
		return p.deps.Close()
	}
	return nil
}
