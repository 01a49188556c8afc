// Package deriver turns stored tag listings into the gallery manifest.
package deriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avjpl/gallery-assets-json-generation/internal/cloudinary"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/manifest"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// Options contains options for creating a Deriver
type Options struct {
	URLs *cloudinary.URLBuilder
	// Strict aborts on the first resource without a category. When false
	// such resources are skipped and reported in Result.Skipped.
	Strict   bool
	Workers  int
	Logger   *utils.Logger
	Progress bool
}

// Deriver builds size variants for every resource of every listing file
type Deriver struct {
	urls     *cloudinary.URLBuilder
	strict   bool
	workers  int
	logger   *utils.Logger
	progress bool
}

// Result is the outcome of Derive
type Result struct {
	Manifest  *manifest.Manifest
	Listings  int
	Resources int
	Skipped   []*domain.ExtractionError
}

// NewDeriver creates a Deriver
func NewDeriver(opts Options) *Deriver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Deriver{
		urls:     opts.URLs,
		strict:   opts.Strict,
		workers:  opts.Workers,
		logger:   opts.Logger.WithComponent("deriver"),
		progress: opts.Progress,
	}
}

// partial is the manifest contribution of one listing file
type partial struct {
	manifest  *manifest.Manifest
	resources int
	skipped   []*domain.ExtractionError
}

// Derive reads every *.json listing in dir, in file name order, and
// aggregates their bundles into one manifest. Files are decoded in parallel;
// partial results are merged in file order so the output is deterministic.
func (d *Deriver) Derive(ctx context.Context, dir string) (*Result, error) {
	paths, err := ListingFiles(dir)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if d.progress && len(paths) > 0 {
		bar = utils.NewProgressBar(len(paths), utils.DescDeriving)
		defer bar.Finish()
	}

	partials, err := utils.MapOrdered(ctx, paths, d.workers, func(ctx context.Context, path string) (*partial, error) {
		p, err := d.deriveFile(path)
		if err != nil {
			return nil, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Manifest: manifest.New(),
		Listings: len(paths),
	}
	for _, p := range partials {
		result.Manifest.Merge(p.manifest)
		result.Resources += p.resources
		result.Skipped = append(result.Skipped, p.skipped...)
	}

	d.logger.Debug().
		Int("listings", result.Listings).
		Int("resources", result.Resources).
		Int("categories", len(result.Manifest.Category)).
		Int("skipped", len(result.Skipped)).
		Msg("Derivation complete")

	return result, nil
}

// deriveFile decodes one listing and builds a bundle per resource
func (d *Deriver) deriveFile(path string) (*partial, error) {
	logger := d.logger.WithFile(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	listing, err := domain.DecodeListing(data)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}

	p := &partial{
		manifest:  manifest.New(),
		resources: len(listing.Resources),
	}
	for _, res := range listing.Resources {
		bundle, err := d.urls.NewBundle(res)
		if err != nil {
			var extractErr *domain.ExtractionError
			if d.strict || !errors.As(err, &extractErr) {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			logger.Warn().Str("public_id", res.PublicID).Msg("Skipping resource without category")
			p.skipped = append(p.skipped, extractErr)
			continue
		}
		p.manifest.Add(bundle)
	}

	logger.Debug().Int("resources", p.resources).Msg("Listing derived")
	return p, nil
}

// ListingFiles returns the *.json files directly inside dir, sorted by name.
// Hidden files, such as in-flight temporary writes, are ignored.
func ListingFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
