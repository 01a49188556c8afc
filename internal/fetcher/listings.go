package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/cloudinary"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// ListingOptions contains options for creating a ListingFetcher
type ListingOptions struct {
	URLs      *cloudinary.URLBuilder
	Fetcher   domain.Fetcher
	Directory string
	Policy    domain.FetchPolicy
	Workers   int
	Timeout   time.Duration
	Logger    *utils.Logger
	Progress  bool
}

// ListingFetcher downloads the resource listing of each category tag and
// stores it as <Directory>/<tag>.json
type ListingFetcher struct {
	urls     *cloudinary.URLBuilder
	fetcher  domain.Fetcher
	dir      string
	policy   domain.FetchPolicy
	workers  int
	timeout  time.Duration
	logger   *utils.Logger
	progress bool
}

// TagFailure records a tag whose listing could not be fetched
type TagFailure struct {
	Tag string
	Err error
}

// FetchReport is the per-tag outcome of FetchAll, in tag order
type FetchReport struct {
	Fetched []string
	Failed  []TagFailure
	// FromCache counts listings served by the response cache
	FromCache int
}

// FailedTags returns the names of the tags that failed
func (r *FetchReport) FailedTags() []string {
	tags := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		tags[i] = f.Tag
	}
	return tags
}

// NewListingFetcher creates a ListingFetcher
func NewListingFetcher(opts ListingOptions) *ListingFetcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = domain.FetchFailFast
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	return &ListingFetcher{
		urls:     opts.URLs,
		fetcher:  opts.Fetcher,
		dir:      opts.Directory,
		policy:   opts.Policy,
		workers:  opts.Workers,
		timeout:  opts.Timeout,
		logger:   opts.Logger.WithComponent("fetcher"),
		progress: opts.Progress,
	}
}

// ListingPath returns where the listing of tag is stored
func (f *ListingFetcher) ListingPath(tag string) string {
	return filepath.Join(f.dir, tag+".json")
}

type tagOutcome struct {
	done      bool
	fromCache bool
	err       error
}

// FetchAll fetches every tag. Under fail-fast the first failure cancels the
// remaining fetches and is returned. Under best-effort failures are recorded
// in the report, and an error is returned only when no tag succeeded.
func (f *ListingFetcher) FetchAll(ctx context.Context, tags []string) (*FetchReport, error) {
	if len(tags) == 0 {
		return nil, domain.ErrNoTags
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, domain.NewWriteError(f.dir, err)
	}

	var bar *progressbar.ProgressBar
	if f.progress {
		bar = utils.NewProgressBar(len(tags), utils.DescFetching)
		defer bar.Finish()
	}

	outcomes := make([]tagOutcome, len(tags))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, tag := range tags {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			fromCache, err := f.Fetch(gctx, tag)
			if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				// aborted by another tag's failure or by the caller
				return gctx.Err()
			}

			mu.Lock()
			outcomes[i] = tagOutcome{done: true, fromCache: fromCache, err: err}
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}

			if err == nil {
				return nil
			}
			if f.policy == domain.FetchFailFast {
				return err
			}

			f.logger.WithTag(tag).Warn().Err(err).Msg("Listing fetch failed, continuing without it")
			if rmErr := os.Remove(f.ListingPath(tag)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				f.logger.WithTag(tag).Warn().Err(rmErr).Msg("Failed to remove stale listing")
			}
			return nil
		})
	}

	waitErr := g.Wait()

	report := &FetchReport{}
	for i, tag := range tags {
		o := outcomes[i]
		switch {
		case !o.done:
			// cancelled before it started
		case o.err != nil:
			report.Failed = append(report.Failed, TagFailure{Tag: tag, Err: o.err})
		default:
			report.Fetched = append(report.Fetched, tag)
			if o.fromCache {
				report.FromCache++
			}
		}
	}

	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Fetched) == 0 {
		return report, fmt.Errorf("%w: all %d tags failed: %w", domain.ErrNoListings, len(tags), report.Failed[0].Err)
	}

	return report, nil
}

// Fetch downloads the listing of one tag and writes it to ListingPath(tag).
// The body must decode as a listing before anything is written.
func (f *ListingFetcher) Fetch(ctx context.Context, tag string) (fromCache bool, err error) {
	url, err := f.urls.ListURL(tag)
	if err != nil {
		return false, &domain.FetchError{Tag: tag, Err: err}
	}
	logger := f.logger.WithTag(tag)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := f.fetcher.Get(ctx, url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		return false, tagError(tag, url, err)
	}

	if _, err := domain.DecodeListing(resp.Body); err != nil {
		return false, &domain.FetchError{Tag: tag, URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	path := f.ListingPath(tag)
	if err := utils.WriteFileAtomic(path, resp.Body, 0644); err != nil {
		return false, domain.NewWriteError(path, err)
	}

	logger.Debug().
		Str("file", path).
		Int("bytes", len(resp.Body)).
		Bool("cached", resp.FromCache).
		Dur("duration", time.Since(start)).
		Msg("Listing saved")

	return resp.FromCache, nil
}

// tagError attaches the tag to the FetchError inside err, or wraps err in a
// new one
func tagError(tag, url string, err error) error {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		fetchErr.Tag = tag
		if fetchErr.URL == "" {
			fetchErr.URL = url
		}
		return err
	}
	return &domain.FetchError{Tag: tag, URL: url, Err: err}
}
