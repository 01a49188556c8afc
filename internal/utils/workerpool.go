package utils

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MapOrdered calls fn for every item with at most workers calls in flight
// and returns the results in input order.
//
// After a failure no further items are started. The returned error is the
// one of the lowest failing index, which is the same error a sequential run
// would stop at.
func MapOrdered[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	g.SetLimit(workers)

	for i, item := range items {
		if failed.Load() || ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				errs[i] = err
				failed.Store(true)
				return nil
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
