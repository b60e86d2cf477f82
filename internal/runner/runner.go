// Package runner fans a fixed list of work units out over a bounded
// number of goroutines and joins on all of them. No unit's failure
// cancels a sibling; results land in input order.
package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run applies fn to every unit with at most limit in flight and blocks
// until all are done. results[i] always corresponds to units[i],
// regardless of completion order.
//
// fn is expected to fold its own failures into R and to return early
// when ctx is cancelled, so a cancelled run yields a partial, fully
// ordered result set rather than an abort.
func Run[T, R any](ctx context.Context, units []T, limit int, fn func(context.Context, T) R) []R {
	if limit <= 0 {
		limit = 1
	}
	results := make([]R, len(units))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range units {
		g.Go(func() error {
			results[i] = fn(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
