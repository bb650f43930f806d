// Package bulk fans per-item upstream calls out concurrently and joins the
// results in input order.
//
// Contract:
//   - every item is dispatched immediately, one goroutine per item, unless
//     RunLimited caps the calls in flight
//   - result[i] always corresponds to items[i]
//   - the first error to arrive is returned and the remaining results are
//     discarded; in-flight calls are not canceled and run to completion
//   - an empty input yields an empty, non-nil result without calling fn
//
// Callers validate items before dispatch, so an error here is an upstream
// fault rather than a client input fault.
package bulk

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Func is the per-item upstream call.
type Func[In, Out any] func(ctx context.Context, item In) (Out, error)

// IndexedFunc is a per-item call that also receives the item position.
type IndexedFunc[In, Out any] func(ctx context.Context, index int, item In) (Out, error)

// Run applies fn to every item concurrently.
func Run[In, Out any](ctx context.Context, items []In, fn Func[In, Out]) ([]Out, error) {
	return RunIndexed(ctx, items, func(ctx context.Context, _ int, item In) (Out, error) {
		return fn(ctx, item)
	})
}

// RunIndexed is Run with the item index passed through to fn.
func RunIndexed[In, Out any](ctx context.Context, items []In, fn IndexedFunc[In, Out]) ([]Out, error) {
	return run(ctx, items, -1, fn)
}

// RunLimited is Run with at most limit calls in flight. A limit of zero or
// less means no limit.
func RunLimited[In, Out any](ctx context.Context, items []In, limit int, fn Func[In, Out]) ([]Out, error) {
	if limit <= 0 {
		limit = -1
	}
	return run(ctx, items, limit, func(ctx context.Context, _ int, item In) (Out, error) {
		return fn(ctx, item)
	})
}

func run[In, Out any](ctx context.Context, items []In, limit int, fn IndexedFunc[In, Out]) ([]Out, error) {
	results := make([]Out, len(items))
	if len(items) == 0 {
		return results, nil
	}

	// A plain Group keeps the first error without canceling siblings.
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			out, err := fn(ctx, i, item)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
