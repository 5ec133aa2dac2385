// Package fanout runs independent units of work concurrently with a bounded
// worker limit, collecting a result or error per item without letting one
// failure abort its siblings — "allSettled" semantics, as opposed to
// errgroup's fail-fast Wait.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds fan-out when Settled is called without an
// explicit limit.
const DefaultConcurrency = 3

// Result is one item's outcome: at most one of Value/Err is set unless the
// item's context was already cancelled, in which case Err is ctx.Err().
type Result[T any] struct {
	Value T
	Err   error
}

// Settled runs fn once per item in items, with concurrency bounded to
// limit (DefaultConcurrency if limit <= 0), and returns one Result per item
// in the original order. A single item's error never aborts the others and
// is never returned from Settled itself — callers inspect each Result.
func Settled[I, T any](ctx context.Context, items []I, limit int, fn func(context.Context, I) (T, error)) []Result[T] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result[T], len(items))
	if len(items) == 0 {
		return results
	}
	if len(items) == 1 {
		v, err := fn(ctx, items[0])
		results[0] = Result[T]{Value: v, Err: err}
		return results
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				results[i] = Result[T]{Err: gCtx.Err()}
				return nil
			default:
			}
			v, err := fn(ctx, item)
			results[i] = Result[T]{Value: v, Err: err}
			return nil // never propagate: every outcome is captured per-item
		})
	}
	_ = g.Wait() // g.Go never returns a non-nil error, so Wait never fails

	return results
}

// AnyFailed reports whether at least one Result carries an error.
func AnyFailed[T any](results []Result[T]) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}
