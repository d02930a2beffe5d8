// Package pool provides a small bounded-concurrency task runner. Work is
// fanned out over a fixed number of goroutines and every task's outcome is
// collected, so one slow or failing task never hides the results of the
// others.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task.
type Result[Out any] struct {
	Value Out
	Err   error
}

// Run executes fn once per input with at most limit tasks in flight,
// returning results index-aligned with inputs. Task errors are recorded in
// the corresponding result rather than aborting the batch. A limit of zero
// or less means unbounded.
func Run[In, Out any](ctx context.Context, limit int, inputs []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			out, err := fn(ctx, in)
			results[i] = Result[Out]{Value: out, Err: err}
			return nil
		})
	}
	// Tasks never return errors through the group, so Wait only blocks.
	_ = g.Wait()
	return results
}
