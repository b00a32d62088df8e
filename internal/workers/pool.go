package workers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Range runs fn for every index in [0, n) on at most workers goroutines.
// Each call writes only its own output slot, so results do not depend on
// completion order. The first error cancels the remaining work and is
// returned; a failed unit aborts the whole range.
func Range(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return fmt.Errorf("work unit %d: %w", i, err)
			}
		}
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := fn(gCtx, i); err != nil {
				return fmt.Errorf("work unit %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Map applies fn to every index and collects the results by index.
func Map[T any](ctx context.Context, n, workers int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	err := Range(ctx, n, workers, func(ctx context.Context, i int) error {
		v, err := fn(ctx, i)
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
