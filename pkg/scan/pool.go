package scan

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// pool runs independent tasks with bounded parallelism. Tasks never return
// errors for per-file failures; they record them in their own result slot.
type pool struct {
	maxWorkers int
}

func newPool(maxWorkers int) *pool {
	if maxWorkers < 1 {
		maxWorkers = runtime.NumCPU()
	}
	return &pool{maxWorkers: maxWorkers}
}

// run executes task(i) for every i in [0, n) and waits for all of them.
// No new task is started once ctx is cancelled, and the cancellation error
// is returned.
func (p *pool) run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			task(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
