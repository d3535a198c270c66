package simulation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunk is a contiguous range of replications handled by one worker.
type chunk struct {
	worker   int
	from, to int
}

// chunks splits n replications into at most workers contiguous ranges.
func chunks(n, workers int) []chunk {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		return nil
	}
	size := (n + workers - 1) / workers
	var out []chunk
	for from := 0; from < n; from += size {
		to := min(from+size, n)
		out = append(out, chunk{worker: len(out), from: from, to: to})
	}
	return out
}

// forEachReplication runs fn for every replication, one goroutine per chunk.
// fn receives the worker index so it can write to worker-owned accumulators.
// Cancellation is checked before each replication.
func forEachReplication(ctx context.Context, parts []chunk, fn func(worker, r int)) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range parts {
		g.Go(func() error {
			for r := c.from; r < c.to; r++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				fn(c.worker, r)
			}
			return nil
		})
	}
	return g.Wait()
}
