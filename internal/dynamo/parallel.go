package dynamo

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFor calls fn on contiguous chunks covering [0, n), one goroutine
// per chunk and at most GOMAXPROCS at a time. Work that fits in minChunk
// runs inline.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	minChunk = max(minChunk, 1)
	workers := min(runtime.GOMAXPROCS(0), n/minChunk)
	if workers <= 1 {
		if n > 0 {
			fn(0, n)
		}
		return
	}

	size := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
