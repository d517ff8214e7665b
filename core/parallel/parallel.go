// Package parallel provides data-parallel fan-out helpers for scanning row
// ranges. Histogram accumulation splits the row set into contiguous chunks,
// one per worker, so each goroutine owns a disjoint slice of rows.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per available CPU
// core, and runs fn(start, end) for each range on its own goroutine.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWithWorkers(items, runtime.NumCPU(), func(_, start, end int) {
		fn(start, end)
	})
}

// ParallelizeWithWorkers divides items into contiguous ranges across the
// given number of workers and runs fn(worker, start, end) for each range.
// The worker index is stable per goroutine so callers can attach per-worker
// scratch state (for example a local staging histogram) without locking.
func ParallelizeWithWorkers(items, workers int, fn func(worker, start, end int)) {
	if items == 0 {
		return
	}
	if workers > items {
		workers = items
	}
	if workers < 1 {
		workers = 1
	}

	// Ceiling division so the last worker picks up the remainder.
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			fn(w, s, e)
		}(w, start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold, avoiding goroutine overhead on small row sets.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
