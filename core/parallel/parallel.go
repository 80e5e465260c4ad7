// Package parallel splits batch scoring across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the batch size up to which work stays on the calling
// goroutine.
const DefaultThreshold = 256

// Chunks calls fn on contiguous ranges covering [0, items). Batches no
// larger than threshold run sequentially; larger ones get one goroutine per
// CPU. When several ranges fail, the error of the lowest range is returned.
func Chunks(items, threshold int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}
	if items <= threshold {
		return fn(0, items)
	}

	workers := runtime.NumCPU()
	if workers > items {
		workers = items
	}
	size := (items + workers - 1) / workers

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * size
		if start >= items {
			break
		}
		end := start + size
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = fn(start, end)
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
