// Package processing takes care of the logistics around reading queries and writing rasters.
// Not the rastering itself.
package processing

import (
	"log"
	"sync"
)

// numberItems gives every item from the source its position, so the results can be put back in order
func numberItems(source Source, numbered chan<- Item) {
	items := make(chan Item)
	go source.ReadQueries(items)
	seq := 0
	for item := range items {
		item.Seq = seq
		seq++
		numbered <- item
	}
	close(numbered)
}

// processItems rasters the queries of the items with the given function
func processItems(itemsIn <-chan Item, itemsOut chan<- Item, f RasterFunc) {
	for item := range itemsIn {
		if item.Err == nil {
			item.Result, item.Err = f(item.Query)
		}
		itemsOut <- item
	}
}

// reorderItems passes the processed items on in the order the source gave them
func reorderItems(processed <-chan Item, ordered chan<- Item) {
	var total, successCount, failedCount, errorCount uint64
	pending := make(map[int]Item)
	next := 0
	for item := range processed {
		pending[item.Seq] = item
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			total++
			switch {
			case p.Err != nil:
				errorCount++
			case p.Result.Success:
				successCount++
			default:
				failedCount++
			}
			ordered <- p
		}
	}
	close(ordered)

	log.Printf("    total queries: %d", total)
	log.Printf("       successful: %d", successCount)
	log.Printf("  nothing covered: %d", failedCount)
	log.Printf("           errors: %d", errorCount)
}

// ProcessQueries rasters every query from source with f, using workers goroutines,
// and writes the results to target in source order.
func ProcessQueries(source Source, target Target, f RasterFunc, workers int) error {
	if workers < 1 {
		workers = 1
	}
	numbered := make(chan Item)
	processed := make(chan Item)
	ordered := make(chan Item)

	go numberItems(source, numbered)

	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processItems(numbered, processed, f)
		}()
	}
	go func() {
		wg.Wait()
		close(processed)
	}()
	go reorderItems(processed, ordered)

	err := target.WriteResults(ordered)
	// keep draining, so no goroutine is left blocked when the target gave up early
	for range ordered { //nolint:revive
	}
	return err
}
