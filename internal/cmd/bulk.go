package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default number of concurrent workers
const DefaultConcurrency = 4

// BulkResult represents the outcome of a single bulk operation. Results keep
// the order of the input items.
type BulkResult struct {
	Item    string `json:"item"`
	Success bool   `json:"success"`
	Error   error  `json:"-"`
	Data    any    `json:"data,omitempty"`
}

// runBulkOperation executes operations concurrently with bounded parallelism
func runBulkOperation[T any](
	ctx context.Context,
	items []string,
	concurrency int64,
	progress bool,
	errOut io.Writer,
	operation func(ctx context.Context, item string) (T, error),
) []BulkResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if errOut == nil {
		errOut = io.Discard
	}

	sem := semaphore.NewWeighted(concurrency)
	results := make([]BulkResult, len(items))
	total := len(items)
	var done int64
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		results[i] = BulkResult{Item: item}

		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].Error = err
				return nil
			}
			defer sem.Release(1)

			if err := ctx.Err(); err != nil {
				results[i].Error = err
				return nil
			}

			data, err := operation(ctx, item)
			if err != nil {
				results[i].Error = err
			} else {
				results[i].Success = true
				results[i].Data = data
			}

			if progress && total > 0 {
				current := atomic.AddInt64(&done, 1)
				mu.Lock()
				_, _ = fmt.Fprintf(errOut, "\rProcessed %d/%d", current, total)
				mu.Unlock()
			}
			// Individual failures are reported through results.
			return nil
		})
	}
	_ = g.Wait()

	if progress && total > 0 {
		_, _ = fmt.Fprintf(errOut, "\rProcessed %d/%d\n", atomic.LoadInt64(&done), total)
	}
	return results
}

// countResults returns success and failure counts from bulk results
func countResults(results []BulkResult) (success, failure int) {
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failure++
		}
	}
	return
}

// bulkSummary renders results for JSON output.
func bulkSummary(results []BulkResult) map[string]any {
	success, failure := countResults(results)
	items := make([]map[string]any, 0, len(results))
	for _, r := range results {
		item := map[string]any{"item": r.Item, "success": r.Success}
		if r.Data != nil {
			item["data"] = r.Data
		}
		if r.Error != nil {
			item["error"] = r.Error.Error()
		}
		items = append(items, item)
	}
	return map[string]any{
		"succeeded": success,
		"failed":    failure,
		"results":   items,
	}
}
