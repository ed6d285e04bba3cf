// Package batch provides a bounded-concurrency map over a slice: a fixed
// pool of workers drains an ordered queue, so at most `width` calls are
// in flight at any instant regardless of input length.
package batch

import (
	"context"
	"sync"
)

// DefaultWidth is the pool width used when the caller passes width <= 0.
const DefaultWidth = 5

// Result pairs one input's output with its error. Index refers back to the
// position in the input slice.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Map applies fn to every item with at most width concurrent calls and
// returns results positionally aligned with the input. Per-item errors are
// recorded in the corresponding Result and never abort the remaining items;
// context cancellation stops workers from picking up new items, and the
// unprocessed items carry ctx.Err().
func Map[T, R any](ctx context.Context, items []T, width int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if width <= 0 {
		width = DefaultWidth
	}
	if width > len(items) {
		width = len(items)
	}

	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	queue := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				val, err := fn(ctx, items[i])
				results[i] = Result[R]{Index: i, Value: val, Err: err}
			}
		}()
	}

	// Feed the queue in input order so earlier items start first.
	for i := range items {
		select {
		case <-ctx.Done():
			// Mark everything not yet handed out as cancelled.
			for j := i; j < len(items); j++ {
				results[j] = Result[R]{Index: j, Err: ctx.Err()}
			}
			close(queue)
			wg.Wait()
			return results
		case queue <- i:
		}
	}
	close(queue)
	wg.Wait()

	return results
}
