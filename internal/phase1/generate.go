package phase1

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gopos/plot/internal/entrycodec"
	"github.com/gopos/plot/internal/fx"
	"github.com/gopos/plot/internal/sortmanager"
)

// generateTable1 evaluates F1 over x in [0, 2^k) in parallel batches
// (spec.md §4.4's "stream x in batches of 2^kBatchSize") and feeds the
// results into sm, bucketed by y's top bits. Workers compute independent
// x-ranges; a single writer goroutine serializes Add calls, since
// sortmanager.Manager is not safe for concurrent writers (spec.md §5).
func generateTable1(ctx context.Context, k uint8, plotID [32]byte, sm *sortmanager.Manager, numThreads int) error {
	layout := entrycodec.Table1Phase1(k)

	total := uint64(1) << k

	const batchSize = uint64(1) << 14

	numBatches := (total + batchSize - 1) / batchSize

	type batchResult struct {
		start  uint64
		count  uint64
		values []fx.Result
	}

	results := make(chan batchResult, numThreads*2)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(results)

		sem := make(chan struct{}, numThreads)

		var inner errgroup.Group

		for b := uint64(0); b < numBatches; b++ {
			start := b * batchSize
			count := batchSize
			if start+count > total {
				count = total - start
			}

			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}

			inner.Go(func() error {
				defer func() { <-sem }()

				f1 := fx.NewF1(int(k), plotID)
				values := f1.CalculateRange(start, count)

				select {
				case results <- batchResult{start: start, count: count, values: values}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}

		return inner.Wait()
	})

	g.Go(func() error {
		for {
			select {
			case r, ok := <-results:
				if !ok {
					return nil
				}

				for _, v := range r.values {
					entry := layout.PackUint64(v.Y, v.X)
					if err := sm.Add(entry); err != nil {
						return err
					}
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	return g.Wait()
}
