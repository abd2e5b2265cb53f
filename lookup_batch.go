package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

type lookupTask struct {
	batch *lookupBatch
	index int
}

// lookupBatch is a group of lookups of a single request scheduled on a
// shared worker pool. Each task owns its own slot in results.
type lookupBatch struct {
	ctx     context.Context
	cancel  context.CancelFunc
	ips     []string
	results []ResolveResult
	wg      sync.WaitGroup
	pool    *ants.PoolWithFunc
}

// Run schedules all lookups and waits until they are finished. If
// scheduling fails, tasks which are not started yet are cancelled.
func (b *lookupBatch) Run() error {
	defer b.cancel()

	for i := range b.ips {
		if err := b.ctx.Err(); err != nil {
			b.wg.Wait()

			return err
		}

		b.wg.Add(1)

		if err := b.pool.Invoke(&lookupTask{batch: b, index: i}); err != nil {
			b.wg.Done()
			b.cancel()
			b.wg.Wait()

			return fmt.Errorf("cannot schedule a lookup: %w", err)
		}
	}

	b.wg.Wait()

	return nil
}

func newLookupBatch(ctx context.Context, ips []string, pool *ants.PoolWithFunc) *lookupBatch {
	ctx, cancel := context.WithCancel(ctx)

	return &lookupBatch{
		ctx:     ctx,
		cancel:  cancel,
		ips:     ips,
		results: make([]ResolveResult, len(ips)),
		pool:    pool,
	}
}
