package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/9seconds/iplocation/geolib"
	"github.com/panjf2000/ants/v2"
)

const workerPoolExpireTime = time.Minute

var errResolverShutdown = errors.New("resolver was shutdown")

// ResolveResult is a result of a single lookup. Result is null if
// nothing was found.
type ResolveResult struct {
	IP     string          `json:"ip"`
	Result *geolib.GeoData `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// resolver runs batches of lookups on a bounded worker pool.
type resolver struct {
	db         *geolib.Database
	stats      *usageStats
	rwmutex    sync.RWMutex
	closeOnce  sync.Once
	workerPool *ants.PoolWithFunc
	closed     bool
}

func (r *resolver) Resolve(ip string) (ResolveResult, error) {
	rv := ResolveResult{
		IP: ip,
	}

	data, err := r.db.Lookup(ip)

	r.stats.Used(data, err)

	if err != nil {
		return rv, err
	}

	rv.Result = data

	return rv, nil
}

// ResolveAll resolves unique addresses concurrently. Results keep an
// order of the first occurrence of each address.
func (r *resolver) ResolveAll(ctx context.Context, ips []string) ([]ResolveResult, error) {
	r.rwmutex.RLock()
	defer r.rwmutex.RUnlock()

	if r.closed {
		return nil, errResolverShutdown
	}

	batch := newLookupBatch(ctx, uniqueIPs(ips), r.workerPool)
	if err := batch.Run(); err != nil {
		return nil, err
	}

	return batch.results, nil
}

func (r *resolver) Shutdown() {
	r.rwmutex.Lock()
	defer r.rwmutex.Unlock()

	r.closed = true

	r.closeOnce.Do(func() {
		r.workerPool.Release()
	})
}

func (r *resolver) resolveIP(args interface{}) {
	task := args.(*lookupTask)
	defer task.batch.wg.Done()

	ip := task.batch.ips[task.index]
	rv := ResolveResult{
		IP: ip,
	}

	if err := task.batch.ctx.Err(); err != nil {
		rv.Error = err.Error()
	} else {
		data, err := r.db.Lookup(ip)

		r.stats.Used(data, err)

		if err != nil {
			rv.Error = err.Error()
		} else {
			rv.Result = data
		}
	}

	task.batch.results[task.index] = rv
}

func uniqueIPs(ips []string) []string {
	seen := make(map[string]bool, len(ips))
	rv := make([]string, 0, len(ips))

	for _, v := range ips {
		if !seen[v] {
			seen[v] = true
			rv = append(rv, v)
		}
	}

	return rv
}

func newResolver(db *geolib.Database, workerPoolSize int) (*resolver, error) {
	rv := &resolver{
		db:    db,
		stats: &usageStats{},
	}

	if workerPoolSize <= 0 {
		workerPoolSize = DefaultWorkerPoolSize
	}

	pool, err := ants.NewPoolWithFunc(workerPoolSize, rv.resolveIP,
		ants.WithExpiryDuration(workerPoolExpireTime))
	if err != nil {
		return nil, err
	}

	rv.workerPool = pool

	return rv, nil
}
