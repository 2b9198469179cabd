// Package pool caches decompressed folder streams so that random-access
// reads of [fs.FS]-style entries (see the package-level Reader.Open path,
// as opposed to the sequential splitter) don't have to re-decompress a
// folder from its start every time a new file within it is opened.
package pool

import (
	"runtime"
	"sort"
	"sync"

	"github.com/go7z/sevenzip/internal/util"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Pooler is the interface implemented by a pool.
type Pooler interface {
	Get(int64) (util.SizeReadSeekCloser, bool)
	Put(int64, util.SizeReadSeekCloser) (bool, error)
}

// Constructor is the function prototype used to instantiate a pool.
type Constructor func() (Pooler, error)

type discardPool struct{}

// NewNoopPool returns a Pooler that doesn't actually pool anything: every
// Put closes its argument immediately, and Get never has anything to
// return. Useful when the caller doesn't expect repeated random access
// into the same folder and the cache would only cost memory.
func NewNoopPool() (Pooler, error) {
	return discardPool{}, nil
}

func (discardPool) Get(int64) (util.SizeReadSeekCloser, bool) {
	return nil, false
}

func (discardPool) Put(_ int64, rc util.SizeReadSeekCloser) (bool, error) {
	return false, rc.Close()
}

// offsetPool keys cached readers by their current position within the
// folder's decompressed stream (each folder has its own pool), evicting
// the least-recently-used one once the cache is full.
type offsetPool struct {
	mutex      sync.Mutex
	evictErrs  chan error
	bySeekFrom *lru.Cache[int64, util.SizeReadSeekCloser]
}

// NewPool returns a Pooler backed by an LRU keyed by stream offset, sized
// to one entry per available CPU: that's roughly the number of readers
// into the same folder a concurrent walk of the archive might plausibly
// have open at once.
func NewPool() (Pooler, error) {
	errs := make(chan error)

	cache, err := lru.NewWithEvict[int64, util.SizeReadSeekCloser](
		runtime.NumCPU(),
		func(_ int64, value util.SizeReadSeekCloser) {
			if err := value.Close(); err != nil {
				errs <- err
			}
		})
	if err != nil {
		return nil, err
	}

	return &offsetPool{evictErrs: errs, bySeekFrom: cache}, nil
}

// Get returns a cached reader whose offset exactly matches, or failing
// that the closest cached offset below it (a reader that hasn't yet
// reached the requested point can simply keep reading forward to it).
func (p *offsetPool) Get(offset int64) (util.SizeReadSeekCloser, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if reader, ok := p.bySeekFrom.Get(offset); ok {
		_ = p.bySeekFrom.RemoveWithoutEvict(offset)

		return reader, true
	}

	if closest, ok := p.closestBelow(offset); ok {
		reader, _ := p.bySeekFrom.Get(closest)
		_ = p.bySeekFrom.RemoveWithoutEvict(closest)

		return reader, true
	}

	return nil, false
}

func (p *offsetPool) closestBelow(offset int64) (int64, bool) {
	keys := p.bySeekFrom.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	for _, k := range keys {
		if k < offset {
			return k, true
		}
	}

	return 0, false
}

func (p *offsetPool) Put(offset int64, rc util.SizeReadSeekCloser) (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	_, existed := p.bySeekFrom.ContainsOrAdd(offset, rc)

	select {
	case err := <-p.evictErrs:
		return existed, err
	default:
		return existed, nil
	}
}
