package thermal

import (
	"log"
	"sync"
	"sync/atomic"
)

// Engine owns the source registry, the dynamic provider list, the adaptive
// scan radius, and the per-world result caches. One Engine serves every
// world of a process; all entry points are safe for concurrent use.
type Engine struct {
	log *log.Logger

	mu        sync.RWMutex
	constants map[uint16]Source
	providers []Provider

	// Largest influence radius seen so far. Grows, never shrinks, even if
	// the source that implied it is gone; the scan cube only widens.
	maxRadius atomic.Int64

	field   cacheTable[float64]
	flood   cacheTable[floodDistances]
	los     cacheTable[bool]
	outside cacheTable[int]
}

func New(logger *log.Logger) *Engine {
	return &Engine{
		log:       logger,
		constants: map[uint16]Source{},
	}
}

// MaxInfluenceRadius is the current scan radius for field queries.
func (e *Engine) MaxInfluenceRadius() int {
	return int(e.maxRadius.Load())
}

func (e *Engine) growRadius(r int) {
	if r <= 0 {
		return
	}
	for {
		cur := e.maxRadius.Load()
		if int64(r) <= cur {
			return
		}
		if e.maxRadius.CompareAndSwap(cur, int64(r)) {
			return
		}
	}
}

func (e *Engine) hasProviders() bool {
	e.mu.RLock()
	n := len(e.providers)
	e.mu.RUnlock()
	return n > 0
}
