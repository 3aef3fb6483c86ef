package thermal

import "sync"

// cacheTTLTicks is how long any cached result stays valid: 4 seconds at
// 20 ticks/second. Staleness is checked lazily on read; nothing sweeps the
// tables, so they grow with the set of distinct queried keys until restart.
const cacheTTLTicks = 80

type cacheEntry[V any] struct {
	tick  uint64
	value V
}

// cacheTable is a two-level concurrent map: world id, then packed key.
// Entries for one key are independent; racing writers just overwrite.
type cacheTable[V any] struct {
	worlds sync.Map // string -> *sync.Map (uint64 -> cacheEntry[V])
}

func (t *cacheTable[V]) table(worldID string) *sync.Map {
	if v, ok := t.worlds.Load(worldID); ok {
		return v.(*sync.Map)
	}
	v, _ := t.worlds.LoadOrStore(worldID, &sync.Map{})
	return v.(*sync.Map)
}

func (t *cacheTable[V]) get(worldID string, now uint64, key uint64) (V, bool) {
	var zero V
	m := t.table(worldID)
	v, ok := m.Load(key)
	if !ok {
		return zero, false
	}
	e := v.(cacheEntry[V])
	if now >= e.tick && now-e.tick <= cacheTTLTicks {
		return e.value, true
	}
	// Entries from a rewound tick counter count as stale too.
	m.Delete(key)
	return zero, false
}

func (t *cacheTable[V]) put(worldID string, now uint64, key uint64, v V) {
	t.table(worldID).Store(key, cacheEntry[V]{tick: now, value: v})
}
