package world

import (
	"sync"

	"thermocraft.ai/internal/sim/mathx"
	"thermocraft.ai/internal/sim/thermal"
)

const (
	// ChunkSize is the square column footprint of one chunk.
	ChunkSize = 16
)

type Vec3i = thermal.Vec3i

// Chunk holds a ChunkSize×ChunkSize column footprint of blocks across the
// full world height, plus a heightmap for fast sky checks. The block array
// and heightmap are written by the world loop and read by concurrent query
// goroutines, so both go through mu.
type Chunk struct {
	CX, CZ int
	Height int

	mu sync.RWMutex

	// Blocks is indexed (y*ChunkSize+z)*ChunkSize+x with palette ids;
	// 0 is always AIR.
	Blocks []uint16

	// TopSolid[z*ChunkSize+x] is the highest y holding a solid block,
	// or -1 for an empty column.
	TopSolid []int

	// solidAt classifies palette ids for heightmap maintenance; open
	// doors occupy a cell without counting as solid cover.
	solidAt func(uint16) bool
}

func (c *Chunk) idx(x, y, z int) int {
	return (y*ChunkSize+z)*ChunkSize + x
}

func (c *Chunk) Block(x, y, z int) uint16 {
	if y < 0 || y >= c.Height {
		return 0
	}
	c.mu.RLock()
	id := c.Blocks[c.idx(x, y, z)]
	c.mu.RUnlock()
	return id
}

// TopSolidAt returns the heightmap entry for one column.
func (c *Chunk) TopSolidAt(x, z int) int {
	c.mu.RLock()
	y := c.TopSolid[z*ChunkSize+x]
	c.mu.RUnlock()
	return y
}

// BlocksCopy snapshots the block array for encoding outside the lock.
func (c *Chunk) BlocksCopy() []uint16 {
	c.mu.RLock()
	out := make([]uint16, len(c.Blocks))
	copy(out, c.Blocks)
	c.mu.RUnlock()
	return out
}

func (c *Chunk) SetBlock(x, y, z int, id uint16, solid bool) {
	if y < 0 || y >= c.Height {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[c.idx(x, y, z)] = id
	col := z*ChunkSize + x
	switch {
	case solid && y > c.TopSolid[col]:
		c.TopSolid[col] = y
	case !solid && y == c.TopSolid[col]:
		c.TopSolid[col] = c.scanTopSolid(x, z, y)
	}
}

func (c *Chunk) scanTopSolid(x, z, from int) int {
	for y := from; y >= 0; y-- {
		id := c.Blocks[c.idx(x, y, z)]
		if id == 0 {
			continue
		}
		if c.solidAt == nil || c.solidAt(id) {
			return y
		}
	}
	return -1
}

// ChunkStore owns all chunks of one world, generating them on first
// access. Reads may come from concurrent query goroutines; the map is
// guarded here and each chunk guards its own block array.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[[2]int]*Chunk

	gen func(cx, cz int) *Chunk
}

func NewChunkStore(gen func(cx, cz int) *Chunk) *ChunkStore {
	return &ChunkStore{chunks: map[[2]int]*Chunk{}, gen: gen}
}

func (s *ChunkStore) Get(cx, cz int) *Chunk {
	s.mu.RLock()
	c, ok := s.chunks[[2]int{cx, cz}]
	s.mu.RUnlock()
	if ok {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chunks[[2]int{cx, cz}]; ok {
		return c
	}
	c = s.gen(cx, cz)
	s.chunks[[2]int{cx, cz}] = c
	return c
}

// Loaded returns a stable snapshot of the loaded chunk keys, for
// snapshotting.
func (s *ChunkStore) Loaded() [][2]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([][2]int, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	return keys
}

// Put installs a restored chunk, replacing any generated one.
func (s *ChunkStore) Put(c *Chunk) {
	s.mu.Lock()
	s.chunks[[2]int{c.CX, c.CZ}] = c
	s.mu.Unlock()
}

func chunkCoord(v int) (chunk, local int) {
	chunk = mathx.FloorDiv(v, ChunkSize)
	local = mathx.Mod(v, ChunkSize)
	return chunk, local
}
