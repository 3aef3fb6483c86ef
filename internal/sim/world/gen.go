package world

import (
	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/mathx"
)

// biomeRegion is the side length of one biome patch in cells.
const biomeRegion = 64

const seaLevel = 20

// generator builds deterministic chunks from (seed, cx, cz). The terrain
// is intentionally simple; what matters is that a fresh world carries a
// non-trivial thermal field: lava pockets at depth, campfires and ice on
// the surface by biome.
type generator struct {
	seed     int64
	height   int
	biome    string // fixed biome override, "" = by noise
	catalogs *catalogs.Catalogs

	air, stone, dirt, grass, water, sand uint16
	snow, ice, lava, campfire            uint16
	haveFeatures                         bool
}

func newGenerator(seed int64, height int, biome string, cats *catalogs.Catalogs) *generator {
	g := &generator{seed: seed, height: height, biome: biome, catalogs: cats}
	idx := cats.Blocks.Index
	g.air = idx["AIR"]
	g.stone = idx["STONE"]
	g.dirt = idx["DIRT"]
	g.grass = idx["GRASS"]
	g.water = idx["WATER"]
	g.sand = idx["SAND"]
	g.snow = idx["SNOW"]
	g.ice = idx["ICE"]
	g.lava, g.haveFeatures = lookup2(idx, "LAVA")
	g.campfire, _ = lookup2(idx, "CAMPFIRE")
	return g
}

func lookup2(idx map[string]uint16, id string) (uint16, bool) {
	v, ok := idx[id]
	return v, ok
}

// BiomeAt picks the column's biome from region-grained noise, cycling the
// configured biome table; a fixed override wins.
func (g *generator) BiomeAt(x, z int) string {
	if g.biome != "" {
		return g.biome
	}
	defs := g.catalogs.Biomes.Defs
	if len(defs) == 0 {
		return "PLAINS"
	}
	rx := mathx.FloorDiv(x, biomeRegion)
	rz := mathx.FloorDiv(z, biomeRegion)
	h := mathx.Hash2(g.seed^0x6210, rx, rz)
	return defs[int(h%uint64(len(defs)))].Biome
}

// surfaceHeight is smooth-ish value noise: a base level plus two octaves
// of hashed offsets blended over 8- and 32-cell lattices.
func (g *generator) surfaceHeight(x, z int) int {
	coarse := latticeNoise(g.seed^0x51ce, x, z, 32) // [0,1)
	fine := latticeNoise(g.seed^0xfe11, x, z, 8)
	h := float64(seaLevel-4) + coarse*16 + fine*4
	hi := int(h)
	if hi < 1 {
		hi = 1
	}
	if hi > g.height-2 {
		hi = g.height - 2
	}
	return hi
}

// latticeNoise bilinearly interpolates hashed corner values of a square
// lattice, giving cheap deterministic terrain without a noise dependency.
func latticeNoise(seed int64, x, z, cell int) float64 {
	cx := mathx.FloorDiv(x, cell)
	cz := mathx.FloorDiv(z, cell)
	fx := float64(mathx.Mod(x, cell)) / float64(cell)
	fz := float64(mathx.Mod(z, cell)) / float64(cell)

	v00 := hashUnit(seed, cx, cz)
	v10 := hashUnit(seed, cx+1, cz)
	v01 := hashUnit(seed, cx, cz+1)
	v11 := hashUnit(seed, cx+1, cz+1)

	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return top + (bot-top)*fz
}

func hashUnit(seed int64, x, z int) float64 {
	return float64(mathx.Hash2(seed, x, z)&0xFFFFFF) / float64(0x1000000)
}

func (g *generator) Generate(cx, cz int) *Chunk {
	c := &Chunk{
		CX:       cx,
		CZ:       cz,
		Height:   g.height,
		Blocks:   make([]uint16, ChunkSize*ChunkSize*g.height),
		TopSolid: make([]int, ChunkSize*ChunkSize),
		solidAt:  g.solidAt,
	}

	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			x := cx*ChunkSize + lx
			z := cz*ChunkSize + lz
			g.fillColumn(c, lx, lz, x, z)
		}
	}
	c.RebuildHeightmap()
	return c
}

func (g *generator) fillColumn(c *Chunk, lx, lz, x, z int) {
	surface := g.surfaceHeight(x, z)
	biome := g.BiomeAt(x, z)
	cold := biome == "TUNDRA" || biome == "TAIGA"
	hot := biome == "DESERT"

	for y := 0; y <= surface; y++ {
		var id uint16
		switch {
		case y >= surface-1 && hot:
			id = g.sand
		case y == surface && cold:
			id = g.snow
		case y == surface:
			id = g.grass
		case y >= surface-3:
			id = g.dirt
		default:
			id = g.stone
		}
		c.Blocks[c.idx(lx, y, lz)] = id
	}

	// Water (or ice in cold biomes) fills low terrain to sea level.
	if surface < seaLevel {
		top := g.water
		if cold {
			top = g.ice
		}
		for y := surface + 1; y <= seaLevel; y++ {
			id := g.water
			if y == seaLevel {
				id = top
			}
			c.Blocks[c.idx(lx, y, lz)] = id
		}
	}

	if !g.haveFeatures {
		return
	}

	// Deep lava pockets, roughly one column in 96.
	if h := mathx.Hash3(g.seed^0x1a7a, x, 0, z); h%96 == 0 {
		depth := 2 + int(h>>8%6)
		if depth < surface-4 {
			c.Blocks[c.idx(lx, depth, lz)] = g.lava
		}
	}

	// Scattered surface campfires on open ground, one in ~512 columns.
	if g.campfire != 0 && surface >= seaLevel {
		if mathx.Hash3(g.seed^0xca3f, x, 1, z)%512 == 0 {
			c.Blocks[c.idx(lx, surface+1, lz)] = g.campfire
		}
	}
}

func (g *generator) solidAt(id uint16) bool {
	if int(id) >= len(g.catalogs.Blocks.Palette) {
		return false
	}
	def := g.catalogs.Blocks.Defs[g.catalogs.Blocks.Palette[id]]
	return def.Solid
}

// RebuildHeightmap recomputes TopSolid for every column; used after
// generation and after snapshot restore.
func (c *Chunk) RebuildHeightmap() {
	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			c.TopSolid[lz*ChunkSize+lx] = c.scanTopSolid(lx, lz, c.Height-1)
		}
	}
}
