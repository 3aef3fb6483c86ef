package thermal

import "thermocraft.ai/internal/sim/mathx"

// Vec3i is one discrete cell coordinate of the 3D grid.
type Vec3i struct {
	X, Y, Z int
}

func (v Vec3i) Add(o Vec3i) Vec3i {
	return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3i) Manhattan(o Vec3i) int {
	return mathx.AbsInt(v.X-o.X) + mathx.AbsInt(v.Y-o.Y) + mathx.AbsInt(v.Z-o.Z)
}

func (v Vec3i) ToArray() [3]int {
	return [3]int{v.X, v.Y, v.Z}
}

// Packed folds the coordinate into a single deterministic 64-bit key:
// X in the top 26 bits, Z in the middle 26, Y in the low 12. Composite
// cache keys XOR budget and face bits into the upper half on purpose.
func (v Vec3i) Packed() uint64 {
	return (uint64(int64(v.X))&0x3FFFFFF)<<38 | (uint64(int64(v.Z))&0x3FFFFFF)<<12 | uint64(int64(v.Y))&0xFFF
}

// Face selects one of the six axis directions for directional emission.
// The zero value FaceNone means omnidirectional.
type Face uint8

const (
	FaceNone Face = iota
	FaceDown
	FaceUp
	FaceNorth // -Z
	FaceSouth // +Z
	FaceWest  // -X
	FaceEast  // +X
)

// dirs6 is ordered so that Face n maps to dirs6[n-1].
var dirs6 = [6]Vec3i{
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
	{-1, 0, 0},
	{1, 0, 0},
}

func (f Face) Offset() Vec3i {
	if f == FaceNone || f > FaceEast {
		return Vec3i{}
	}
	return dirs6[f-1]
}

func (f Face) String() string {
	switch f {
	case FaceDown:
		return "down"
	case FaceUp:
		return "up"
	case FaceNorth:
		return "north"
	case FaceSouth:
		return "south"
	case FaceWest:
		return "west"
	case FaceEast:
		return "east"
	default:
		return "none"
	}
}

// ParseFace accepts the String() forms; "" and "none" mean omnidirectional.
func ParseFace(s string) (Face, bool) {
	switch s {
	case "", "none", "omni":
		return FaceNone, true
	case "down":
		return FaceDown, true
	case "up":
		return FaceUp, true
	case "north":
		return FaceNorth, true
	case "south":
		return FaceSouth, true
	case "west":
		return FaceWest, true
	case "east":
		return FaceEast, true
	default:
		return FaceNone, false
	}
}

// Passage classes a cell that may be walked through when its open flag is
// set. Everything outside this allow-list stays impassable while occupied.
type Passage uint8

const (
	PassageNone Passage = iota
	PassageDoor
	PassageGate
	PassageHatch
)

// Content is what the engine reads per cell.
type Content struct {
	Type    uint16 // palette/content id, the constant-registry key
	Empty   bool   // open space (air or void)
	Solid   bool   // occupies collision volume
	Passage Passage
	Open    bool // open-state flag, meaningful with a non-none Passage
}

// World is the host environment queries run against. Implementations must
// tolerate concurrent readers; all engine caches key off ID, so two worlds
// with the same ID would poison each other.
type World interface {
	ID() string

	// Tick is the world's monotonically increasing simulated time counter.
	Tick() uint64

	// Cell reads the content at pos. ok=false means unknown or unloaded;
	// such cells are treated as impassable and sourceless.
	Cell(pos Vec3i) (Content, bool)

	// HasSky reports whether this world has open sky at all. Cavern-type
	// worlds return false and never classify any cell as outside.
	HasSky() bool

	// TopY is the exclusive build-height bound for sky-column walks.
	TopY() int

	// SkyVisible is a fast optimistic pre-check that nothing sits above
	// pos. The exposure search still confirms by walking the column.
	SkyVisible(pos Vec3i) bool
}
