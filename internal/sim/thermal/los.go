package thermal

import (
	"math"
	"math/bits"
)

// lineOfSight reports whether target is visible from the query cell: along
// the center-to-center ray, the first cell that blocks passage must be the
// target itself. Results share the TTL discipline of the flood caches,
// keyed by a composite of both endpoints.
func (e *Engine) lineOfSight(w World, from, to Vec3i) bool {
	if from == to {
		return true
	}
	wid := w.ID()
	key := from.Packed() ^ bits.RotateLeft64(to.Packed(), 21)
	if v, ok := e.los.get(wid, w.Tick(), key); ok {
		return v
	}
	v := castRay(w, from, to)
	e.los.put(wid, w.Tick(), key, v)
	return v
}

// castRay walks the voxel traversal from the center of from toward the
// center of to, one boundary crossing at a time. The starting cell is not
// tested; reaching to before any blocking cell means visible. Running past
// the step guard fails closed.
func castRay(w World, from, to Vec3i) bool {
	x, y, z := from.X, from.Y, from.Z

	inf := math.Inf(1)
	stepX, tMaxX, tDeltaX := 0, inf, inf
	if d := float64(to.X - from.X); d != 0 {
		stepX = 1
		if d < 0 {
			stepX = -1
		}
		ad := math.Abs(d)
		tMaxX = 0.5 / ad
		tDeltaX = 1 / ad
	}
	stepY, tMaxY, tDeltaY := 0, inf, inf
	if d := float64(to.Y - from.Y); d != 0 {
		stepY = 1
		if d < 0 {
			stepY = -1
		}
		ad := math.Abs(d)
		tMaxY = 0.5 / ad
		tDeltaY = 1 / ad
	}
	stepZ, tMaxZ, tDeltaZ := 0, inf, inf
	if d := float64(to.Z - from.Z); d != 0 {
		stepZ = 1
		if d < 0 {
			stepZ = -1
		}
		ad := math.Abs(d)
		tMaxZ = 0.5 / ad
		tDeltaZ = 1 / ad
	}

	guard := from.Manhattan(to) + 2
	for i := 0; i < guard; i++ {
		if tMaxX < tMaxY {
			if tMaxX < tMaxZ {
				x += stepX
				tMaxX += tDeltaX
			} else {
				z += stepZ
				tMaxZ += tDeltaZ
			}
		} else {
			if tMaxY < tMaxZ {
				y += stepY
				tMaxY += tDeltaY
			} else {
				z += stepZ
				tMaxZ += tDeltaZ
			}
		}
		cur := Vec3i{X: x, Y: y, Z: z}
		if cur == to {
			return true
		}
		if !IsPassable(w, cur) {
			return false
		}
	}
	return false
}
