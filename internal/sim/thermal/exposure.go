package thermal

import "math"

// DefaultOutsideBudget is the search bound IsOutside uses.
const DefaultOutsideBudget = 32

// StepsToOutside returns the minimum number of passable steps from pos to
// any cell with an open vertical column to the sky. ok=false when the
// world has no sky, the cell is fully sealed, or the budget runs out.
// Negative budgets clamp to 0, which still classifies the cell and its
// immediate passable neighbors.
func (e *Engine) StepsToOutside(w World, pos Vec3i, budget int) (int, bool) {
	if w == nil {
		return -1, false
	}
	if !w.HasSky() {
		return -1, false
	}
	if budget < 0 {
		budget = 0
	}
	wid := w.ID()
	key := pos.Packed() ^ uint64(budget)<<32
	if v, ok := e.outside.get(wid, w.Tick(), key); ok {
		if v < 0 {
			return -1, false
		}
		return v, true
	}
	steps := stepsToOutside(w, pos, budget)
	e.outside.put(wid, w.Tick(), key, steps)
	if steps < 0 {
		return -1, false
	}
	return steps, true
}

// OutdoorExposure maps StepsToOutside onto [0,1]: 1 directly outdoors,
// 0 when no outdoor path exists within budget, linear in between.
func (e *Engine) OutdoorExposure(w World, pos Vec3i, budget int) float64 {
	if w == nil || !w.HasSky() {
		return 0
	}
	steps, ok := e.StepsToOutside(w, pos, budget)
	if !ok {
		return 0
	}
	if steps == 0 {
		return 1
	}
	b := budget
	if b < 1 {
		b = 1
	}
	t := 1 - math.Min(1, float64(steps)/float64(b))
	return math.Max(0, math.Min(1, t))
}

// IsOutside classifies a cell with the default budget. Glass overhead
// counts as indoors; an open hatch does not.
func (e *Engine) IsOutside(w World, pos Vec3i) bool {
	if w == nil {
		return false
	}
	_, ok := e.StepsToOutside(w, pos, DefaultOutsideBudget)
	return ok
}

func stepsToOutside(w World, pos Vec3i, budget int) int {
	if fullySealed(w, pos) {
		return -1
	}
	visited := map[uint64]struct{}{}
	var q []ffNode
	if IsPassable(w, pos) {
		q = append(q, ffNode{pos, 0})
		visited[pos.Packed()] = struct{}{}
	}
	// An impassable source cell still searches outward from whichever of
	// its neighbors can carry a path.
	for _, d := range dirs6 {
		np := pos.Add(d)
		pk := np.Packed()
		if _, ok := visited[pk]; ok {
			continue
		}
		if !IsPassable(w, np) {
			continue
		}
		q = append(q, ffNode{np, 1})
		visited[pk] = struct{}{}
	}
	for head := 0; head < len(q); head++ {
		n := q[head]
		if hasOpenSkyColumn(w, n.pos) {
			return n.dist
		}
		if n.dist >= budget {
			continue
		}
		for _, d := range dirs6 {
			np := n.pos.Add(d)
			pk := np.Packed()
			if _, ok := visited[pk]; ok {
				continue
			}
			if !IsPassable(w, np) {
				continue
			}
			visited[pk] = struct{}{}
			q = append(q, ffNode{np, n.dist + 1})
		}
	}
	return -1
}

// hasOpenSkyColumn: quick sky-visibility pre-check, then confirm every
// cell from pos up to the build height is passable, so the column rules
// agree with flood-fill passability.
func hasOpenSkyColumn(w World, pos Vec3i) bool {
	if !w.SkyVisible(pos) {
		return false
	}
	for y := pos.Y; y < w.TopY(); y++ {
		if !IsPassable(w, Vec3i{X: pos.X, Y: y, Z: pos.Z}) {
			return false
		}
	}
	return true
}
