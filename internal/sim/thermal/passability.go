package thermal

// IsPassable reports whether a search may move through the cell. Open space
// passes, as does anything without collision volume; occupied cells pass
// only as the open variant of a door, gate, or hatch. Unknown cells fail
// closed.
func IsPassable(w World, pos Vec3i) bool {
	c, ok := w.Cell(pos)
	if !ok {
		return false
	}
	if c.Empty {
		return true
	}
	if !c.Solid {
		return true
	}
	if c.Passage != PassageNone && c.Open {
		return true
	}
	return false
}

// fullySealed is true when all six neighbors are impassable: such a source
// cannot vent anywhere and is skipped for every query cell but its own.
func fullySealed(w World, pos Vec3i) bool {
	for _, d := range dirs6 {
		if IsPassable(w, pos.Add(d)) {
			return false
		}
	}
	return true
}
