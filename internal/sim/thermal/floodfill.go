package thermal

// floodDistances is one completed search: the minimum step count from the
// source to every cell reached within budget. Read-only once cached.
type floodDistances map[uint64]int

type ffNode struct {
	pos  Vec3i
	dist int
}

// floodSteps is the passable-path distance from source to target, bounded
// by budget. The whole distance map for (source, budget) is computed once
// and reused for every target until the TTL lapses; intervening cell edits
// are deliberately not observed before then.
func (e *Engine) floodSteps(w World, source, target Vec3i, budget int) (int, bool) {
	if source == target {
		return 0, true
	}
	if source.Manhattan(target) > budget {
		return -1, false
	}
	wid := w.ID()
	key := source.Packed() ^ uint64(budget)<<32
	dist, ok := e.flood.get(wid, w.Tick(), key)
	if !ok {
		dist = floodFrom(w, source, budget)
		e.flood.put(wid, w.Tick(), key, dist)
	}
	d, ok := dist[target.Packed()]
	if !ok {
		return -1, false
	}
	return d, true
}

// floodStepsViaFace is floodSteps for a directional source: the search may
// leave the source only through the given face, so a blocked face neighbor
// makes everything but the source itself unreachable.
func (e *Engine) floodStepsViaFace(w World, source, target Vec3i, budget int, face Face) (int, bool) {
	if source == target {
		return 0, true
	}
	if source.Manhattan(target) > budget {
		return -1, false
	}
	wid := w.ID()
	key := source.Packed() ^ uint64(budget)<<32 ^ uint64(face)<<48
	dist, ok := e.flood.get(wid, w.Tick(), key)
	if !ok {
		dist = floodFromFace(w, source, budget, face)
		e.flood.put(wid, w.Tick(), key, dist)
	}
	d, ok := dist[target.Packed()]
	if !ok {
		return -1, false
	}
	return d, true
}

func floodFrom(w World, source Vec3i, budget int) floodDistances {
	dist := floodDistances{source.Packed(): 0}
	q := []ffNode{{source, 0}}
	for head := 0; head < len(q); head++ {
		n := q[head]
		if n.dist >= budget {
			continue
		}
		for _, d := range dirs6 {
			np := n.pos.Add(d)
			pk := np.Packed()
			if _, seen := dist[pk]; seen {
				continue
			}
			if !IsPassable(w, np) {
				continue
			}
			dist[pk] = n.dist + 1
			q = append(q, ffNode{np, n.dist + 1})
		}
	}
	return dist
}

func floodFromFace(w World, source Vec3i, budget int, face Face) floodDistances {
	dist := floodDistances{source.Packed(): 0}
	var q []ffNode
	first := source.Add(face.Offset())
	if IsPassable(w, first) {
		dist[first.Packed()] = 1
		q = append(q, ffNode{first, 1})
	}
	for head := 0; head < len(q); head++ {
		n := q[head]
		if n.dist >= budget {
			continue
		}
		for _, d := range dirs6 {
			np := n.pos.Add(d)
			pk := np.Packed()
			if _, seen := dist[pk]; seen {
				continue
			}
			if !IsPassable(w, np) {
				continue
			}
			dist[pk] = n.dist + 1
			q = append(q, ffNode{np, n.dist + 1})
		}
	}
	return dist
}
