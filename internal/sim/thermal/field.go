package thermal

import "math"

// TemperatureOffset returns the net ambient offset in °C at pos due to all
// registered sources. The scan covers a cube of the current max influence
// radius; results are cached per (world, cell) for the TTL window and a
// cached value is reused verbatim even if cells changed since. Staleness
// is time-based only.
func (e *Engine) TemperatureOffset(w World, pos Vec3i) float64 {
	if w == nil {
		return 0
	}
	wid := w.ID()
	key := pos.Packed()
	if v, ok := e.field.get(wid, w.Tick(), key); ok {
		return v
	}

	maxR := e.MaxInfluenceRadius()
	if maxR == 0 && !e.hasProviders() {
		e.field.put(wid, w.Tick(), key, 0)
		return 0
	}

	sum := 0.0
	// The origin cell counts: sources like campfires sit directly underfoot.
	for dx := -maxR; dx <= maxR; dx++ {
		for dy := -maxR; dy <= maxR; dy++ {
			for dz := -maxR; dz <= maxR; dz++ {
				bp := Vec3i{X: pos.X + dx, Y: pos.Y + dy, Z: pos.Z + dz}
				c, ok := w.Cell(bp)
				if !ok || c.Empty {
					continue
				}
				src, ok := e.resolve(w, bp, c)
				if !ok || src.Range <= 0 || src.DeltaC == 0 {
					continue
				}

				budget := src.Range + src.Dropoff
				euclid := math.Sqrt(float64(dx*dx + dy*dy + dz*dz))
				if euclid > float64(budget)+0.5 {
					continue
				}

				// Directional cull: the query must sit strictly inside the
				// half-space the face points into. diff = pos - bp.
				if src.Face != FaceNone && bp != pos {
					f := src.Face.Offset()
					dot := float64(-dx*f.X - dy*f.Y - dz*f.Z)
					if dot <= 0 {
						continue
					}
				}

				// A sealed source reaches nothing beyond its own cell.
				if bp != pos && fullySealed(w, bp) {
					continue
				}

				var contrib float64
				if src.Occlusion == OcclusionFloodFill {
					var steps int
					var reach bool
					if src.Face != FaceNone {
						steps, reach = e.floodStepsViaFace(w, bp, pos, budget, src.Face)
					} else {
						steps, reach = e.floodSteps(w, bp, pos, budget)
					}
					if !reach {
						continue
					}
					if steps <= src.Range {
						contrib = src.DeltaC
					} else if src.Dropoff > 0 {
						over := steps - src.Range
						t := math.Min(1, float64(over)/float64(src.Dropoff))
						contrib = src.DeltaC * Weight(t)
					} else {
						continue
					}
				} else {
					if bp != pos && !e.lineOfSight(w, pos, bp) {
						continue
					}
					if euclid <= float64(src.Range)+0.5 {
						contrib = src.DeltaC
					} else if src.Dropoff > 0 {
						over := math.Max(0, euclid-float64(src.Range))
						t := math.Min(1, over/float64(src.Dropoff))
						contrib = src.DeltaC * Weight(t)
					} else {
						continue
					}
				}
				sum += contrib
			}
		}
	}

	e.field.put(wid, w.Tick(), key, sum)
	return sum
}
