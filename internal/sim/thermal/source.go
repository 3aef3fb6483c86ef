package thermal

import "math"

// Occlusion picks how reachability from a source to a query cell is tested.
type Occlusion uint8

const (
	// OcclusionFloodFill vents through openings and around corners;
	// searches are cached per source. The default.
	OcclusionFloodFill Occlusion = iota
	// OcclusionLineOfSight is a straight ray test; cheap, blocked by any
	// occupied cell between the two.
	OcclusionLineOfSight
)

// Curve is the falloff law applied beyond full-strength range.
type Curve uint8

const (
	CurveCosine Curve = iota
)

const (
	// DefaultDropoff applies when a source does not pick its own.
	DefaultDropoff = 7
	// MaxDropoff bounds the attenuation zone.
	MaxDropoff = 15
)

// Source is an immutable thermal emitter or sink attached to a cell.
// Positive DeltaC warms, negative cools. Range is the full-strength radius
// in cells; beyond it the effect attenuates across Dropoff cells and then
// ends. A non-none Face restricts emission to that face's half-space.
type Source struct {
	DeltaC    float64
	Range     int
	Occlusion Occlusion
	Dropoff   int
	Curve     Curve
	Face      Face
}

// NewSource builds a source with the defaults: flood-fill occlusion,
// cosine dropoff of DefaultDropoff, omnidirectional.
func NewSource(deltaC float64, rng int) Source {
	return Source{DeltaC: deltaC, Range: rng, Dropoff: DefaultDropoff}.normalized()
}

// StaticSource has no dropoff zone: full effect within range, nothing past it.
func StaticSource(deltaC float64, rng int) Source {
	return Source{DeltaC: deltaC, Range: rng, Dropoff: 0}.normalized()
}

// normalized clamps a hand-built descriptor into the valid domain.
func (s Source) normalized() Source {
	if s.Range < 0 {
		s.Range = 0
	}
	if s.Dropoff < 0 {
		s.Dropoff = 0
	}
	if s.Dropoff > MaxDropoff {
		s.Dropoff = MaxDropoff
	}
	if s.Occlusion > OcclusionLineOfSight {
		s.Occlusion = OcclusionFloodFill
	}
	if s.Curve > CurveCosine {
		s.Curve = CurveCosine
	}
	if s.Face > FaceEast {
		s.Face = FaceNone
	}
	return s
}

// InfluenceRadius is the farthest distance at which the source has any
// effect, attenuated or not.
func (s Source) InfluenceRadius() int {
	return s.Range + s.Dropoff
}

// Weight maps a normalized overshoot t beyond full-strength range to an
// attenuation factor: 1 at t=0 falling to 0 at t=1 along a quarter cosine.
func Weight(t float64) float64 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Cos(t * (math.Pi / 2))
}
