package thermal

import (
	"math"
	"testing"
)

func TestSourceNormalization(t *testing.T) {
	s := Source{DeltaC: 2, Range: -3, Dropoff: 99}.normalized()
	if s.Range != 0 {
		t.Fatalf("negative range should clamp to 0, got %d", s.Range)
	}
	if s.Dropoff != MaxDropoff {
		t.Fatalf("dropoff should clamp to %d, got %d", MaxDropoff, s.Dropoff)
	}
	if s.Occlusion != OcclusionFloodFill || s.Curve != CurveCosine {
		t.Fatalf("zero-value modes should stay defaults: %#v", s)
	}

	d := NewSource(1.5, 4)
	if d.Dropoff != DefaultDropoff {
		t.Fatalf("NewSource dropoff = %d, want %d", d.Dropoff, DefaultDropoff)
	}
	if d.InfluenceRadius() != 4+DefaultDropoff {
		t.Fatalf("influence radius = %d", d.InfluenceRadius())
	}

	st := StaticSource(-2, 3)
	if st.Dropoff != 0 || st.InfluenceRadius() != 3 {
		t.Fatalf("static source misbuilt: %#v", st)
	}
}

func TestWeightShape(t *testing.T) {
	if Weight(0) != 1 {
		t.Fatalf("Weight(0) = %v, want 1", Weight(0))
	}
	if got := Weight(1); math.Abs(got) > 1e-15 {
		t.Fatalf("Weight(1) = %v, want 0", got)
	}
	prev := 1.1
	for i := 0; i <= 100; i++ {
		tt := float64(i) / 100
		wgt := Weight(tt)
		if wgt > prev {
			t.Fatalf("Weight not monotone at t=%v: %v > %v", tt, wgt, prev)
		}
		if wgt < 0 || wgt > 1 {
			t.Fatalf("Weight(%v) = %v outside [0,1]", tt, wgt)
		}
		prev = wgt
	}
	// Out-of-domain inputs clamp.
	if Weight(-5) != 1 {
		t.Fatalf("Weight(-5) should clamp to 1")
	}
	if got := Weight(9); math.Abs(got) > 1e-15 {
		t.Fatalf("Weight(9) should clamp to 0, got %v", got)
	}
}

func TestFaceOffsetsAndParse(t *testing.T) {
	faces := []Face{FaceDown, FaceUp, FaceNorth, FaceSouth, FaceWest, FaceEast}
	seen := map[Vec3i]bool{}
	for _, f := range faces {
		o := f.Offset()
		if o == (Vec3i{}) {
			t.Fatalf("face %v has zero offset", f)
		}
		if mag := mabs(o.X) + mabs(o.Y) + mabs(o.Z); mag != 1 {
			t.Fatalf("face %v offset %v is not a unit step", f, o)
		}
		if seen[o] {
			t.Fatalf("duplicate face offset %v", o)
		}
		seen[o] = true
		back, ok := ParseFace(f.String())
		if !ok || back != f {
			t.Fatalf("ParseFace(%q) = %v, %v", f.String(), back, ok)
		}
	}
	if f, ok := ParseFace(""); !ok || f != FaceNone {
		t.Fatalf("empty face should parse as none")
	}
	if _, ok := ParseFace("sideways"); ok {
		t.Fatalf("bogus face should not parse")
	}
	if FaceNone.Offset() != (Vec3i{}) {
		t.Fatalf("FaceNone offset should be zero")
	}
}

func TestPackedDistinctness(t *testing.T) {
	seen := map[uint64]Vec3i{}
	for x := -5; x <= 5; x++ {
		for y := -2; y <= 20; y++ {
			for z := -5; z <= 5; z++ {
				v := Vec3i{x, y, z}
				k := v.Packed()
				if prev, dup := seen[k]; dup {
					t.Fatalf("Packed collision: %v and %v -> %d", prev, v, k)
				}
				seen[k] = v
			}
		}
	}
	if (Vec3i{1, 2, 3}).Packed() != (Vec3i{1, 2, 3}).Packed() {
		t.Fatalf("Packed not deterministic")
	}
}

func mabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
