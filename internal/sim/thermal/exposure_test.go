package thermal

import (
	"math"
	"testing"
)

func TestStepsToOutsideOpenColumn(t *testing.T) {
	e := testEngine()
	w := newStubWorld("w0")
	p := Vec3i{0, 5, 0}
	steps, ok := e.StepsToOutside(w, p, 32)
	if !ok || steps != 0 {
		t.Fatalf("open-air cell = %d, %v; want 0, true", steps, ok)
	}
	if got := e.OutdoorExposure(w, p, 32); got != 1 {
		t.Fatalf("exposure = %v, want 1", got)
	}
	if !e.IsOutside(w, p) {
		t.Fatalf("open-air cell should be outside")
	}
}

func TestStepsToOutsideSingleCeiling(t *testing.T) {
	e := testEngine()
	w := newStubWorld("w0")
	p := Vec3i{0, 5, 0}
	w.solid(Vec3i{0, 6, 0}, 1)

	steps, ok := e.StepsToOutside(w, p, 32)
	if !ok || steps != 1 {
		t.Fatalf("one ceiling block, open neighbor: %d, %v; want 1, true", steps, ok)
	}
	want := 1 - 1.0/32
	if got := e.OutdoorExposure(w, p, 32); math.Abs(got-want) > 1e-12 {
		t.Fatalf("exposure = %v, want %v", got, want)
	}
}

func TestStepsToOutsideSealed(t *testing.T) {
	e := testEngine()
	w := newStubWorld("w0")
	p := Vec3i{0, 5, 0}
	w.sealBox(p)
	if steps, ok := e.StepsToOutside(w, p, 32); ok {
		t.Fatalf("sealed cell should have no outside path, got %d", steps)
	}
	if got := e.OutdoorExposure(w, p, 32); got != 0 {
		t.Fatalf("sealed exposure = %v, want 0", got)
	}
	if e.IsOutside(w, p) {
		t.Fatalf("sealed cell is not outside")
	}
}

func TestStepsToOutsideNoSkyWorld(t *testing.T) {
	e := testEngine()
	w := newStubWorld("cavern")
	w.sky = false
	if _, ok := e.StepsToOutside(w, Vec3i{0, 5, 0}, 32); ok {
		t.Fatalf("skyless world never has an outside")
	}
	if e.IsOutside(w, Vec3i{0, 5, 0}) {
		t.Fatalf("skyless world never classifies outside")
	}
}

func TestStepsToOutsideBudgetExhaustion(t *testing.T) {
	e := testEngine()
	w := newStubWorld("w0")
	p := Vec3i{0, 5, 0}
	// A 5x5 plate overhead covers every cell within one step of p.
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			w.solid(Vec3i{x, 8, z}, 1)
		}
	}
	if steps, ok := e.StepsToOutside(w, p, 1); ok {
		t.Fatalf("budget 1 under the plate should fail, got %d", steps)
	}
	// A larger budget walks out from under the plate.
	steps, ok := e.StepsToOutside(w, p, 8)
	if !ok || steps != 3 {
		t.Fatalf("escape distance = %d, %v; want 3, true", steps, ok)
	}
}

func TestStepsToOutsideNegativeBudgetClamps(t *testing.T) {
	e := testEngine()
	w := newStubWorld("w0")
	p := Vec3i{0, 5, 0}
	steps, ok := e.StepsToOutside(w, p, -4)
	if !ok || steps != 0 {
		t.Fatalf("negative budget on an open cell = %d, %v; want 0, true", steps, ok)
	}
}

func TestStepsToOutsideCachedPerTTL(t *testing.T) {
	e := testEngine()
	w := newStubWorld("w0")
	p := Vec3i{0, 5, 0}

	steps, ok := e.StepsToOutside(w, p, 0)
	if !ok || steps != 0 {
		t.Fatalf("open cell = %d, %v; want 0, true", steps, ok)
	}

	// Roof the area: the cached classification survives the TTL window.
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			w.solid(Vec3i{x, 8, z}, 1)
		}
	}
	if steps, ok = e.StepsToOutside(w, p, 0); !ok || steps != 0 {
		t.Fatalf("within TTL: %d, %v; want cached 0, true", steps, ok)
	}
	w.advance(cacheTTLTicks + 1)
	if _, ok = e.StepsToOutside(w, p, 0); ok {
		t.Fatalf("after TTL the roof must be seen")
	}
}
