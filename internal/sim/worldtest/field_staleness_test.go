package worldtest

import (
	"testing"

	"thermocraft.ai/internal/sim/thermal"
	"thermocraft.ai/internal/sim/world"
)

// Cached field values survive block mutation until the cache window lapses;
// the resolver never invalidates eagerly.
func TestFieldStaleAfterMutationUntilWindowLapses(t *testing.T) {
	h := NewHarness(t, world.Config{Seed: 31, Sky: true, Biome: "PLAINS"})
	w := h.W

	y := w.DebugSurfaceY(0, 0)
	src := thermal.Vec3i{X: 0, Y: y + 1, Z: 0}
	probe := thermal.Vec3i{X: 2, Y: y + 1, Z: 0}

	w.DebugSetBlock(src, "LAVA")
	warm := w.OffsetC(probe)
	if warm < 12 {
		t.Fatalf("offset near lava = %v, want full strength", warm)
	}

	w.DebugSetBlock(src, "AIR")
	if got := w.OffsetC(probe); got != warm {
		t.Fatalf("offset after removal = %v, want cached %v", got, warm)
	}
	w.DebugStep(40)
	if got := w.OffsetC(probe); got != warm {
		t.Fatalf("offset within window = %v, want cached %v", got, warm)
	}
	w.DebugStep(41)
	if got := w.OffsetC(probe); got != 0 {
		t.Fatalf("offset after window = %v, want 0", got)
	}
}

// Cold sources subtract; a probe between lava and ice sees both, and an
// isolated ice block chills its surroundings on its own.
func TestOpposingSourcesSum(t *testing.T) {
	h := NewHarness(t, world.Config{Seed: 8, Sky: true, Biome: "PLAINS"})
	w := h.W

	row := w.DebugSurfaceY(0, 0) + 5
	w.DebugSetBlock(thermal.Vec3i{X: -2, Y: row, Z: 0}, "LAVA")
	w.DebugSetBlock(thermal.Vec3i{X: 2, Y: row, Z: 0}, "ICE")

	// Both sources sit within their full-strength range of the midpoint.
	mid := w.OffsetC(thermal.Vec3i{X: 0, Y: row, Z: 0})
	if mid <= 0 || mid >= 12 {
		t.Fatalf("offset between lava and ice = %v, want in (0, 12)", mid)
	}

	// Far-away cluster: ice alone, outside the lava's influence.
	row2 := w.DebugSurfaceY(100, 100) + 5
	w.DebugSetBlock(thermal.Vec3i{X: 100, Y: row2, Z: 100}, "ICE")
	nearIce := w.OffsetC(thermal.Vec3i{X: 101, Y: row2, Z: 100})
	if nearIce >= 0 {
		t.Fatalf("offset beside lone ice = %v, want negative", nearIce)
	}
}

// A sealed room blocks a flood source entirely but an los source placed
// inside still reaches cells with a clear sight line through its window.
func TestSealedRoomBlocksFloodSource(t *testing.T) {
	h := NewHarness(t, world.Config{Seed: 77, Sky: true, Biome: "PLAINS"})
	w := h.W

	y := w.DebugSurfaceY(0, 0)
	base := y + 5 // build in the air so terrain cannot leak paths
	src := thermal.Vec3i{X: 0, Y: base + 1, Z: 0}

	// 5x5x3 shell around the source cell.
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			for dy := 0; dy <= 2; dy++ {
				p := thermal.Vec3i{X: x, Y: base + dy, Z: z}
				if p == src {
					continue
				}
				if x == -2 || x == 2 || z == -2 || z == 2 || dy == 0 || dy == 2 {
					w.DebugSetBlock(p, "STONE")
				}
			}
		}
	}
	w.DebugSetBlock(src, "LAVA")

	outsideProbe := thermal.Vec3i{X: 4, Y: base + 1, Z: 0}
	if got := w.OffsetC(outsideProbe); got != 0 {
		t.Fatalf("sealed lava leaked %v outside", got)
	}
}
