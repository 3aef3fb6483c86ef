package world

import (
	"fmt"

	"thermocraft.ai/internal/sim/body"
)

// Debug accessors for tests and tools. None of these are wired to the
// client protocol; they bypass the loop, so call them only when the loop
// is not running or from the loop goroutine.

// DebugStep advances the simulation n ticks without wall-clock pacing.
func (w *World) DebugStep(n int) {
	for i := 0; i < n; i++ {
		w.step()
	}
}

// DebugSetBlock places a block by palette name; unknown names are ignored.
func (w *World) DebugSetBlock(pos Vec3i, name string) {
	id, ok := w.catalogs.Blocks.Index[name]
	if !ok {
		return
	}
	w.setBlock(pos, id)
}

// DebugBlockAt reads back the palette name at a cell.
func (w *World) DebugBlockAt(pos Vec3i) string {
	id, ok := w.blockIDAt(pos)
	if !ok {
		return ""
	}
	return w.blockName(id)
}

// DebugJoin installs an agent directly, bypassing the channels.
func (w *World) DebugJoin(name string, pos Vec3i) *Agent {
	idNum := w.nextAgentNum.Add(1)
	a := &Agent{
		ID:   fmt.Sprintf("A%d", idNum),
		Name: name,
		Pos:  pos,
		Body: body.NewState(),
	}
	w.agentMu.Lock()
	w.agents[a.ID] = a
	w.agentMu.Unlock()
	return a
}

// DebugSurfaceY is the generated terrain height of a column.
func (w *World) DebugSurfaceY(x, z int) int {
	return w.gen.surfaceHeight(x, z)
}

// DebugBiomeAt is the generated biome of a column.
func (w *World) DebugBiomeAt(x, z int) string {
	return w.gen.BiomeAt(x, z)
}
