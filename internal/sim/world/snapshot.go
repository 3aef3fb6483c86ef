package world

import (
	"fmt"

	"thermocraft.ai/internal/persistence/snapshot"
	"thermocraft.ai/internal/sim/body"
)

// Snapshot captures the current world state. Call with the loop stopped or
// from the loop goroutine.
func (w *World) Snapshot() *snapshot.SnapshotV1 {
	snap := &snapshot.SnapshotV1{
		Header:       snapshot.Header{WorldID: w.cfg.ID, Tick: w.tick.Load()},
		Seed:         w.cfg.Seed,
		Height:       w.cfg.Height,
		Sky:          w.cfg.Sky,
		Biome:        w.cfg.Biome,
		DayTicks:     w.cfg.DayTicks,
		Weather:      w.weather.Load(),
		WeatherUntil: w.weatherUntil,
		NextAgent:    w.nextAgentNum.Load(),
	}
	for _, key := range w.chunks.Loaded() {
		c := w.chunks.Get(key[0], key[1])
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
			CX:     c.CX,
			CZ:     c.CZ,
			Height: c.Height,
			Runs:   snapshot.EncodeRuns(c.BlocksCopy()),
		})
	}
	w.agentMu.RLock()
	for _, a := range w.agents {
		snap.Agents = append(snap.Agents, snapshot.AgentV1{
			ID:        a.ID,
			Name:      a.Name,
			Pos:       a.Pos.ToArray(),
			BodyC:     a.Body.BodyC,
			SoakedS:   a.Body.SoakedS,
			Equipment: a.Equipment,
		})
	}
	w.agentMu.RUnlock()
	return snap
}

// Restore loads a snapshot into a freshly constructed world. The snapshot
// must match the world's identity; generated chunks the snapshot does not
// cover stay procedural.
func (w *World) Restore(snap *snapshot.SnapshotV1) error {
	if snap.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world id %q, want %q", snap.Header.WorldID, w.cfg.ID)
	}
	if snap.Height != w.cfg.Height {
		return fmt.Errorf("snapshot height %d, want %d", snap.Height, w.cfg.Height)
	}
	w.tick.Store(snap.Header.Tick)
	w.weather.Store(snap.Weather)
	w.weatherUntil = snap.WeatherUntil
	w.nextAgentNum.Store(snap.NextAgent)

	for _, cv := range snap.Chunks {
		blocks, err := snapshot.DecodeRuns(cv.Runs, ChunkSize*ChunkSize*cv.Height)
		if err != nil {
			return fmt.Errorf("chunk (%d,%d): %w", cv.CX, cv.CZ, err)
		}
		c := &Chunk{
			CX:       cv.CX,
			CZ:       cv.CZ,
			Height:   cv.Height,
			Blocks:   blocks,
			TopSolid: make([]int, ChunkSize*ChunkSize),
			solidAt:  w.gen.solidAt,
		}
		c.RebuildHeightmap()
		w.chunks.Put(c)
	}

	w.agentMu.Lock()
	for _, av := range snap.Agents {
		w.agents[av.ID] = &Agent{
			ID:        av.ID,
			Name:      av.Name,
			Pos:       Vec3i{X: av.Pos[0], Y: av.Pos[1], Z: av.Pos[2]},
			Body:      body.State{BodyC: av.BodyC, SoakedS: av.SoakedS},
			Equipment: av.Equipment,
		}
	}
	w.agentMu.Unlock()
	return nil
}
