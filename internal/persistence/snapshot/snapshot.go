// Package snapshot saves and restores world state: block palette runs per
// chunk, agent body state, tick, and weather. Thermal-resolver caches and
// registry state are never part of a snapshot; they rebuild on demand.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int
	WorldID string
	Tick    uint64
}

type SnapshotV1 struct {
	Header Header

	Seed     int64
	Height   int
	Sky      bool
	Biome    string
	DayTicks int

	Weather      uint32
	WeatherUntil uint64

	Chunks []ChunkV1
	Agents []AgentV1

	NextAgent uint64
}

// ChunkV1 stores blocks run-length encoded: pairs of (count, palette id)
// in column-major y order, matching the live chunk layout.
type ChunkV1 struct {
	CX, CZ int
	Height int
	Runs   []uint32 // count, id, count, id, ...
}

type AgentV1 struct {
	ID        string
	Name      string
	Pos       [3]int
	BodyC     float64
	SoakedS   float64
	Equipment []string
}

// EncodeRuns packs a block array into (count, id) pairs.
func EncodeRuns(blocks []uint16) []uint32 {
	var runs []uint32
	i := 0
	for i < len(blocks) {
		id := blocks[i]
		j := i
		for j < len(blocks) && blocks[j] == id {
			j++
		}
		runs = append(runs, uint32(j-i), uint32(id))
		i = j
	}
	return runs
}

// DecodeRuns expands (count, id) pairs back into a block array of the
// expected length; a mismatch means a corrupt snapshot.
func DecodeRuns(runs []uint32, want int) ([]uint16, error) {
	if len(runs)%2 != 0 {
		return nil, fmt.Errorf("odd run list")
	}
	out := make([]uint16, 0, want)
	for i := 0; i < len(runs); i += 2 {
		n := int(runs[i])
		id := uint16(runs[i+1])
		for k := 0; k < n; k++ {
			out = append(out, id)
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("run length %d, want %d", len(out), want)
	}
	return out, nil
}

// Write stores the snapshot as gob inside a zstd stream, writing to a
// temp file and renaming so readers never observe a torn file.
func Write(path string, snap *SnapshotV1) error {
	snap.Header.Version = Version
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		_ = enc.Close()
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Read(path string) (*SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var snap SnapshotV1
	if err := gob.NewDecoder(bufio.NewReader(dec)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Header.Version != Version {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Header.Version, Version)
	}
	return &snap, nil
}
