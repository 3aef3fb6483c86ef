package multiworld

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/thermal"
	"thermocraft.ai/internal/sim/tuning"
	"thermocraft.ai/internal/sim/world"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	dir := t.TempDir()
	blocks := `[
  {"id":"AIR"},
  {"id":"STONE","solid":true},
  {"id":"DIRT","solid":true},
  {"id":"GRASS","solid":true},
  {"id":"SAND","solid":true},
  {"id":"SNOW","solid":true},
  {"id":"ICE","solid":true},
  {"id":"WATER"},
  {"id":"LAVA","solid":true,"thermal":{"delta_c":12,"range":3,"dropoff":5}}
]`
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(blocks), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cats, err := catalogs.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	return cats
}

func testManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	logger := log.New(os.Stderr, "[test] ", 0)
	cats := testCatalogs(t)
	eng := thermal.New(logger)
	world.SeedThermalRegistry(eng, cats)
	m, err := Build(cfg, 1337, tuning.Defaults(), cats, eng, logger)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func skyFalse() *bool { b := false; return &b }

func TestBuildAndRoute(t *testing.T) {
	m := testManager(t, Config{
		DefaultWorldID: "OVERWORLD",
		Worlds: []WorldSpec{
			{ID: "OVERWORLD", Height: 64},
			{ID: "CAVERN", Height: 48, Sky: skyFalse(), Biome: "CAVERN", SeedOffset: 1000},
		},
	})
	if got := m.IDs(); len(got) != 2 || got[0] != "CAVERN" || got[1] != "OVERWORLD" {
		t.Fatalf("IDs = %v", got)
	}
	if w, err := m.Resolve(""); err != nil || w.ID() != "OVERWORLD" {
		t.Fatalf("empty id should route to default: %v %v", w, err)
	}
	if _, err := m.Resolve("NETHER"); err == nil {
		t.Fatal("unknown world must error")
	}
	cav, _ := m.Resolve("CAVERN")
	if cav.HasSky() {
		t.Fatal("CAVERN should have no sky")
	}
	if cav.Config().Height != 48 {
		t.Fatalf("CAVERN height = %d", cav.Config().Height)
	}
}

func TestIndependentTicks(t *testing.T) {
	m := testManager(t, Config{
		DefaultWorldID: "A",
		Worlds:         []WorldSpec{{ID: "A", Height: 64}, {ID: "B", Height: 64}},
	})
	a, _ := m.Resolve("A")
	b, _ := m.Resolve("B")
	a.DebugStep(5)
	if a.Tick() != 5 || b.Tick() != 0 {
		t.Fatalf("tick counters not independent: a=%d b=%d", a.Tick(), b.Tick())
	}
}

// Worlds share one engine but never each other's cached results.
func TestPerWorldCacheIsolation(t *testing.T) {
	m := testManager(t, Config{
		DefaultWorldID: "A",
		Worlds:         []WorldSpec{{ID: "A", Height: 64, Biome: "PLAINS"}, {ID: "B", Height: 64, Biome: "PLAINS", SeedOffset: 7}},
	})
	a, _ := m.Resolve("A")
	b, _ := m.Resolve("B")

	if a.Engine() != b.Engine() {
		t.Fatal("worlds should share the engine")
	}

	y := a.DebugSurfaceY(0, 0)
	pos := thermal.Vec3i{X: 0, Y: y + 1, Z: 0}
	a.DebugSetBlock(pos, "LAVA")
	offA := a.OffsetC(thermal.Vec3i{X: 2, Y: y + 1, Z: 0})
	if offA <= 0 {
		t.Fatalf("A should be heated: %v", offA)
	}

	yb := b.DebugSurfaceY(0, 0)
	offB := b.OffsetC(thermal.Vec3i{X: 2, Y: yb + 1, Z: 0})
	if offB != 0 {
		t.Fatalf("B has no lava, offset = %v (cache bleed?)", offB)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"empty", Config{}, false},
		{"dup", Config{Worlds: []WorldSpec{{ID: "X"}, {ID: "X"}}}, false},
		{"bad default", Config{DefaultWorldID: "Y", Worlds: []WorldSpec{{ID: "X"}}}, false},
		{"default inferred", Config{Worlds: []WorldSpec{{ID: "X"}}}, true},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err == nil) != c.ok {
			t.Fatalf("%s: err=%v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultWorldID != "OVERWORLD" || len(cfg.Worlds) != 1 {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds.yaml")
	raw := `default_world_id: OVERWORLD
worlds:
  - id: OVERWORLD
    height: 64
  - id: CAVERN
    height: 48
    sky: false
    biome: CAVERN
    seed_offset: 9000
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Worlds) != 2 || cfg.Worlds[1].HasSky() {
		t.Fatalf("parsed: %+v", cfg)
	}
}
