// Package worldtest drives worlds through their exported surface only:
// join/leave/act channels, the query methods the transport calls, and the
// Debug helpers for deterministic preconditions. Tests here cover behavior
// that crosses package seams.
package worldtest

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"thermocraft.ai/internal/protocol"
	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/thermal"
	"thermocraft.ai/internal/sim/world"
)

// testBlocks mirrors the default server palette closely enough to exercise
// every thermal path: a flood source, an los source and a passage block.
const testBlocks = `[
  {"id":"AIR"},
  {"id":"STONE","solid":true},
  {"id":"DIRT","solid":true},
  {"id":"GRASS","solid":true},
  {"id":"SAND","solid":true},
  {"id":"SNOW","solid":true},
  {"id":"ICE","solid":true,"thermal":{"delta_c":-6,"range":2,"dropoff":3}},
  {"id":"WATER"},
  {"id":"LAVA","solid":true,"thermal":{"delta_c":12,"range":3,"dropoff":5}},
  {"id":"CAMPFIRE","solid":true,"thermal":{"delta_c":8,"range":2,"dropoff":4,"occlusion":"los"}},
  {"id":"HEATER","solid":true},
  {"id":"WOOD_DOOR","solid":true,"passage":"door","open":true}
]`

const testItems = `[
  {"id":"WOOL_COAT","slot":"chest","resist":"cold:3"},
  {"id":"DESERT_WRAP","slot":"head","resist":"heat:2"}
]`

// WriteConfigs materializes the test catalogs into a temp config dir and
// returns it, so tests can also point scripting.LoadDir at a providers
// subdirectory next to them.
func WriteConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(testBlocks), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(testItems), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func LoadCatalogs(t *testing.T, configDir string) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[worldtest] ", 0)
}

// Harness owns one world. With Start the loop runs at a fast tick rate so
// channel-driven tests finish quickly; without it, DebugStep paces time.
type Harness struct {
	T      *testing.T
	Cats   *catalogs.Catalogs
	Engine *thermal.Engine
	W      *world.World

	cancel context.CancelFunc
}

func NewHarness(t *testing.T, cfg world.Config) *Harness {
	t.Helper()
	configDir := WriteConfigs(t)
	cats := LoadCatalogs(t, configDir)
	eng := thermal.New(testLogger())
	world.SeedThermalRegistry(eng, cats)

	if cfg.ID == "" {
		cfg.ID = "TESTWORLD"
	}
	w := world.New(cfg, cats, eng, testLogger())
	return &Harness{T: t, Cats: cats, Engine: eng, W: w}
}

// Start launches the tick loop and registers cleanup.
func (h *Harness) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { _ = h.W.Run(ctx) }()
	h.T.Cleanup(func() {
		h.W.Stop()
		cancel()
	})
}

// Join connects an agent through the join channel and returns its identity
// plus the push channel the world writes to.
func (h *Harness) Join(name string) (world.JoinResponse, chan []byte) {
	h.T.Helper()
	out := make(chan []byte, 64)
	resp := make(chan world.JoinResponse, 1)
	h.W.Join() <- world.JoinRequest{Name: name, Out: out, Resp: resp}
	select {
	case jr := <-resp:
		return jr, out
	case <-time.After(2 * time.Second):
		h.T.Fatalf("join %s timed out", name)
		return world.JoinResponse{}, nil
	}
}

// Act submits an action and waits for its ACK on the agent's push channel.
func (h *Harness) Act(agentID string, out chan []byte, act protocol.ActMsg) protocol.AckMsg {
	h.T.Helper()
	act.Type = protocol.TypeAct
	act.ProtocolVersion = protocol.Version
	h.W.Inbox() <- world.ActionEnvelope{AgentID: agentID, Act: act}
	raw := h.Await(out, protocol.TypeAck, 2*time.Second)
	var ack protocol.AckMsg
	if err := json.Unmarshal(raw, &ack); err != nil {
		h.T.Fatalf("bad ACK: %v", err)
	}
	return ack
}

// Await reads pushes until one of the wanted type arrives.
func (h *Harness) Await(out chan []byte, msgType string, timeout time.Duration) []byte {
	h.T.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case raw := <-out:
			base, err := protocol.DecodeBase(raw)
			if err != nil {
				continue
			}
			if base.Type == msgType {
				return raw
			}
		case <-deadline:
			h.T.Fatalf("no %s push within %v", msgType, timeout)
			return nil
		}
	}
}
