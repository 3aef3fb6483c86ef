// Package scripting loads Lua thermal-source providers. Each script under
// the providers directory defines a global
//
//	function source(world_id, x, y, z, content_type)
//
// returning nil for "no source here" or a table with delta_c, range and
// optionally dropoff, occlusion ("flood"/"los") and face. A script may set
// a global max_range number to widen the engine's scan radius up front.
package scripting

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"thermocraft.ai/internal/sim/thermal"
)

// ScriptProvider wraps one loaded script as a thermal.Provider. LStates are
// not safe for concurrent use, so calls are serialized per script.
type ScriptProvider struct {
	name string
	mu   sync.Mutex
	vm   *lua.LState

	maxRange int
}

func (p *ScriptProvider) Name() string  { return p.name }
func (p *ScriptProvider) MaxRange() int { return p.maxRange }

// LoadDir compiles every .lua file in dir, in name order so provider
// precedence is predictable. A missing directory loads nothing.
func LoadDir(dir string, logger *log.Logger) ([]*ScriptProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []*ScriptProvider
	for _, name := range names {
		p, err := loadScript(filepath.Join(dir, name))
		if err != nil {
			for _, q := range out {
				q.Close()
			}
			return nil, err
		}
		if logger != nil {
			logger.Printf("loaded provider script %s (max_range=%d)", name, p.maxRange)
		}
		out = append(out, p)
	}
	return out, nil
}

func loadScript(path string) (*ScriptProvider, error) {
	vm := lua.NewState()
	if err := vm.DoFile(path); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if vm.GetGlobal("source") == lua.LNil {
		vm.Close()
		return nil, fmt.Errorf("load %s: no source function", path)
	}
	p := &ScriptProvider{name: filepath.Base(path), vm: vm}
	if mr, ok := vm.GetGlobal("max_range").(lua.LNumber); ok {
		p.maxRange = int(mr)
	}
	return p, nil
}

func (p *ScriptProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm != nil {
		p.vm.Close()
		p.vm = nil
	}
}

// Provider adapts the script to the engine's provider contract. Lua errors
// surface as Go errors and are swallowed at the registry's isolation
// boundary, so one broken script cannot break field resolution.
func (p *ScriptProvider) Provider() thermal.Provider {
	return func(w thermal.World, pos thermal.Vec3i, c thermal.Content) (*thermal.Source, error) {
		return p.call(w.ID(), pos, c.Type)
	}
}

func (p *ScriptProvider) call(worldID string, pos thermal.Vec3i, contentType uint16) (*thermal.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm == nil {
		return nil, fmt.Errorf("script %s closed", p.name)
	}

	fn := p.vm.GetGlobal("source")
	err := p.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LString(worldID),
		lua.LNumber(pos.X), lua.LNumber(pos.Y), lua.LNumber(pos.Z),
		lua.LNumber(contentType))
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", p.name, err)
	}
	ret := p.vm.Get(-1)
	p.vm.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	src := thermal.Source{
		DeltaC:  float64(lua.LVAsNumber(tbl.RawGetString("delta_c"))),
		Range:   int(lua.LVAsNumber(tbl.RawGetString("range"))),
		Dropoff: int(lua.LVAsNumber(tbl.RawGetString("dropoff"))),
	}
	if occ := lua.LVAsString(tbl.RawGetString("occlusion")); occ == "los" {
		src.Occlusion = thermal.OcclusionLineOfSight
	}
	if face, ok := thermal.ParseFace(lua.LVAsString(tbl.RawGetString("face"))); ok {
		src.Face = face
	}
	return &src, nil
}
