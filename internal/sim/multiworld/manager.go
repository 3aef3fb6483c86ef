// Package multiworld builds and routes between the independent worlds of
// one server process. Worlds share the thermal engine and catalogs but own
// independent tick counters; the engine keeps its caches separated per
// world id.
package multiworld

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/thermal"
	"thermocraft.ai/internal/sim/tuning"
	"thermocraft.ai/internal/sim/world"
)

type Manager struct {
	defaultID string
	worlds    map[string]*world.World

	wg     sync.WaitGroup
	cancel context.CancelFunc
	log    *log.Logger
}

// Build constructs every configured world. baseSeed is offset per world so
// terrain differs while remaining reproducible from one flag.
func Build(cfg Config, baseSeed int64, tune tuning.Tuning, cats *catalogs.Catalogs, engine *thermal.Engine, logger *log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		defaultID: cfg.DefaultWorldID,
		worlds:    make(map[string]*world.World, len(cfg.Worlds)),
		log:       logger,
	}
	for _, spec := range cfg.Worlds {
		w := world.New(world.Config{
			ID:                 spec.ID,
			Seed:               baseSeed + spec.SeedOffset,
			TickRateHz:         tune.TickRateHz,
			DayTicks:           tune.DayTicks,
			SeasonLengthTicks:  tune.SeasonLengthTicks,
			Height:             spec.Height,
			Sky:                spec.HasSky(),
			Biome:              spec.Biome,
			ExposureBudget:     tune.ExposureBudget,
			VitalsPeriodTicks:  tune.VitalsPeriodTicks,
			SamplePeriodTicks:  tune.SamplePeriodTicks,
			SnapshotEveryTicks: tune.SnapshotEveryTicks,
		}, cats, engine, logger)
		m.worlds[spec.ID] = w
	}
	return m, nil
}

func (m *Manager) DefaultID() string { return m.defaultID }

func (m *Manager) Get(id string) (*world.World, bool) {
	if id == "" {
		id = m.defaultID
	}
	w, ok := m.worlds[id]
	return w, ok
}

func (m *Manager) IDs() []string {
	ids := make([]string, 0, len(m.worlds))
	for id := range m.worlds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each visits every world in id order.
func (m *Manager) Each(fn func(w *world.World)) {
	for _, id := range m.IDs() {
		fn(m.worlds[id])
	}
}

// Start launches every world's tick loop.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	for id, w := range m.worlds {
		m.wg.Add(1)
		go func(id string, w *world.World) {
			defer m.wg.Done()
			if err := w.Run(ctx); err != nil && ctx.Err() == nil && m.log != nil {
				m.log.Printf("world %s stopped: %v", id, err)
			}
		}(id, w)
	}
}

// Stop halts all loops and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	for _, w := range m.worlds {
		w.Stop()
	}
	m.wg.Wait()
}

// Resolve is the query-path router: empty id means the default world.
func (m *Manager) Resolve(id string) (*world.World, error) {
	w, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown world %q", id)
	}
	return w, nil
}
