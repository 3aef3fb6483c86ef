package world

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"thermocraft.ai/internal/persistence/snapshot"
	"thermocraft.ai/internal/protocol"
	"thermocraft.ai/internal/sim/body"
	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/climate"
	"thermocraft.ai/internal/sim/mathx"
	"thermocraft.ai/internal/sim/thermal"
)

type Config struct {
	ID                string
	Seed              int64
	TickRateHz        int
	DayTicks          int
	SeasonLengthTicks int
	Height            int
	Sky               bool
	Biome             string // fixed biome override, "" = noise

	ExposureBudget     int
	VitalsPeriodTicks  int
	SamplePeriodTicks  int
	SnapshotEveryTicks int // 0 disables periodic snapshots
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Diurnal protocol.DiurnalMsg
}

type ActionEnvelope struct {
	AgentID string
	Act     protocol.ActMsg
}

// FieldSample is one telemetry record of the thermal field at an agent.
type FieldSample struct {
	WorldID  string  `json:"world_id"`
	Tick     uint64  `json:"tick"`
	AgentID  string  `json:"agent_id"`
	Pos      [3]int  `json:"pos"`
	AmbientC float64 `json:"ambient_c"`
	OffsetC  float64 `json:"offset_c"`
	Exposure float64 `json:"exposure"`
}

// Sampler consumes field samples; implemented in internal/persistence.
type Sampler interface {
	Sample(s FieldSample)
}

// SessionRecorder observes agent joins and leaves; implemented in
// internal/persistence.
type SessionRecorder interface {
	RecordJoin(worldID, agentID, name string, tick uint64)
	RecordLeave(worldID, agentID string, tick uint64)
}

type clientState struct {
	Out     chan []byte
	Dropped uint64
}

// World is one simulated space: a chunked voxel grid, its agents, and a
// fixed-rate tick loop. Loop-owned state (agents, clients, weather
// schedule) is mutated only on the loop goroutine; block and agent reads
// needed by concurrent queries go through guarded accessors.
type World struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	engine   *thermal.Engine
	climate  *climate.Service
	gen      *generator
	chunks   *ChunkStore
	log      *log.Logger

	tick    atomic.Uint64
	weather atomic.Uint32 // climate.Weather, readable off-loop

	weatherUntil uint64 // loop only

	agentMu sync.RWMutex
	agents  map[string]*Agent

	clients map[string]*clientState // loop only

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}
	once  sync.Once

	nextAgentNum atomic.Uint64

	sampler         Sampler
	dayHook         func(day uint64, peakC, lowC float64)
	sessions        SessionRecorder
	snapCh          chan<- *snapshot.SnapshotV1
	resistProviders []body.ResistProvider
}

type Agent struct {
	ID        string
	Name      string
	Pos       Vec3i
	Body      body.State
	Equipment []string
}

func New(cfg Config, cats *catalogs.Catalogs, engine *thermal.Engine, logger *log.Logger) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.DayTicks <= 0 {
		cfg.DayTicks = 24000
	}
	if cfg.Height <= 0 {
		cfg.Height = 64
	}
	if cfg.ExposureBudget <= 0 {
		cfg.ExposureBudget = thermal.DefaultOutsideBudget
	}
	if cfg.VitalsPeriodTicks <= 0 {
		cfg.VitalsPeriodTicks = 20
	}
	if cfg.SamplePeriodTicks <= 0 {
		cfg.SamplePeriodTicks = 20
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		engine:   engine,
		log:      logger,
		agents:   map[string]*Agent{},
		clients:  map[string]*clientState{},
		inbox:    make(chan ActionEnvelope, 256),
		join:     make(chan JoinRequest, 16),
		leave:    make(chan string, 16),
		stop:     make(chan struct{}),
	}
	w.gen = newGenerator(cfg.Seed, cfg.Height, cfg.Biome, cats)
	w.chunks = NewChunkStore(w.gen.Generate)
	w.climate = climate.NewService(
		&cats.Biomes,
		w.gen.BiomeAt,
		climate.NewSeasons(cfg.SeasonLengthTicks),
		climate.NewDiurnal(cfg.Seed, cfg.ID, cfg.DayTicks),
		engine,
	)
	return w
}

func (w *World) SetSampler(s Sampler) { w.sampler = s }

// SetDayHook installs a callback invoked from the world loop at each day
// rollover. Set it before Run.
func (w *World) SetDayHook(fn func(day uint64, peakC, lowC float64)) { w.dayHook = fn }

// SetSnapshotSink installs the channel the loop pushes periodic snapshots
// to. Pushes are non-blocking; a full sink skips the snapshot. Set it
// before Run.
func (w *World) SetSnapshotSink(ch chan<- *snapshot.SnapshotV1) { w.snapCh = ch }

func (w *World) SetSessionRecorder(r SessionRecorder) { w.sessions = r }
func (w *World) AddResistProvider(p body.ResistProvider) {
	w.resistProviders = append(w.resistProviders, p)
}
func (w *World) Climate() *climate.Service { return w.climate }
func (w *World) Engine() *thermal.Engine   { return w.engine }
func (w *World) Config() Config            { return w.cfg }

func (w *World) Inbox() chan<- ActionEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest     { return w.join }
func (w *World) Leave() chan<- string         { return w.leave }

func (w *World) Weather() climate.Weather {
	return climate.Weather(w.weather.Load())
}

// thermal.World implementation.

func (w *World) ID() string   { return w.cfg.ID }
func (w *World) Tick() uint64 { return w.tick.Load() }
func (w *World) HasSky() bool { return w.cfg.Sky }
func (w *World) TopY() int    { return w.cfg.Height }

func (w *World) Cell(pos Vec3i) (thermal.Content, bool) {
	if pos.Y < 0 {
		return thermal.Content{}, false // bedrock void: unknown, fail closed
	}
	if pos.Y >= w.cfg.Height {
		return thermal.Content{Empty: true}, true
	}
	cx, lx := chunkCoord(pos.X)
	cz, lz := chunkCoord(pos.Z)
	id := w.chunks.Get(cx, cz).Block(lx, pos.Y, lz)
	return w.contentFor(id), true
}

func (w *World) SkyVisible(pos Vec3i) bool {
	if !w.cfg.Sky {
		return false
	}
	if pos.Y >= w.cfg.Height {
		return true
	}
	cx, lx := chunkCoord(pos.X)
	cz, lz := chunkCoord(pos.Z)
	return w.chunks.Get(cx, cz).TopSolidAt(lx, lz) <= pos.Y
}

func (w *World) contentFor(id uint16) thermal.Content {
	pal := w.catalogs.Blocks.Palette
	if int(id) >= len(pal) {
		return thermal.Content{} // corrupt id: occupied, unknown
	}
	if id == 0 {
		return thermal.Content{Empty: true}
	}
	def := w.catalogs.Blocks.Defs[pal[id]]
	c := thermal.Content{Type: id, Solid: def.Solid, Open: def.Open}
	switch def.Passage {
	case "door":
		c.Passage = thermal.PassageDoor
	case "gate":
		c.Passage = thermal.PassageGate
	case "hatch":
		c.Passage = thermal.PassageHatch
	}
	return c
}

// Query surface. Safe for concurrent use; all heavy lifting is cached in
// the thermal engine.

func (w *World) AmbientC(pos Vec3i) float64 {
	return w.climate.AmbientC(w, pos)
}

func (w *World) OffsetC(pos Vec3i) float64 {
	return w.engine.TemperatureOffset(w, pos)
}

func (w *World) Exposure(pos Vec3i, budget int) float64 {
	if budget <= 0 {
		budget = w.cfg.ExposureBudget
	}
	return w.engine.OutdoorExposure(w, pos, budget)
}

func (w *World) StepsToOutside(pos Vec3i, budget int) (int, bool) {
	if budget <= 0 {
		budget = w.cfg.ExposureBudget
	}
	return w.engine.StepsToOutside(w, pos, budget)
}

func (w *World) AgentBody(agentID string) (body.State, Vec3i, bool) {
	w.agentMu.RLock()
	defer w.agentMu.RUnlock()
	a, ok := w.agents[agentID]
	if !ok {
		return body.State{}, Vec3i{}, false
	}
	return a.Body, a.Pos, true
}

// Run drives the tick loop until ctx is done or Stop is called.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case env := <-w.inbox:
			w.handleAct(env)
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *World) Stop() { w.once.Do(func() { close(w.stop) }) }

func (w *World) step() {
	prevDay := w.climate.Diurnal().DayIndex(w.tick.Load())
	now := w.tick.Add(1)

	w.stepWeather(now)

	if day := w.climate.Diurnal().DayIndex(now); day != prevDay {
		w.broadcastDiurnal(day)
	}

	dt := 1.0 / float64(w.cfg.TickRateHz)
	w.agentMu.Lock()
	for _, a := range w.agents {
		w.stepAgent(a, now, dt)
	}
	w.agentMu.Unlock()

	if now%uint64(w.cfg.VitalsPeriodTicks) == 0 {
		w.pushVitals(now)
	}
	if w.sampler != nil && now%uint64(w.cfg.SamplePeriodTicks) == 0 {
		w.sampleField(now)
	}
	if w.snapCh != nil && w.cfg.SnapshotEveryTicks > 0 && now%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapCh <- w.Snapshot():
		default:
			w.log.Printf("world %s: snapshot sink full, skipped tick %d", w.cfg.ID, now)
		}
	}
}

// stepWeather flips precipitation on a seeded schedule; snow replaces rain
// during winter so soaked/humidity behavior tracks the season.
func (w *World) stepWeather(now uint64) {
	if now < w.weatherUntil {
		return
	}
	h := mathx.Hash2(w.cfg.Seed^0x7ea7, int(now), 0)
	next := climate.WeatherClear
	if !w.cfg.Sky {
		w.weather.Store(uint32(next))
		w.weatherUntil = now + 6000
		return
	}
	if h%3 == 0 { // wet about a third of the time
		season, _ := w.climate.Seasons().At(now)
		if season == climate.Winter {
			next = climate.WeatherSnow
		} else {
			next = climate.WeatherRain
		}
	}
	w.weather.Store(uint32(next))
	w.weatherUntil = now + 1200 + h>>8%4800
}

func (w *World) stepAgent(a *Agent, now uint64, dt float64) {
	wet := w.isWet(a.Pos)
	if wet {
		a.Body.Wet(body.SoakedRefreshS)
	} else {
		a.Body.Dry(dt)
	}

	ambient := w.climate.AmbientC(w, a.Pos)
	humidity := w.climate.HumidityAt(a.Pos.X, a.Pos.Z, w.Weather())
	resist := body.Resistances(a.ID, a.Equipment, w.resistProviders)
	rate := body.Rate(ambient, resist.ColdC, resist.HeatC, humidity, a.Body.Soaked())
	a.Body.BodyC = body.Advance(a.Body.BodyC, rate, dt)
}

// isWet: standing in water, or out under active precipitation.
func (w *World) isWet(pos Vec3i) bool {
	if id, ok := w.blockIDAt(pos); ok {
		if name := w.blockName(id); name == "WATER" {
			return true
		}
	}
	if w.Weather() != climate.WeatherClear && w.SkyVisible(pos) {
		return true
	}
	return false
}

func (w *World) blockIDAt(pos Vec3i) (uint16, bool) {
	if pos.Y < 0 || pos.Y >= w.cfg.Height {
		return 0, false
	}
	cx, lx := chunkCoord(pos.X)
	cz, lz := chunkCoord(pos.Z)
	return w.chunks.Get(cx, cz).Block(lx, pos.Y, lz), true
}

func (w *World) blockName(id uint16) string {
	pal := w.catalogs.Blocks.Palette
	if int(id) >= len(pal) {
		return ""
	}
	return pal[id]
}

func (w *World) handleJoin(req JoinRequest) {
	name := req.Name
	if name == "" {
		name = "agent"
	}
	idNum := w.nextAgentNum.Add(1)
	agentID := fmt.Sprintf("A%d", idNum)

	spawnX := int(idNum) * 2
	spawnZ := -spawnX
	y := w.gen.surfaceHeight(spawnX, spawnZ) + 1

	a := &Agent{
		ID:   agentID,
		Name: name,
		Pos:  Vec3i{X: spawnX, Y: y, Z: spawnZ},
		Body: body.NewState(),
	}
	w.agentMu.Lock()
	w.agents[agentID] = a
	w.agentMu.Unlock()
	if req.Out != nil {
		w.clients[agentID] = &clientState{Out: req.Out}
	}

	now := w.tick.Load()
	day := w.climate.Diurnal().DayIndex(now)
	peak, low := w.climate.Diurnal().Params(day)
	resp := JoinResponse{
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			AgentID:         agentID,
			WorldID:         w.cfg.ID,
			Tick:            now,
			Day:             day,
			Diurnal:         protocol.DiurnalParams{PeakC: peak, LowC: low},
			WorldParams: protocol.WorldParams{
				TickRateHz: w.cfg.TickRateHz,
				DayTicks:   w.cfg.DayTicks,
				Height:     w.cfg.Height,
				Sky:        w.cfg.Sky,
				Seed:       w.cfg.Seed,
			},
			Catalogs: protocol.CatalogDigests{
				BlockPalette: w.catalogs.Blocks.PaletteDigest,
				BlockDefs:    w.catalogs.Blocks.DefsDigest,
				Biomes:       w.catalogs.Biomes.Digest,
				Items:        w.catalogs.Items.DefsDigest,
			},
		},
		Diurnal: protocol.DiurnalMsg{
			Type:    protocol.TypeDiurnal,
			WorldID: w.cfg.ID,
			Day:     day,
			PeakC:   peak,
			LowC:    low,
		},
	}
	if req.Resp != nil {
		req.Resp <- resp
	}
	if w.sessions != nil {
		w.sessions.RecordJoin(w.cfg.ID, agentID, name, now)
	}
	if w.log != nil {
		w.log.Printf("join %s (%s) at %v", agentID, name, a.Pos.ToArray())
	}
}

func (w *World) handleLeave(agentID string) {
	w.agentMu.Lock()
	delete(w.agents, agentID)
	w.agentMu.Unlock()
	delete(w.clients, agentID)
	if w.sessions != nil {
		w.sessions.RecordLeave(w.cfg.ID, agentID, w.tick.Load())
	}
	if w.log != nil {
		w.log.Printf("leave %s", agentID)
	}
}

func (w *World) handleAct(env ActionEnvelope) {
	ack := protocol.AckMsg{Type: protocol.TypeAck, ID: env.Act.ID, OK: true}
	switch env.Act.Kind {
	case protocol.ActSetBlock:
		id, ok := w.catalogs.Blocks.Index[env.Act.Block]
		if !ok {
			ack.OK = false
			ack.Code = protocol.ErrUnknownBlock
			break
		}
		w.setBlock(Vec3i{X: env.Act.X, Y: env.Act.Y, Z: env.Act.Z}, id)
	case protocol.ActMove:
		w.agentMu.Lock()
		if a, ok := w.agents[env.AgentID]; ok {
			a.Pos = Vec3i{X: env.Act.X, Y: env.Act.Y, Z: env.Act.Z}
		}
		w.agentMu.Unlock()
	default:
		ack.OK = false
		ack.Code = protocol.ErrUnknownKind
	}
	w.send(env.AgentID, ack)
}

// setBlock mutates a cell. Thermal caches are deliberately not
// invalidated: staleness is time-based only.
func (w *World) setBlock(pos Vec3i, id uint16) {
	if pos.Y < 0 || pos.Y >= w.cfg.Height {
		return
	}
	cx, lx := chunkCoord(pos.X)
	cz, lz := chunkCoord(pos.Z)
	w.chunks.Get(cx, cz).SetBlock(lx, pos.Y, lz, id, w.gen.solidAt(id))
}

func (w *World) broadcastDiurnal(day uint64) {
	peak, low := w.climate.Diurnal().Params(day)
	msg := protocol.DiurnalMsg{
		Type:    protocol.TypeDiurnal,
		WorldID: w.cfg.ID,
		Day:     day,
		PeakC:   peak,
		LowC:    low,
	}
	for id := range w.clients {
		w.send(id, msg)
	}
	if w.dayHook != nil {
		w.dayHook(day, peak, low)
	}
}

func (w *World) pushVitals(now uint64) {
	season, _ := w.climate.Seasons().At(now)
	weather := w.Weather()
	w.agentMu.RLock()
	defer w.agentMu.RUnlock()
	for id := range w.clients {
		a, ok := w.agents[id]
		if !ok {
			continue
		}
		w.send(id, protocol.VitalsMsg{
			Type:     protocol.TypeVitals,
			Tick:     now,
			BodyC:    a.Body.BodyC,
			SoakedS:  a.Body.SoakedS,
			AmbientC: w.climate.AmbientC(w, a.Pos),
			Season:   season.String(),
			Weather:  weather.String(),
		})
	}
}

func (w *World) sampleField(now uint64) {
	w.agentMu.RLock()
	defer w.agentMu.RUnlock()
	for _, a := range w.agents {
		w.sampler.Sample(FieldSample{
			WorldID:  w.cfg.ID,
			Tick:     now,
			AgentID:  a.ID,
			Pos:      a.Pos.ToArray(),
			AmbientC: w.climate.AmbientC(w, a.Pos),
			OffsetC:  w.engine.TemperatureOffset(w, a.Pos),
			Exposure: w.engine.OutdoorExposure(w, a.Pos, w.cfg.ExposureBudget),
		})
	}
}

// send marshals and queues one message to a client, dropping when the
// client's buffer is full so a slow consumer cannot stall the loop.
func (w *World) send(agentID string, v any) {
	c, ok := w.clients[agentID]
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.Out <- b:
	default:
		c.Dropped++
		if w.log != nil && c.Dropped%100 == 1 {
			w.log.Printf("client %s slow: %d dropped", agentID, c.Dropped)
		}
	}
}
