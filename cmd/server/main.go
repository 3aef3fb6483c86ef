package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"thermocraft.ai/internal/persistence/indexdb"
	persistlog "thermocraft.ai/internal/persistence/log"
	"thermocraft.ai/internal/persistence/snapshot"
	"thermocraft.ai/internal/scripting"
	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/multiworld"
	"thermocraft.ai/internal/sim/thermal"
	"thermocraft.ai/internal/sim/tuning"
	"thermocraft.ai/internal/sim/world"
	"thermocraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "base world seed (offset per world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		worldsPath = flag.String("worlds", "./configs/worlds.yaml", "worlds config path")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read index")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume each world from its latest snapshot if present")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	engine := thermal.New(logger)
	world.SeedThermalRegistry(engine, cats)

	scripts, err := scripting.LoadDir(filepath.Join(*configDir, "providers"), logger)
	if err != nil {
		logger.Fatalf("load providers: %v", err)
	}
	for _, sp := range scripts {
		engine.RegisterProvider(sp.Provider(), sp.MaxRange())
		logger.Printf("provider %s (range %d)", sp.Name(), sp.MaxRange())
	}
	defer func() {
		for _, sp := range scripts {
			sp.Close()
		}
	}()

	wcfg := multiworld.Config{}
	if _, err := os.Stat(*worldsPath); err == nil {
		wcfg, err = multiworld.Load(*worldsPath)
		if err != nil {
			logger.Fatalf("load worlds config: %v", err)
		}
	} else {
		wcfg, _ = multiworld.Load("")
		logger.Printf("worlds config not found (%s); running %s only", *worldsPath, wcfg.DefaultWorldID)
	}

	mgr, err := multiworld.Build(wcfg, *seed, tune, cats, engine, logger)
	if err != nil {
		logger.Fatalf("build worlds: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	dayLog := persistlog.NewDayLogger(*dataDir)
	defer dayLog.Close()

	snapCh := make(chan *snapshot.SnapshotV1, 4)

	var sampleLogs []*persistlog.SampleLogger
	mgr.Each(func(w *world.World) {
		id := w.ID()
		sl := persistlog.NewSampleLogger(*dataDir, id)
		sampleLogs = append(sampleLogs, sl)
		w.SetSampler(multiSampler{a: sl, b: idx})
		w.SetSessionRecorder(idx)
		w.SetSnapshotSink(snapCh)
		w.SetDayHook(func(day uint64, peakC, lowC float64) {
			_ = dayLog.WriteDay(persistlog.DayRecord{WorldID: id, Day: day, PeakC: peakC, LowC: lowC})
			idx.RecordDay(id, day, peakC, lowC)
		})

		if *loadLatest {
			path := latestSnapshot(worldDir(*dataDir, id))
			if path == "" {
				return
			}
			snap, err := snapshot.Read(path)
			if err != nil {
				logger.Printf("world %s: read snapshot: %v", id, err)
				return
			}
			if err := w.Restore(snap); err != nil {
				logger.Printf("world %s: restore snapshot: %v", id, err)
				return
			}
			logger.Printf("world %s resumed from %s tick=%d", id, filepath.Base(path), w.Tick())
		}
	})
	defer func() {
		for _, sl := range sampleLogs {
			_ = sl.Close()
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer: drains periodic snapshots from every world loop.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				writeSnapshot(*dataDir, snap, idx, logger)
			}
		}
	}()

	mgr.Start(ctx)
	logger.Printf("worlds running: %s (default %s)", strings.Join(mgr.IDs(), ", "), mgr.DefaultID())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/debug/thermal", debugThermalHandler(mgr))
	wsSrv := ws.NewServer(mgr, logger)
	wsSrv.SetRateLimits(tune.RateLimits)
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	if envBool("TC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Loops stopped: take a final snapshot of every world.
	mgr.Stop()
	mgr.Each(func(w *world.World) {
		writeSnapshot(*dataDir, w.Snapshot(), idx, logger)
	})
	logger.Printf("shutdown complete")
}

// multiSampler fans a field sample out to the JSONL log and the sqlite
// index. Either side may be nil.
type multiSampler struct {
	a world.Sampler
	b *indexdb.SQLiteIndex
}

func (m multiSampler) Sample(s world.FieldSample) {
	if m.a != nil {
		m.a.Sample(s)
	}
	m.b.Sample(s)
}

func worldDir(dataDir, worldID string) string {
	return filepath.Join(dataDir, "worlds", worldID)
}

func writeSnapshot(dataDir string, snap *snapshot.SnapshotV1, idx *indexdb.SQLiteIndex, logger *log.Logger) {
	path := filepath.Join(worldDir(dataDir, snap.Header.WorldID), "snapshots",
		fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.Write(path, snap); err != nil {
		logger.Printf("snapshot write: %v", err)
		return
	}
	idx.RecordSnapshot(snap.Header.WorldID, snap.Header.Tick, path, len(snap.Chunks), len(snap.Agents))
	logger.Printf("snapshot %s tick=%d chunks=%d agents=%d",
		snap.Header.WorldID, snap.Header.Tick, len(snap.Chunks), len(snap.Agents))
}

func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(filepath.Join(dir, "snapshots"))
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, "snapshots", name)
		}
	}
	return best
}

// debugThermalHandler answers GET /v1/debug/thermal?world=ID&x=&y=&z= with
// the resolved field at one cell.
func debugThermalHandler(mgr *multiworld.Manager) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w, err := mgr.Resolve(q.Get("world"))
		if err != nil {
			http.Error(rw, err.Error(), http.StatusNotFound)
			return
		}
		x, errX := strconv.Atoi(q.Get("x"))
		y, errY := strconv.Atoi(q.Get("y"))
		z, errZ := strconv.Atoi(q.Get("z"))
		if errX != nil || errY != nil || errZ != nil {
			http.Error(rw, "x, y, z must be integers", http.StatusBadRequest)
			return
		}
		pos := thermal.Vec3i{X: x, Y: y, Z: z}
		steps, outside := w.StepsToOutside(pos, 0)
		resp := struct {
			WorldID  string  `json:"world_id"`
			Tick     uint64  `json:"tick"`
			Pos      [3]int  `json:"pos"`
			AmbientC float64 `json:"ambient_c"`
			OffsetC  float64 `json:"offset_c"`
			Exposure float64 `json:"exposure"`
			Steps    int     `json:"steps_to_outside"`
			Outside  bool    `json:"outside_reachable"`
		}{
			WorldID:  w.ID(),
			Tick:     w.Tick(),
			Pos:      [3]int{x, y, z},
			AmbientC: w.AmbientC(pos),
			OffsetC:  w.OffsetC(pos),
			Exposure: w.Exposure(pos, 0),
			Steps:    steps,
			Outside:  outside,
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func envBool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
