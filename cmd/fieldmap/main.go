// Command fieldmap renders an offline ASCII heat map of the resolved
// thermal field. It builds a world from the same configs and seed the
// server uses, so the picture matches what agents would measure, without a
// running server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"thermocraft.ai/internal/scripting"
	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/multiworld"
	"thermocraft.ai/internal/sim/thermal"
	"thermocraft.ai/internal/sim/tuning"
	"thermocraft.ai/internal/sim/world"
)

// Cold to hot.
const ramp = " .:-=+*#%@"

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		worldsPath = flag.String("worlds", "./configs/worlds.yaml", "worlds config path")
		seed       = flag.Int64("seed", 1337, "base world seed")
		worldID    = flag.String("world", "", "world id (empty: default world)")
		mode       = flag.String("mode", "ambient", "field to render: ambient, offset, exposure, biome")
		cx         = flag.Int("x", 0, "map center x")
		cz         = flag.Int("z", 0, "map center z")
		yFlag      = flag.Int("y", -1, "slice y (-1: follow terrain surface)")
		radius     = flag.Int("radius", 32, "half-extent of the map in cells")
		tick       = flag.Int("tick", 6000, "sample tick (6000 = noon on defaults)")
		minC       = flag.Float64("min", -20, "ramp floor in degrees C")
		maxC       = flag.Float64("max", 40, "ramp ceiling in degrees C")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[fieldmap] ", log.LstdFlags)

	tune, err := tuning.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
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
	}
	defer func() {
		for _, sp := range scripts {
			sp.Close()
		}
	}()

	wcfg, err := multiworld.Load(pathIfExists(*worldsPath))
	if err != nil {
		logger.Fatalf("load worlds config: %v", err)
	}
	mgr, err := multiworld.Build(wcfg, *seed, tune, cats, engine, logger)
	if err != nil {
		logger.Fatalf("build worlds: %v", err)
	}
	w, err := mgr.Resolve(*worldID)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	w.DebugStep(*tick)

	if *mode == "biome" {
		renderBiomes(w, *cx, *cz, *radius)
		return
	}

	span := *maxC - *minC
	if span <= 0 {
		logger.Fatalf("-max must exceed -min")
	}

	fmt.Printf("world=%s mode=%s tick=%d center=(%d,%d) radius=%d ramp=[%.0fC..%.0fC]\n",
		w.ID(), *mode, w.Tick(), *cx, *cz, *radius, *minC, *maxC)
	for z := *cz - *radius; z <= *cz+*radius; z++ {
		var row strings.Builder
		for x := *cx - *radius; x <= *cx+*radius; x++ {
			y := *yFlag
			if y < 0 {
				y = w.DebugSurfaceY(x, z) + 1
			}
			pos := thermal.Vec3i{X: x, Y: y, Z: z}
			var v float64
			switch *mode {
			case "ambient":
				v = w.AmbientC(pos)
			case "offset":
				v = w.OffsetC(pos)
			case "exposure":
				// Exposure is 0..1; spread it over the ramp directly.
				v = *minC + w.Exposure(pos, 0)*span
			default:
				logger.Fatalf("unknown mode %q", *mode)
			}
			row.WriteByte(rampChar(v, *minC, span))
		}
		fmt.Println(row.String())
	}
}

func rampChar(v, min, span float64) byte {
	t := (v - min) / span
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	i := int(t * float64(len(ramp)-1))
	return ramp[i]
}

// renderBiomes prints one letter per column, plus a legend.
func renderBiomes(w *world.World, cx, cz, radius int) {
	seen := map[string]byte{}
	fmt.Printf("world=%s mode=biome center=(%d,%d) radius=%d\n", w.ID(), cx, cz, radius)
	for z := cz - radius; z <= cz+radius; z++ {
		var row strings.Builder
		for x := cx - radius; x <= cx+radius; x++ {
			name := w.DebugBiomeAt(x, z)
			ch, ok := seen[name]
			if !ok {
				ch = '?'
				if name != "" {
					ch = name[0]
				}
				seen[name] = ch
			}
			row.WriteByte(ch)
		}
		fmt.Println(row.String())
	}
	for name, ch := range seen {
		fmt.Printf("  %c = %s\n", ch, name)
	}
}

func pathIfExists(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
