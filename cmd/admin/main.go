// Command admin inspects a server's data directory offline: the sqlite
// read index (samples, days, sessions) and snapshot files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"thermocraft.ai/internal/persistence/indexdb"
	"thermocraft.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "samples":
			samplesCmd(os.Args[2:])
			return
		case "days":
			daysCmd(os.Args[2:])
			return
		case "sessions":
			sessionsCmd(os.Args[2:])
			return
		case "worlds":
			worldsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <samples|days|sessions|worlds|snapshot> [flags]")
	os.Exit(2)
}

func openIndex(dataDir string) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLiteReadOnly(filepath.Join(dataDir, "index", "index.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	return idx
}

func samplesCmd(args []string) {
	fs := flag.NewFlagSet("samples", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "OVERWORLD", "world id")
	limit := fs.Int("limit", 20, "max rows")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	rows, err := idx.RecentSamples(*worldID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "samples:", err)
		os.Exit(1)
	}
	fmt.Printf("%-10s %-8s %-18s %9s %9s %9s\n", "tick", "agent", "pos", "ambient", "offset", "exposure")
	for _, s := range rows {
		fmt.Printf("%-10d %-8s %-18v %+8.2fC %+8.2fC %9.3f\n",
			s.Tick, s.AgentID, s.Pos, s.AmbientC, s.OffsetC, s.Exposure)
	}
}

func daysCmd(args []string) {
	fs := flag.NewFlagSet("days", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "OVERWORLD", "world id")
	limit := fs.Int("limit", 30, "max rows")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	rows, err := idx.Days(*worldID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "days:", err)
		os.Exit(1)
	}
	fmt.Printf("%-8s %8s %8s\n", "day", "peak", "low")
	for _, d := range rows {
		fmt.Printf("%-8d %+7.2fC %+7.2fC\n", d.Day, d.PeakC, d.LowC)
	}
}

func sessionsCmd(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "OVERWORLD", "world id")
	limit := fs.Int("limit", 20, "max rows")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	rows, err := idx.Sessions(*worldID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sessions:", err)
		os.Exit(1)
	}
	fmt.Printf("%-8s %-16s %-10s %-10s\n", "agent", "name", "joined", "left")
	for _, r := range rows {
		left := "open"
		if r.LeaveTick != nil {
			left = fmt.Sprintf("%d", *r.LeaveTick)
		}
		fmt.Printf("%-8s %-16s %-10d %-10s\n", r.AgentID, r.Name, r.JoinTick, left)
	}
}

func worldsCmd(args []string) {
	fs := flag.NewFlagSet("worlds", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	ids, err := idx.Worlds()
	if err != nil {
		fmt.Fprintln(os.Stderr, "worlds:", err)
		os.Exit(1)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "snapshot file path")
	_ = fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	snap, err := snapshot.Read(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("world:    %s\n", snap.Header.WorldID)
	fmt.Printf("tick:     %d\n", snap.Header.Tick)
	fmt.Printf("seed:     %d\n", snap.Seed)
	fmt.Printf("height:   %d  sky: %v  biome: %q\n", snap.Height, snap.Sky, snap.Biome)
	fmt.Printf("weather:  %d until tick %d\n", snap.Weather, snap.WeatherUntil)
	fmt.Printf("chunks:   %d\n", len(snap.Chunks))
	fmt.Printf("agents:   %d\n", len(snap.Agents))
	for _, a := range snap.Agents {
		fmt.Printf("  %-8s %-16s pos=%v body=%.2fC soaked=%.1fs\n",
			a.ID, a.Name, a.Pos, a.BodyC, a.SoakedS)
	}
}
