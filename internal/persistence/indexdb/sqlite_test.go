package indexdb

import (
	"path/filepath"
	"testing"

	"thermocraft.ai/internal/sim/world"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSamplesRoundTrip(t *testing.T) {
	idx := openTestIndex(t)

	for i := 0; i < 5; i++ {
		idx.Sample(world.FieldSample{
			WorldID:  "OVERWORLD",
			Tick:     uint64(100 + i),
			AgentID:  "A1",
			Pos:      [3]int{i, 30, -i},
			AmbientC: 14.5,
			OffsetC:  2.25,
			Exposure: 1.0,
		})
	}
	idx.Sample(world.FieldSample{WorldID: "CAVERN", Tick: 100, AgentID: "A2"})
	idx.Flush()

	got, err := idx.RecentSamples("OVERWORLD", 3)
	if err != nil {
		t.Fatalf("RecentSamples: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 samples, got %d", len(got))
	}
	if got[0].Tick != 104 {
		t.Fatalf("want newest first (tick 104), got %d", got[0].Tick)
	}
	if got[0].Pos != [3]int{4, 30, -4} {
		t.Fatalf("pos mismatch: %v", got[0].Pos)
	}
	if got[0].AmbientC != 14.5 || got[0].OffsetC != 2.25 {
		t.Fatalf("temperature columns mismatch: %+v", got[0])
	}

	worlds, err := idx.Worlds()
	if err != nil {
		t.Fatalf("Worlds: %v", err)
	}
	if len(worlds) != 2 || worlds[0] != "CAVERN" || worlds[1] != "OVERWORLD" {
		t.Fatalf("worlds mismatch: %v", worlds)
	}
}

func TestDayParams(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordDay("OVERWORLD", 7, 4.5, -3.25)
	idx.RecordDay("OVERWORLD", 8, 2.0, -6.0)
	idx.Flush()

	peak, low, ok, err := idx.DayParams("OVERWORLD", 7)
	if err != nil || !ok {
		t.Fatalf("DayParams(7): ok=%v err=%v", ok, err)
	}
	if peak != 4.5 || low != -3.25 {
		t.Fatalf("day 7 params mismatch: peak=%v low=%v", peak, low)
	}

	if _, _, ok, err := idx.DayParams("OVERWORLD", 99); err != nil || ok {
		t.Fatalf("missing day should report ok=false, got ok=%v err=%v", ok, err)
	}

	days, err := idx.Days("OVERWORLD", 10)
	if err != nil {
		t.Fatalf("Days: %v", err)
	}
	if len(days) != 2 || days[0].Day != 8 {
		t.Fatalf("days mismatch: %+v", days)
	}
}

func TestSessionsOpenAndClose(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordJoin("OVERWORLD", "A1", "alice", 100)
	idx.RecordJoin("OVERWORLD", "A2", "bob", 150)
	idx.RecordLeave("OVERWORLD", "A1", 400)
	idx.Flush()

	rows, err := idx.Sessions("OVERWORLD", 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(rows))
	}
	// Newest join first.
	if rows[0].AgentID != "A2" || rows[0].LeaveTick != nil {
		t.Fatalf("A2 should be open: %+v", rows[0])
	}
	if rows[1].AgentID != "A1" || rows[1].LeaveTick == nil || *rows[1].LeaveTick != 400 {
		t.Fatalf("A1 should be closed at 400: %+v", rows[1])
	}
}

func TestReadOnlyOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordDay("OVERWORLD", 1, 3, -4)
	idx.Flush()
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := OpenSQLiteReadOnly(path)
	if err != nil {
		t.Fatalf("OpenSQLiteReadOnly: %v", err)
	}
	defer ro.Close()

	if _, _, ok, err := ro.DayParams("OVERWORLD", 1); err != nil || !ok {
		t.Fatalf("read-only DayParams: ok=%v err=%v", ok, err)
	}
	// Writes on a read-only handle are silently ignored.
	ro.RecordDay("OVERWORLD", 2, 0, 0)
	if _, _, ok, _ := ro.DayParams("OVERWORLD", 2); ok {
		t.Fatalf("read-only handle should not accept writes")
	}
}
