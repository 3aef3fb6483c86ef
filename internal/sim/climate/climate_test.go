package climate

import (
	"log"
	"math"
	"os"
	"testing"

	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/thermal"
)

func testBiomes() *catalogs.BiomeCatalog {
	cat := &catalogs.BiomeCatalog{ByName: map[string]catalogs.BiomeDef{}}
	for _, d := range catalogs.DefaultBiomes {
		cat.ByName[d.Biome] = d
	}
	return cat
}

func TestDiurnalDeterministic(t *testing.T) {
	a := NewDiurnal(1337, "overworld", 24000)
	b := NewDiurnal(1337, "overworld", 24000)
	for day := uint64(0); day < 10; day++ {
		ap, al := a.Params(day)
		bp, bl := b.Params(day)
		if ap != bp || al != bl {
			t.Fatalf("day %d params differ: (%v,%v) vs (%v,%v)", day, ap, al, bp, bl)
		}
	}
	c := NewDiurnal(1337, "cavern", 24000)
	cp, _ := c.Params(3)
	ap, _ := a.Params(3)
	if cp == ap {
		t.Fatal("different worlds should draw different day params")
	}
}

func TestDiurnalParamBounds(t *testing.T) {
	d := NewDiurnal(99, "w", 24000)
	for day := uint64(0); day < 500; day++ {
		peak, low := d.Params(day)
		if peak < 0 || peak >= 6 {
			t.Fatalf("day %d peak %v out of [0,6)", day, peak)
		}
		if low < -7 || low >= -2 {
			t.Fatalf("day %d low %v out of [-7,-2)", day, low)
		}
	}
}

func TestDiurnalNoonPeakMidnightLow(t *testing.T) {
	d := NewDiurnal(7, "w", 24000)
	peak, low := d.Params(0)
	noon := d.OffsetC(6000)     // quarter day in
	midnight := d.OffsetC(18000)
	if math.Abs(noon-peak) > 1e-9 {
		t.Fatalf("noon offset %v != peak %v", noon, peak)
	}
	if math.Abs(midnight-low) > 1e-9 {
		t.Fatalf("midnight offset %v != low %v", midnight, low)
	}
}

func TestDiurnalMinuteQuantization(t *testing.T) {
	d := NewDiurnal(7, "w", 24000)
	if d.OffsetC(2400) != d.OffsetC(2400+MinuteTicks-1) {
		t.Fatal("offsets within one minute must agree")
	}
	if d.OffsetC(2400) == d.OffsetC(2400+MinuteTicks) {
		t.Fatal("offset should step at the minute boundary")
	}
}

func TestSeasonTable(t *testing.T) {
	s := NewSeasons(3000)
	cases := []struct {
		tick   uint64
		season Season
		third  string
		offset float64
	}{
		{0, Winter, "EARLY", -6},
		{1000, Winter, "MID", -9},
		{2000, Winter, "LATE", -7},
		{3000, Spring, "EARLY", -2},
		{7000, Summer, "MID", 6},
		{11000, Autumn, "LATE", -2},
		{12000, Winter, "EARLY", -6}, // wraps
	}
	for _, c := range cases {
		season, third := s.At(c.tick)
		if season != c.season || third != c.third {
			t.Fatalf("tick %d: got %v/%s, want %v/%s", c.tick, season, third, c.season, c.third)
		}
		if got := s.OffsetC(c.tick); got != c.offset {
			t.Fatalf("tick %d: offset %v, want %v", c.tick, got, c.offset)
		}
	}
}

func TestHumidityDefaults(t *testing.T) {
	svc := NewService(testBiomes(), func(x, z int) string { return "NOWHERE" }, NewSeasons(0), NewDiurnal(1, "w", 0), thermal.New(nil))
	if got := svc.HumidityAt(0, 0, WeatherClear); got != 10 {
		t.Fatalf("clear humidity = %v, want 10", got)
	}
	if got := svc.HumidityAt(0, 0, WeatherSnow); got != 50 {
		t.Fatalf("snow humidity = %v, want 50", got)
	}
	if got := svc.HumidityAt(0, 0, WeatherRain); got != 65 {
		t.Fatalf("rain humidity = %v, want 65", got)
	}
}

func TestHumidityBiomeOverride(t *testing.T) {
	svc := NewService(testBiomes(), func(x, z int) string { return "SWAMP" }, NewSeasons(0), NewDiurnal(1, "w", 0), thermal.New(nil))
	if got := svc.HumidityAt(0, 0, WeatherClear); got != 85 {
		t.Fatalf("SWAMP humidity = %v, want 85", got)
	}
}

// ambientWorld is the minimal thermal.World for composition tests.
type ambientWorld struct {
	tick uint64
}

func (w *ambientWorld) ID() string                              { return "amb" }
func (w *ambientWorld) Tick() uint64                            { return w.tick }
func (w *ambientWorld) Cell(thermal.Vec3i) (thermal.Content, bool) { return thermal.Content{Empty: true}, true }
func (w *ambientWorld) HasSky() bool                            { return true }
func (w *ambientWorld) TopY() int                               { return 64 }
func (w *ambientWorld) SkyVisible(thermal.Vec3i) bool           { return true }

func TestAmbientComposition(t *testing.T) {
	logger := log.New(os.Stderr, "[test] ", 0)
	eng := thermal.New(logger)
	diurnal := NewDiurnal(42, "amb", 24000)
	seasons := NewSeasons(168000)
	svc := NewService(testBiomes(), func(x, z int) string { return "PLAINS" }, seasons, diurnal, eng)

	w := &ambientWorld{tick: 6000}
	want := 14.0 + seasons.OffsetC(6000) + diurnal.OffsetC(6000) // empty world: zero field offset
	if got := svc.AmbientC(w, thermal.Vec3i{Y: 10}); math.Abs(got-want) > 1e-9 {
		t.Fatalf("AmbientC = %v, want %v", got, want)
	}
}

func TestFormatters(t *testing.T) {
	if FormatC(21.04) != "21.0°C" {
		t.Fatalf("FormatC: %s", FormatC(21.04))
	}
	if CToF(100) != 212 {
		t.Fatalf("CToF(100) = %v", CToF(100))
	}
}
