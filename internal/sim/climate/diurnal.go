package climate

import (
	"math"

	"thermocraft.ai/internal/sim/mathx"
)

// MinuteTicks quantizes the diurnal curve so two queries within the same
// in-game minute agree exactly.
const MinuteTicks = 1200

// Diurnal is the deterministic day/night temperature swing of one world.
// Each day draws its own peak and low from (seed, worldID, day), so curves
// are reproducible across restarts and identical on every process that
// shares the seed.
type Diurnal struct {
	seed     int64
	worldKey uint64
	dayTicks int
}

func NewDiurnal(seed int64, worldID string, dayTicks int) *Diurnal {
	if dayTicks <= 0 {
		dayTicks = 24000
	}
	return &Diurnal{seed: seed, worldKey: mathx.HashString(worldID), dayTicks: dayTicks}
}

func (d *Diurnal) DayTicks() int { return d.dayTicks }

func (d *Diurnal) DayIndex(tick uint64) uint64 {
	return tick / uint64(d.dayTicks)
}

// Params returns the day's peak (°C above base, [0,6)) and low ([−7,−2)).
func (d *Diurnal) Params(day uint64) (peakC, lowC float64) {
	h := mathx.Mix64(uint64(d.seed) ^ d.worldKey ^ mathx.Mix64(day))
	peakC = float64(h>>40&0xFFFF) / 65536.0 * 6.0
	lowC = -7.0 + float64(h>>8&0xFFFF)/65536.0*5.0
	return peakC, lowC
}

// OffsetC is the diurnal offset at a world tick: a cosine over the day with
// the peak at noon and the minimum at midnight, quantized to whole minutes.
func (d *Diurnal) OffsetC(tick uint64) float64 {
	day := d.DayIndex(tick)
	peak, low := d.Params(day)
	center := (peak + low) / 2
	amp := (peak - low) / 2

	tod := int(tick % uint64(d.dayTicks))
	tod -= tod % MinuteTicks
	f := float64(tod) / float64(d.dayTicks)
	// Day tick 0 is sunrise, so noon sits a quarter-day in; the cosine
	// peaks there and bottoms out at midnight.
	return center + amp*math.Cos(2*math.Pi*(f-0.25))
}
