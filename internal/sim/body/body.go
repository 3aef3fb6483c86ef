// Package body models per-agent core temperature: a comfort band widened
// by equipment resistance, slow drift toward ambient outside the band, and
// a soaked timer that penalizes cooling.
package body

// NormalC is the resting core temperature.
const NormalC = 36.6

// Comfort band defaults in ambient °C. Resistances widen the band: cold
// resistance lowers the floor, heat resistance raises the ceiling.
const (
	ComfortLowC  = 13.0
	ComfortHighC = 30.0
)

// Passive drift rates in °C per second per degree outside the band.
const (
	CoolRatePerC = 0.00035
	HeatRatePerC = 0.00025
)

// SoakedCoolFactor scales cooling while wet.
const SoakedCoolFactor = 1.5

// SoakedRefreshS is the timer a wet agent is refreshed to each tick spent
// in water or under precipitation.
const SoakedRefreshS = 10.0

// Rate is the body-temperature drift for an ambient reading. Humidity above
// 50% boosts overheating up to 2×; soaked boosts cooling.
func Rate(ambientC, coldResistC, heatResistC, humidityPct float64, soaked bool) float64 {
	low := ComfortLowC - coldResistC
	high := ComfortHighC + heatResistC
	switch {
	case ambientC < low:
		r := -CoolRatePerC * (low - ambientC)
		if soaked {
			r *= SoakedCoolFactor
		}
		return r
	case ambientC > high:
		r := HeatRatePerC * (ambientC - high)
		if humidityPct > 50 {
			boost := (humidityPct - 50) / 50
			if boost > 1 {
				boost = 1
			}
			r *= 1 + boost
		}
		return r
	default:
		return 0
	}
}

// Advance integrates one step. dt is clamped at zero so a clock hiccup
// cannot run the body backward.
func Advance(currentC, ratePerSecond, dtSeconds float64) float64 {
	if dtSeconds < 0 {
		dtSeconds = 0
	}
	return currentC + ratePerSecond*dtSeconds
}

// State is the mutable per-agent record the world ticks.
type State struct {
	BodyC   float64
	SoakedS float64
}

func NewState() State {
	return State{BodyC: NormalC}
}

func (s *State) Soaked() bool { return s.SoakedS > 0 }

// Wet refreshes the soaked timer to at least seconds; already-wetter
// agents keep their longer timer.
func (s *State) Wet(seconds float64) {
	if seconds > s.SoakedS {
		s.SoakedS = seconds
	}
}

// Dry counts the soaked timer down by dt.
func (s *State) Dry(dtSeconds float64) {
	if dtSeconds <= 0 {
		return
	}
	s.SoakedS -= dtSeconds
	if s.SoakedS < 0 {
		s.SoakedS = 0
	}
}
