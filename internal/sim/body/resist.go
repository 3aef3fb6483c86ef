package body

import (
	"strconv"
	"strings"
)

// Resistance tiers: each tier widens the comfort band by 2 °C, tiers run
// 1..6 per item, and an agent's summed total is capped at 48 °C per side.
const (
	TierC      = 2.0
	MaxTier    = 6
	ResistCapC = 48.0
)

// Resist is one item's contribution to the comfort band.
type Resist struct {
	HeatC float64
	ColdC float64
}

// ParseResist reads the compact item spec string "heat:N,cold:M". Unknown
// keys and out-of-range tiers are dropped, not errors: a malformed item
// just protects less.
func ParseResist(spec string) Resist {
	var r Resist
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		tier, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || tier < 1 {
			continue
		}
		if tier > MaxTier {
			tier = MaxTier
		}
		switch strings.TrimSpace(k) {
		case "heat":
			r.HeatC += float64(tier) * TierC
		case "cold":
			r.ColdC += float64(tier) * TierC
		}
	}
	return r
}

// ResistProvider contributes extra resistance beyond equipment, e.g. a
// scripted buff. Failures are swallowed: a broken provider protects by
// zero, it never breaks the vitals tick.
type ResistProvider func(agentID string) (Resist, error)

// Resistances sums equipment specs and providers, capping each side.
func Resistances(agentID string, equipment []string, providers []ResistProvider) Resist {
	var total Resist
	for _, spec := range equipment {
		r := ParseResist(spec)
		total.HeatC += r.HeatC
		total.ColdC += r.ColdC
	}
	for _, p := range providers {
		r, err := safeResist(p, agentID)
		if err != nil {
			continue
		}
		total.HeatC += r.HeatC
		total.ColdC += r.ColdC
	}
	if total.HeatC > ResistCapC {
		total.HeatC = ResistCapC
	}
	if total.ColdC > ResistCapC {
		total.ColdC = ResistCapC
	}
	return total
}

func safeResist(p ResistProvider, agentID string) (r Resist, err error) {
	defer func() {
		if recover() != nil {
			r = Resist{}
			err = errProviderPanic
		}
	}()
	return p(agentID)
}

var errProviderPanic = errString("resist provider panic")

type errString string

func (e errString) Error() string { return string(e) }
