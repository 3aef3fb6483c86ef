package world

import (
	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/thermal"
)

// SeedThermalRegistry installs every thermal block def from the catalog as
// a constant source. Called once at startup, before any world ticks.
func SeedThermalRegistry(eng *thermal.Engine, cats *catalogs.Catalogs) {
	for name, def := range cats.Blocks.Defs {
		if def.Thermal == nil {
			continue
		}
		src := thermal.Source{
			DeltaC:  def.Thermal.DeltaC,
			Range:   def.Thermal.Range,
			Dropoff: def.Thermal.Dropoff,
		}
		if def.Thermal.Occlusion == "los" {
			src.Occlusion = thermal.OcclusionLineOfSight
		}
		if f, ok := thermal.ParseFace(def.Thermal.Face); ok {
			src.Face = f
		}
		eng.RegisterConstant(cats.Blocks.Index[name], src)
	}
}
