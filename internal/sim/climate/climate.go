// Package climate composes biome base temperature, seasonal drift, the
// diurnal curve, and block-level thermal offsets into one ambient °C
// figure per cell.
package climate

import (
	"fmt"

	"thermocraft.ai/internal/sim/catalogs"
	"thermocraft.ai/internal/sim/thermal"
)

// Weather is the per-world precipitation state.
type Weather uint8

const (
	WeatherClear Weather = iota
	WeatherRain
	WeatherSnow
)

func (w Weather) String() string {
	switch w {
	case WeatherRain:
		return "RAIN"
	case WeatherSnow:
		return "SNOW"
	default:
		return "CLEAR"
	}
}

// Default humidity percentages by precipitation, used for biomes without
// a configured humidity.
func (w Weather) Humidity() float64 {
	switch w {
	case WeatherRain:
		return 65
	case WeatherSnow:
		return 50
	default:
		return 10
	}
}

// BiomeAt resolves the biome name for a column. Worlds with a fixed biome
// return it unconditionally.
type BiomeAt func(x, z int) string

// Service answers ambient-climate queries for one world.
type Service struct {
	biomes  *catalogs.BiomeCatalog
	biomeAt BiomeAt
	seasons *Seasons
	diurnal *Diurnal
	engine  *thermal.Engine
}

func NewService(biomes *catalogs.BiomeCatalog, biomeAt BiomeAt, seasons *Seasons, diurnal *Diurnal, engine *thermal.Engine) *Service {
	return &Service{biomes: biomes, biomeAt: biomeAt, seasons: seasons, diurnal: diurnal, engine: engine}
}

func (s *Service) Diurnal() *Diurnal { return s.diurnal }
func (s *Service) Seasons() *Seasons { return s.seasons }

// BiomeBase is the configured base temperature of the column's biome;
// unknown biomes fall back to 14 °C so a bad config degrades, not breaks.
func (s *Service) BiomeBase(x, z int) float64 {
	name := s.biomeAt(x, z)
	if d, ok := s.biomes.ByName[name]; ok {
		return d.Temperature
	}
	return 14
}

// HumidityAt is the column's humidity percent: the biome's configured value
// when present, else derived from the current precipitation.
func (s *Service) HumidityAt(x, z int, w Weather) float64 {
	name := s.biomeAt(x, z)
	if d, ok := s.biomes.ByName[name]; ok && d.Humidity > 0 {
		return d.Humidity
	}
	return w.Humidity()
}

// AmbientC is the full composition: biome base + season offset + diurnal
// offset + the thermal field at the cell.
func (s *Service) AmbientC(w thermal.World, pos thermal.Vec3i) float64 {
	base := s.BiomeBase(pos.X, pos.Z)
	tick := w.Tick()
	return base + s.seasons.OffsetC(tick) + s.diurnal.OffsetC(tick) + s.engine.TemperatureOffset(w, pos)
}

// FormatC renders a temperature for the debug surfaces.
func FormatC(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}

// CToF converts for display only; everything internal stays Celsius.
func CToF(c float64) float64 {
	return c*9/5 + 32
}
