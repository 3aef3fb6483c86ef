package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz        int `yaml:"tick_rate_hz"`
	DayTicks          int `yaml:"day_ticks"`
	SeasonLengthTicks int `yaml:"season_length_ticks"`
	CacheTTLTicks     int `yaml:"cache_ttl_ticks"`
	ExposureBudget    int `yaml:"exposure_budget"`

	SamplePeriodTicks  int `yaml:"sample_period_ticks"`
	VitalsPeriodTicks  int `yaml:"vitals_period_ticks"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Body BodyTuning `yaml:"body"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

type BodyTuning struct {
	NormalC       float64 `yaml:"normal_c"`
	ComfortLowC   float64 `yaml:"comfort_low_c"`
	ComfortHighC  float64 `yaml:"comfort_high_c"`
	CoolRatePerC  float64 `yaml:"cool_rate_per_c"`
	HeatRatePerC  float64 `yaml:"heat_rate_per_c"`
	SoakedSeconds float64 `yaml:"soaked_seconds"`
}

type RateLimits struct {
	QueryWindowTicks int `yaml:"query_window_ticks"`
	QueryMax         int `yaml:"query_max"`
	ActWindowTicks   int `yaml:"act_window_ticks"`
	ActMax           int `yaml:"act_max"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		DayTicks:           24000,
		SeasonLengthTicks:  168000, // 7 in-game days per season
		CacheTTLTicks:      80,
		ExposureBudget:     32,
		SamplePeriodTicks:  20,
		VitalsPeriodTicks:  20,
		SnapshotEveryTicks: 6000,
		Body: BodyTuning{
			NormalC:       36.6,
			ComfortLowC:   13,
			ComfortHighC:  30,
			CoolRatePerC:  0.00035,
			HeatRatePerC:  0.00025,
			SoakedSeconds: 10,
		},
		RateLimits: RateLimits{
			QueryWindowTicks: 20,
			QueryMax:         200,
			ActWindowTicks:   20,
			ActMax:           40,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.normalize()
	return t, nil
}

func (t *Tuning) normalize() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 20
	}
	if t.DayTicks <= 0 {
		t.DayTicks = 24000
	}
	if t.SeasonLengthTicks <= 0 {
		t.SeasonLengthTicks = 168000
	}
	if t.CacheTTLTicks <= 0 {
		t.CacheTTLTicks = 80
	}
	if t.ExposureBudget <= 0 {
		t.ExposureBudget = 32
	}
	if t.SamplePeriodTicks <= 0 {
		t.SamplePeriodTicks = 20
	}
	if t.VitalsPeriodTicks <= 0 {
		t.VitalsPeriodTicks = 20
	}
	if t.Body.NormalC == 0 {
		t.Body = Defaults().Body
	}
}
