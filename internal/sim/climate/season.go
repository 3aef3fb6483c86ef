package climate

// Season is the coarse phase of the yearly cycle.
type Season uint8

const (
	Winter Season = iota
	Spring
	Summer
	Autumn
)

func (s Season) String() string {
	switch s {
	case Winter:
		return "WINTER"
	case Spring:
		return "SPRING"
	case Summer:
		return "SUMMER"
	default:
		return "AUTUMN"
	}
}

// seasonOffsets is the fixed °C table, indexed [season][third].
var seasonOffsets = [4][3]float64{
	{-6, -9, -7}, // winter: early, mid, late
	{-2, 0, 2},   // spring
	{3, 6, 4},    // summer
	{2, 0, -2},   // autumn
}

// Seasons turns a world tick into a season phase and temperature offset.
// The cycle starts in winter at tick 0 and repeats every 4*lengthTicks.
type Seasons struct {
	lengthTicks int
}

func NewSeasons(lengthTicks int) *Seasons {
	if lengthTicks <= 0 {
		lengthTicks = 168000
	}
	return &Seasons{lengthTicks: lengthTicks}
}

func (s *Seasons) At(tick uint64) (Season, string) {
	phase := tick / uint64(s.lengthTicks) % 4
	third := int(tick % uint64(s.lengthTicks) * 3 / uint64(s.lengthTicks))
	names := [3]string{"EARLY", "MID", "LATE"}
	return Season(phase), names[third]
}

func (s *Seasons) OffsetC(tick uint64) float64 {
	phase := tick / uint64(s.lengthTicks) % 4
	third := int(tick % uint64(s.lengthTicks) * 3 / uint64(s.lengthTicks))
	return seasonOffsets[phase][third]
}
