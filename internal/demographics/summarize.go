// Package demographics summarizes census block population and housing
// counts within polygon areas.
package demographics

import (
	"math"

	"github.com/rotisserie/eris"
)

// Method selects how census blocks contribute to an area's totals.
type Method string

const (
	// MethodAll counts every block intersecting the area in full.
	MethodAll Method = "all"
	// MethodMajority counts only blocks with more than half their area
	// inside the area.
	MethodMajority Method = "gt50"
	// MethodWeighted scales each block's counts by the intersecting
	// proportion.
	MethodWeighted Method = "wtd"
)

// ParseMethod validates a method name from config or a flag.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodAll, MethodMajority, MethodWeighted:
		return Method(s), nil
	}
	return "", eris.Errorf("demographics: unknown method %q (want all, gt50, or wtd)", s)
}

// Label returns the human-readable form stored in the layer's method field.
func (m Method) Label() string {
	switch m {
	case MethodAll:
		return "all"
	case MethodMajority:
		return "greater than 50%"
	case MethodWeighted:
		return "weighted"
	}
	return string(m)
}

// BlockOverlap is one census block's contribution to an area: its counts
// and the fraction of the block's area inside the area polygon.
type BlockOverlap struct {
	GEOID      string
	Population int
	Housing    int
	Fraction   float64
}

// Summary holds totals for an area under every method, so callers can
// compare methods without re-querying.
type Summary struct {
	Blocks         int // blocks intersecting the area at all
	BlocksMajority int // blocks with >50% of their area inside

	PopulationAll      int
	PopulationMajority int
	PopulationWeighted int

	HousingAll      int
	HousingMajority int
	HousingWeighted int

	AreaSqMi float64
}

// Counts returns the population and housing totals for one method.
func (s Summary) Counts(m Method) (population, housing int) {
	switch m {
	case MethodAll:
		return s.PopulationAll, s.HousingAll
	case MethodMajority:
		return s.PopulationMajority, s.HousingMajority
	case MethodWeighted:
		return s.PopulationWeighted, s.HousingWeighted
	}
	return 0, 0
}

// Summarize totals block contributions under all three methods. Weighted
// counts round each block's share to the nearest whole person or unit.
func Summarize(blocks []BlockOverlap) Summary {
	var s Summary
	for _, b := range blocks {
		s.Blocks++
		s.PopulationAll += b.Population
		s.HousingAll += b.Housing

		if b.Fraction > 0.5 {
			s.BlocksMajority++
			s.PopulationMajority += b.Population
			s.HousingMajority += b.Housing
		}

		s.PopulationWeighted += int(math.Round(float64(b.Population) * b.Fraction))
		s.HousingWeighted += int(math.Round(float64(b.Housing) * b.Fraction))
	}
	return s
}

// RoundSignificant rounds a non-negative value to the given number of
// significant digits. Stored population and housing values are rounded to
// avoid a false sense of precision.
func RoundSignificant(x float64, digits int) (float64, error) {
	if digits < 1 {
		return 0, eris.Errorf("demographics: significant digits must be at least 1, got %d", digits)
	}
	if x == 0 {
		return 0, nil
	}
	if x < 0 {
		return 0, eris.New("demographics: value must not be negative")
	}
	scale := math.Pow(10, float64(digits-1)-math.Floor(math.Log10(x)))
	return math.Round(x*scale) / scale, nil
}
