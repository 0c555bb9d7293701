package breadth

import "math"

// RatioCeiling is the sentinel reported when there are up movers but no
// down movers. A true ratio would be infinite; the dashboard renders
// this as "maxed out".
const RatioCeiling = 99.99

// Ratio computes an up/down ratio rounded to two decimals. No down
// movers with at least one up mover yields the ceiling sentinel; no
// movers at all yields nil, which serializes as null.
func Ratio(up, down int) *float64 {
	switch {
	case down > 0:
		r := round2(float64(up) / float64(down))
		return &r
	case up > 0:
		r := RatioCeiling
		return &r
	default:
		return nil
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
