package analysis

import (
	"sort"

	"placement-optimizer/internal/model"
)

// RankedPoint is a frontier point with its 1-based position by bang-for-buck.
type RankedPoint struct {
	Rank int `json:"rank"`
	model.FrontierPoint
}

// RankByBangForBuck sorts points descending by coverage bought per unit of
// premium. Ties keep the cheaper point first.
func RankByBangForBuck(points []model.FrontierPoint) []RankedPoint {
	out := make([]RankedPoint, 0, len(points))
	for _, p := range points {
		out = append(out, RankedPoint{FrontierPoint: p})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BangForBuck != out[j].BangForBuck {
			return out[i].BangForBuck > out[j].BangForBuck
		}
		return out[i].Premium < out[j].Premium
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// NonMonotonic returns the option IDs of points that bought less coverage than
// the previous, cheaper point. These are expected once indicator variables are
// active and are reported rather than corrected.
func NonMonotonic(points []model.FrontierPoint, tol float64) []int {
	var out []int
	for i := 1; i < len(points); i++ {
		if points[i].TotalCoverage < points[i-1].TotalCoverage-tol {
			out = append(out, points[i].OptionID)
		}
	}
	return out
}
