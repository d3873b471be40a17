package fence

import (
	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/route"
)

// CoverageAnalyzer scores how many required waypoints a track passes near.
// Visiting order is not checked.
type CoverageAnalyzer struct {
	Waypoints []route.Waypoint
	RadiusM   float64
	MinRatio  float64
}

// Covered returns, per waypoint, whether any point lies within the radius.
func (a CoverageAnalyzer) Covered(points []geo.Point) []bool {
	covered := make([]bool, len(a.Waypoints))
	for i, wp := range a.Waypoints {
		covered[i] = geo.Near(points, wp.Point, a.RadiusM)
	}
	return covered
}

// Matched returns the number of waypoints the track passes near.
func (a CoverageAnalyzer) Matched(points []geo.Point) int {
	n := 0
	for _, wp := range a.Waypoints {
		if geo.Near(points, wp.Point, a.RadiusM) {
			n++
		}
	}
	return n
}

// Ratio returns matched / total, or 0 without waypoints.
func (a CoverageAnalyzer) Ratio(matched int) float64 {
	if len(a.Waypoints) == 0 {
		return 0
	}
	return float64(matched) / float64(len(a.Waypoints))
}

// Passes reports whether matched waypoints meet the minimum ratio. Rejection
// is strict-less-than, so a track exactly at the threshold passes.
func (a CoverageAnalyzer) Passes(matched int) bool {
	return !(float64(matched) < a.MinRatio*float64(len(a.Waypoints)))
}
