package fence

import (
	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/route"
)

// ExclusionDetector flags tracks entering zones that belong to another route.
type ExclusionDetector struct {
	Zones          []route.ExclusionZone
	DefaultRadiusM float64
}

// Radius returns the effective radius for z.
func (d ExclusionDetector) Radius(z route.ExclusionZone) float64 {
	return z.RadiusOr(d.DefaultRadiusM)
}

// Hits returns, per zone, whether the track touches it.
func (d ExclusionDetector) Hits(points []geo.Point) []bool {
	hits := make([]bool, len(d.Zones))
	for i, z := range d.Zones {
		hits[i] = geo.Near(points, z.Point, d.Radius(z))
	}
	return hits
}

// Count returns the number of zones the track touches.
func (d ExclusionDetector) Count(points []geo.Point) int {
	n := 0
	for _, hit := range d.Hits(points) {
		if hit {
			n++
		}
	}
	return n
}

// AnyHit reports whether the track touches at least one zone, stopping at
// the first hit.
func (d ExclusionDetector) AnyHit(points []geo.Point) bool {
	for _, z := range d.Zones {
		if geo.Near(points, z.Point, d.Radius(z)) {
			return true
		}
	}
	return false
}
