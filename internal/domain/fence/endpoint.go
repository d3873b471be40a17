package fence

import (
	"github.com/okian/trailfilter/internal/domain/geo"
)

// EndpointMatcher checks the out-and-back shape: a track must start and end
// near the same trailhead.
type EndpointMatcher struct {
	Origin  geo.Point
	RadiusM float64
}

// Match reports whether both the first and the last point lie within the
// radius of the origin. Fewer than two points never match.
func (m EndpointMatcher) Match(points []geo.Point) bool {
	if len(points) < 2 {
		return false
	}
	return geo.Within(points[0], m.Origin, m.RadiusM) &&
		geo.Within(points[len(points)-1], m.Origin, m.RadiusM)
}
