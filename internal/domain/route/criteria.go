// Package route defines the geofence set a track is classified against.
package route

import (
	"fmt"
	"time"

	"github.com/okian/trailfilter/internal/domain/geo"
)

// Default criteria constants.
const (
	DefaultPassRadiusM     = 150.0
	DefaultExcludeRadiusM  = 50.0
	DefaultMinCoverage     = 0.7
	DefaultStartEndRadiusM = 200.0
	DefaultMaxDuration     = 24 * time.Hour
	DefaultMinPoints       = 10
)

// Origin is the trailhead every single-push track starts and ends at.
type Origin struct {
	Name  string
	Point geo.Point
}

// Waypoint is a location the route must pass near.
type Waypoint struct {
	Name  string
	Point geo.Point
}

// ExclusionZone is a location whose presence in a track signals a different route.
type ExclusionZone struct {
	Name  string
	Point geo.Point
	// RadiusM overrides the pipeline-wide exclusion radius when positive.
	RadiusM float64
}

// RadiusOr returns the zone's own radius, or defaultM when it has none.
func (z ExclusionZone) RadiusOr(defaultM float64) float64 {
	if z.RadiusM > 0 {
		return z.RadiusM
	}
	return defaultM
}

// Criteria bundles everything needed to classify a track. Built once per run
// and shared read-only between workers.
type Criteria struct {
	Origin    Origin
	Waypoints []Waypoint
	Zones     []ExclusionZone

	PassRadiusM     float64       // waypoint tolerance
	ExcludeRadiusM  float64       // default exclusion tolerance
	MinCoverage     float64       // fraction of waypoints that must be matched
	StartEndRadiusM float64       // first/last sample tolerance around the origin
	MaxDuration     time.Duration // recording span ceiling
	MinPoints       int           // samples required before geometric checks
}

// EffectiveRadius returns the radius used for z.
func (c Criteria) EffectiveRadius(z ExclusionZone) float64 {
	return z.RadiusOr(c.ExcludeRadiusM)
}

// Validate checks that the criteria can classify anything at all.
func (c Criteria) Validate() error {
	switch {
	case len(c.Waypoints) == 0:
		return fmt.Errorf("%w: at least one waypoint is required", ErrInvalidCriteria)
	case c.PassRadiusM <= 0:
		return fmt.Errorf("%w: pass radius must be positive, got %v", ErrInvalidCriteria, c.PassRadiusM)
	case c.ExcludeRadiusM <= 0:
		return fmt.Errorf("%w: exclude radius must be positive, got %v", ErrInvalidCriteria, c.ExcludeRadiusM)
	case c.StartEndRadiusM <= 0:
		return fmt.Errorf("%w: start/end radius must be positive, got %v", ErrInvalidCriteria, c.StartEndRadiusM)
	case c.MinCoverage <= 0 || c.MinCoverage > 1:
		return fmt.Errorf("%w: min coverage must be in (0, 1], got %v", ErrInvalidCriteria, c.MinCoverage)
	case c.MaxDuration <= 0:
		return fmt.Errorf("%w: max duration must be positive, got %v", ErrInvalidCriteria, c.MaxDuration)
	case c.MinPoints < 2:
		return fmt.Errorf("%w: min points must be at least 2, got %d", ErrInvalidCriteria, c.MinPoints)
	}
	for _, z := range c.Zones {
		if z.RadiusM < 0 {
			return fmt.Errorf("%w: zone %q has negative radius", ErrInvalidCriteria, z.Name)
		}
	}
	return nil
}

// Default returns the Taoshan main trail, single-push geofence set.
func Default() Criteria {
	return Criteria{
		Origin: Origin{Name: "Wuling Villa trailhead", Point: geo.Point{Lat: 24.39700, Lon: 121.30770}},
		Waypoints: []Waypoint{
			{Name: "Waterfall trail 0K", Point: geo.Point{Lat: 24.39700, Lon: 121.30770}},
			{Name: "Waterfall trail 0.5K", Point: geo.Point{Lat: 24.39890, Lon: 121.30830}},
			{Name: "Taoshan trail entrance", Point: geo.Point{Lat: 24.40520, Lon: 121.30750}},
			{Name: "Main trail 1K", Point: geo.Point{Lat: 24.41011, Lon: 121.31125}},
			{Name: "Main trail 1.5K", Point: geo.Point{Lat: 24.41304, Lon: 121.30947}},
			{Name: "Main trail 2K", Point: geo.Point{Lat: 24.41630, Lon: 121.30720}},
			{Name: "Main trail 2.5K", Point: geo.Point{Lat: 24.42100, Lon: 121.30600}},
			{Name: "Main trail 3K", Point: geo.Point{Lat: 24.42400, Lon: 121.30500}},
			{Name: "Main trail 3.5K", Point: geo.Point{Lat: 24.42640, Lon: 121.30377}},
			{Name: "Main trail 4K", Point: geo.Point{Lat: 24.42911, Lon: 121.30409}},
			{Name: "Main trail 4.5K", Point: geo.Point{Lat: 24.43251, Lon: 121.30463}},
			{Name: "Taoshan summit", Point: geo.Point{Lat: 24.43400, Lon: 121.30500}},
		},
		Zones: []ExclusionZone{
			{Name: "Waterfall trail 2.5K sign", Point: geo.Point{Lat: 24.40600, Lon: 121.30400}},
			{Name: "Waterfall trail 4.3K sign", Point: geo.Point{Lat: 24.41402, Lon: 121.30270}},
			// GPS noise near Kalaye is worse than elsewhere on the ridge.
			{Name: "Kalaye Mountain", Point: geo.Point{Lat: 24.44000, Lon: 121.29800}, RadiusM: 300},
			{Name: "Pintian Mountain", Point: geo.Point{Lat: 24.44500, Lon: 121.29500}},
			{Name: "Chiyou Mountain", Point: geo.Point{Lat: 24.44200, Lon: 121.31200}},
		},
		PassRadiusM:     DefaultPassRadiusM,
		ExcludeRadiusM:  DefaultExcludeRadiusM,
		MinCoverage:     DefaultMinCoverage,
		StartEndRadiusM: DefaultStartEndRadiusM,
		MaxDuration:     DefaultMaxDuration,
		MinPoints:       DefaultMinPoints,
	}
}
