// Package geo provides great-circle geometry for track matching.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000

// Point is an immutable WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// String renders the point as (lat, lon) with five decimals.
func (p Point) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", p.Lat, p.Lon)
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Within reports whether p lies within radius meters of target (inclusive).
func Within(p, target Point, radius float64) bool {
	return Distance(p, target) <= radius
}

// Near reports whether any of points lies within radius meters of target.
func Near(points []Point, target Point, radius float64) bool {
	for _, p := range points {
		if Within(p, target, radius) {
			return true
		}
	}
	return false
}
