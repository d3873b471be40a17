// Package testtracks builds synthetic tracks along a route for tests, demos
// and fixture generation.
package testtracks

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
)

// Kind names the verdict a generated track is built to produce.
type Kind string

// Track kinds.
const (
	KindAccepted         Kind = "accepted"
	KindUntimed          Kind = "untimed"
	KindTooLong          Kind = "too-long"
	KindTooFewPoints     Kind = "too-few-points"
	KindEndpointMismatch Kind = "endpoint-mismatch"
	KindExclusionHit     Kind = "exclusion-hit"
	KindLowCoverage      Kind = "low-coverage"
)

// Generation defaults.
const (
	DefaultSteps    = 10
	DefaultInterval = 30 * time.Second
	DefaultPerKind  = 1

	metersPerDegreeLat = 111195.0
	randomFloatDivisor = 1000000
)

// DefaultStart is the first sample time of generated tracks.
var DefaultStart = time.Date(2024, 5, 1, 5, 30, 0, 0, time.UTC) //nolint:gochecknoglobals // fixed fixture epoch

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindAccepted,
		KindUntimed,
		KindTooLong,
		KindTooFewPoints,
		KindEndpointMismatch,
		KindExclusionHit,
		KindLowCoverage,
	}
}

// Polyline linearly interpolates steps samples per leg between consecutive
// stops and ends on the last stop.
func Polyline(stops []geo.Point, steps int) []geo.Point {
	if len(stops) == 0 {
		return nil
	}
	if steps < 1 {
		steps = 1
	}
	var out []geo.Point
	for i := 0; i+1 < len(stops); i++ {
		a, b := stops[i], stops[i+1]
		for s := 0; s < steps; s++ {
			f := float64(s) / float64(steps)
			out = append(out, geo.Point{
				Lat: a.Lat + (b.Lat-a.Lat)*f,
				Lon: a.Lon + (b.Lon-a.Lon)*f,
			})
		}
	}
	return append(out, stops[len(stops)-1])
}

// OutStops returns the origin followed by the waypoints up to and including
// turnAt, skipping consecutive duplicates.
func OutStops(c route.Criteria, turnAt int) []geo.Point {
	stops := []geo.Point{c.Origin.Point}
	if len(c.Waypoints) == 0 {
		return stops
	}
	if turnAt >= len(c.Waypoints) {
		turnAt = len(c.Waypoints) - 1
	}
	for _, wp := range c.Waypoints[:turnAt+1] {
		if wp.Point != stops[len(stops)-1] {
			stops = append(stops, wp.Point)
		}
	}
	return stops
}

// OutAndBack walks from the origin through the waypoints up to turnAt and
// returns the same way.
func OutAndBack(c route.Criteria, turnAt, steps int) []geo.Point {
	return Polyline(roundTrip(OutStops(c, turnAt)), steps)
}

func roundTrip(out []geo.Point) []geo.Point {
	stops := append([]geo.Point(nil), out...)
	for i := len(out) - 2; i >= 0; i-- {
		stops = append(stops, out[i])
	}
	return stops
}

// Timed builds a track sampling points at a fixed interval from start. A zero
// interval leaves samples untimed.
func Timed(id string, points []geo.Point, start time.Time, interval time.Duration) model.Track {
	t := model.Track{ID: id, Samples: make([]model.Sample, len(points))}
	for i, p := range points {
		t.Samples[i] = model.Sample{Point: p}
		if interval > 0 {
			t.Samples[i].Time = start.Add(time.Duration(i) * interval)
		}
	}
	return t
}

// Offset moves p by the given meters north and east.
func Offset(p geo.Point, northM, eastM float64) geo.Point {
	metersPerDegreeLon := metersPerDegreeLat * math.Cos(p.Lat*math.Pi/180)
	return geo.Point{
		Lat: p.Lat + northM/metersPerDegreeLat,
		Lon: p.Lon + eastM/metersPerDegreeLon,
	}
}

// CoverageTrack walks out and back through exactly matched waypoints.
func CoverageTrack(id string, c route.Criteria, matched int) model.Track {
	return Timed(id, OutAndBack(c, matched-1, DefaultSteps), DefaultStart, DefaultInterval)
}

// Build returns a track of the given kind with default sampling.
func Build(kind Kind, c route.Criteria, id string) model.Track {
	return build(kind, c, id, Config{Steps: DefaultSteps, Interval: DefaultInterval, Start: DefaultStart})
}

func build(kind Kind, c route.Criteria, id string, cfg Config) model.Track {
	last := len(c.Waypoints) - 1
	full := OutAndBack(c, last, cfg.Steps)

	switch kind {
	case KindUntimed:
		return Timed(id, full, cfg.Start, 0)

	case KindTooLong:
		interval := (c.MaxDuration + 2*time.Hour) / time.Duration(len(full)-1)
		return Timed(id, full, cfg.Start, interval)

	case KindTooFewPoints:
		n := c.MinPoints - 1
		if n > len(full) {
			n = len(full)
		}
		return Timed(id, full[:n], cfg.Start, cfg.Interval)

	case KindEndpointMismatch:
		return Timed(id, Polyline(OutStops(c, last), cfg.Steps), cfg.Start, cfg.Interval)

	case KindExclusionHit:
		out := OutStops(c, last)
		if zone, ok := nearestZone(c, out[len(out)-1]); ok {
			out = append(out, zone.Point)
		}
		return Timed(id, Polyline(roundTrip(out), cfg.Steps), cfg.Start, cfg.Interval)

	case KindLowCoverage:
		need := int(math.Ceil(c.MinCoverage * float64(len(c.Waypoints))))
		return Timed(id, OutAndBack(c, need-2, cfg.Steps), cfg.Start, cfg.Interval)

	default:
		return Timed(id, full, cfg.Start, cfg.Interval)
	}
}

func nearestZone(c route.Criteria, from geo.Point) (route.ExclusionZone, bool) {
	if len(c.Zones) == 0 {
		return route.ExclusionZone{}, false
	}
	best := c.Zones[0]
	for _, z := range c.Zones[1:] {
		if geo.Distance(from, z.Point) < geo.Distance(from, best.Point) {
			best = z
		}
	}
	return best, true
}

// Generate builds cfg.PerKind tracks of every kind. IDs are file names such as
// "accepted_001.gpx".
func Generate(cfg *Config, c route.Criteria) []model.Track {
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultSteps
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PerKind <= 0 {
		cfg.PerKind = DefaultPerKind
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultStart
	}

	var tracks []model.Track
	for _, kind := range Kinds() {
		for i := 1; i <= cfg.PerKind; i++ {
			id := fmt.Sprintf("%s_%03d.gpx", kind, i)
			t := build(kind, c, id, *cfg)
			if cfg.JitterM > 0 {
				jitter(&t, cfg.JitterM)
			}
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// jitter offsets every sample by up to maxM meters on each axis.
func jitter(t *model.Track, maxM float64) {
	for i := range t.Samples {
		north := (getRandomFloat()*2 - 1) * maxM
		east := (getRandomFloat()*2 - 1) * maxM
		t.Samples[i].Point = Offset(t.Samples[i].Point, north, east)
	}
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}
