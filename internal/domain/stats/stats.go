// Package stats computes corpus-wide exclusion zone hits and waypoint misses.
//
// The pass is independent of the classifier: every track contributes to
// every counter regardless of its verdict. Workers accumulate private
// partials that are summed by Merge, so the result does not depend on input
// order or on how tracks were split between workers.
package stats

import (
	"sort"

	"github.com/okian/trailfilter/internal/domain/fence"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
)

// Aggregate holds counters indexed like the criteria zone and waypoint lists.
type Aggregate struct {
	Tracks         int
	ZoneHits       []int
	WaypointMisses []int
}

// ZoneCount pairs a zone with its hit count.
type ZoneCount struct {
	Zone  route.ExclusionZone
	Count int
}

// WaypointCount pairs a waypoint with its miss count.
type WaypointCount struct {
	Waypoint route.Waypoint
	Count    int
}

// Collector observes tracks into partial aggregates.
type Collector struct {
	zones     int
	waypoints int
	exclusion fence.ExclusionDetector
	coverage  fence.CoverageAnalyzer
}

// NewCollector builds a collector for c.
func NewCollector(c route.Criteria) *Collector {
	return &Collector{
		zones:     len(c.Zones),
		waypoints: len(c.Waypoints),
		exclusion: fence.ExclusionDetector{Zones: c.Zones, DefaultRadiusM: c.ExcludeRadiusM},
		coverage:  fence.CoverageAnalyzer{Waypoints: c.Waypoints, RadiusM: c.PassRadiusM, MinRatio: c.MinCoverage},
	}
}

// NewPartial returns an empty aggregate sized for the collector's criteria.
func (c *Collector) NewPartial() *Aggregate {
	return &Aggregate{
		ZoneHits:       make([]int, c.zones),
		WaypointMisses: make([]int, c.waypoints),
	}
}

// Observe adds one track to agg. agg must come from NewPartial and must not
// be shared between goroutines.
func (c *Collector) Observe(agg *Aggregate, t model.Track) {
	points := t.Points()
	agg.Tracks++
	for i, hit := range c.exclusion.Hits(points) {
		if hit {
			agg.ZoneHits[i]++
		}
	}
	for i, covered := range c.coverage.Covered(points) {
		if !covered {
			agg.WaypointMisses[i]++
		}
	}
}

// Collect observes tracks sequentially into a fresh aggregate.
func (c *Collector) Collect(tracks []model.Track) *Aggregate {
	agg := c.NewPartial()
	for _, t := range tracks {
		c.Observe(agg, t)
	}
	return agg
}

// Merge sums partials into a new aggregate. Nil partials are ignored.
func Merge(parts ...*Aggregate) *Aggregate {
	out := &Aggregate{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.Tracks += p.Tracks
		out.ZoneHits = addInto(out.ZoneHits, p.ZoneHits)
		out.WaypointMisses = addInto(out.WaypointMisses, p.WaypointMisses)
	}
	return out
}

func addInto(dst, src []int) []int {
	if len(dst) < len(src) {
		grown := make([]int, len(src))
		copy(grown, dst)
		dst = grown
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst
}

// MostHitZone returns the zone with the highest hit count. Ties go to the
// zone listed first. ok is false only when c has no zones.
func (a *Aggregate) MostHitZone(c route.Criteria) (ZoneCount, bool) {
	if len(c.Zones) == 0 {
		return ZoneCount{}, false
	}
	best := ZoneCount{Zone: c.Zones[0], Count: a.zoneHits(0)}
	for i := 1; i < len(c.Zones); i++ {
		if n := a.zoneHits(i); n > best.Count {
			best = ZoneCount{Zone: c.Zones[i], Count: n}
		}
	}
	return best, true
}

// ZoneCounts returns every zone with its hit count, in configuration order.
func (a *Aggregate) ZoneCounts(c route.Criteria) []ZoneCount {
	out := make([]ZoneCount, len(c.Zones))
	for i, z := range c.Zones {
		out[i] = ZoneCount{Zone: z, Count: a.zoneHits(i)}
	}
	return out
}

// MissedWaypoints returns waypoints with a non-zero miss count, in
// configuration order.
func (a *Aggregate) MissedWaypoints(c route.Criteria) []WaypointCount {
	var out []WaypointCount
	for i, wp := range c.Waypoints {
		if i < len(a.WaypointMisses) && a.WaypointMisses[i] > 0 {
			out = append(out, WaypointCount{Waypoint: wp, Count: a.WaypointMisses[i]})
		}
	}
	return out
}

// RankedMisses returns MissedWaypoints sorted by count, highest first. Equal
// counts keep configuration order.
func (a *Aggregate) RankedMisses(c route.Criteria) []WaypointCount {
	out := a.MissedWaypoints(c)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func (a *Aggregate) zoneHits(i int) int {
	if i < len(a.ZoneHits) {
		return a.ZoneHits[i]
	}
	return 0
}
