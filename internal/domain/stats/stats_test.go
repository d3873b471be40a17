package stats_test

import (
	"sync"
	"testing"

	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/internal/domain/stats"
	"github.com/okian/trailfilter/internal/testtracks"
	"github.com/smartystreets/goconvey/convey"
)

func corpus(c route.Criteria) []model.Track {
	var tracks []model.Track
	for i, kind := range testtracks.Kinds() {
		tracks = append(tracks, testtracks.Build(kind, c, string(kind)+".gpx"))
		if i%2 == 0 {
			tracks = append(tracks, testtracks.CoverageTrack("partial.gpx", c, i+2))
		}
	}
	return tracks
}

func TestCollector(t *testing.T) {
	convey.Convey("Given a collector for the default criteria", t, func() {
		c := route.Default()
		col := stats.NewCollector(c)

		convey.Convey("When observing a full out-and-back track", func() {
			agg := col.Collect([]model.Track{testtracks.Build(testtracks.KindAccepted, c, "a.gpx")})

			convey.Convey("Then nothing should be missed or hit", func() {
				convey.So(agg.Tracks, convey.ShouldEqual, 1)
				convey.So(agg.ZoneHits, convey.ShouldResemble, []int{0, 0, 0, 0, 0})
				convey.So(agg.WaypointMisses, convey.ShouldResemble, make([]int, 12))
			})
		})

		convey.Convey("When observing a track rejected early", func() {
			// Rejected for duration, yet it still walks past Kalaye.
			track := testtracks.Build(testtracks.KindExclusionHit, c, "x.gpx")
			last := len(track.Samples) - 1
			track.Samples[last].Time = track.Samples[0].Time.Add(2 * c.MaxDuration)
			agg := col.Collect([]model.Track{track})

			convey.Convey("Then its zone hit should still be counted", func() {
				convey.So(agg.ZoneHits[2], convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When observing a track that turns at 3K", func() {
			agg := col.Collect([]model.Track{testtracks.CoverageTrack("p.gpx", c, 8)})

			convey.Convey("Then the four upper waypoints should be missed", func() {
				convey.So(agg.WaypointMisses, convey.ShouldResemble, []int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1})

				missed := agg.MissedWaypoints(c)
				convey.So(missed, convey.ShouldHaveLength, 4)
				convey.So(missed[0].Waypoint.Name, convey.ShouldEqual, "Main trail 3.5K")
				convey.So(missed[3].Waypoint.Name, convey.ShouldEqual, "Taoshan summit")
			})
		})

		convey.Convey("When observing a single point", func() {
			agg := col.NewPartial()
			col.Observe(agg, model.Track{ID: "one.gpx", Samples: []model.Sample{{Point: geo.Point{Lat: 24.44, Lon: 121.298}}}})

			convey.Convey("Then it should count like any other track", func() {
				convey.So(agg.Tracks, convey.ShouldEqual, 1)
				convey.So(agg.ZoneHits[2], convey.ShouldEqual, 1)
				convey.So(agg.MissedWaypoints(c), convey.ShouldHaveLength, 12)
			})
		})
	})
}

func TestMergeInvariance(t *testing.T) {
	convey.Convey("Given a mixed corpus", t, func() {
		c := route.Default()
		col := stats.NewCollector(c)
		tracks := corpus(c)
		sequential := col.Collect(tracks)

		convey.Convey("When the input order is reversed", func() {
			reversed := make([]model.Track, len(tracks))
			for i, tr := range tracks {
				reversed[len(tracks)-1-i] = tr
			}

			convey.Convey("Then the aggregate should not change", func() {
				convey.So(col.Collect(reversed), convey.ShouldResemble, sequential)
			})
		})

		convey.Convey("When tracks are split across parallel partials", func() {
			const workers = 3
			parts := make([]*stats.Aggregate, workers)
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				parts[w] = col.NewPartial()
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := w; i < len(tracks); i += workers {
						col.Observe(parts[w], tracks[i])
					}
				}(w)
			}
			wg.Wait()

			convey.Convey("Then merging should equal the sequential pass", func() {
				convey.So(stats.Merge(parts...), convey.ShouldResemble, sequential)
				convey.So(stats.Merge(parts[2], nil, parts[0], parts[1]), convey.ShouldResemble, sequential)
			})
		})
	})
}

func TestMostHitZone(t *testing.T) {
	convey.Convey("Given the default criteria", t, func() {
		c := route.Default()

		convey.Convey("When no zone was hit", func() {
			agg := stats.NewCollector(c).NewPartial()
			zc, ok := agg.MostHitZone(c)

			convey.Convey("Then the first zone should be reported with zero", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(zc.Zone.Name, convey.ShouldEqual, c.Zones[0].Name)
				convey.So(zc.Count, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When two zones tie", func() {
			agg := &stats.Aggregate{ZoneHits: []int{0, 3, 1, 3, 0}}
			zc, _ := agg.MostHitZone(c)

			convey.Convey("Then the earlier zone should win", func() {
				convey.So(zc.Zone.Name, convey.ShouldEqual, c.Zones[1].Name)
				convey.So(zc.Count, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the criteria have no zones", func() {
			c.Zones = nil
			_, ok := (&stats.Aggregate{}).MostHitZone(c)

			convey.Convey("Then nothing should be reported", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestRankedMisses(t *testing.T) {
	convey.Convey("Given miss counts out of order", t, func() {
		c := route.Default()
		agg := &stats.Aggregate{WaypointMisses: []int{0, 2, 0, 5, 0, 0, 0, 0, 2, 0, 0, 1}}

		convey.Convey("When ranking them", func() {
			ranked := agg.RankedMisses(c)

			convey.Convey("Then counts should descend with ties in configuration order", func() {
				convey.So(ranked, convey.ShouldHaveLength, 4)
				convey.So(ranked[0].Waypoint.Name, convey.ShouldEqual, "Main trail 1K")
				convey.So(ranked[1].Waypoint.Name, convey.ShouldEqual, "Waterfall trail 0.5K")
				convey.So(ranked[2].Waypoint.Name, convey.ShouldEqual, "Main trail 3.5K")
				convey.So(ranked[3].Count, convey.ShouldEqual, 1)
			})
		})
	})
}
