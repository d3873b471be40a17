package classify_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/trailfilter/internal/domain/classify"
	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/internal/testtracks"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifyKinds(t *testing.T) {
	Convey("Given a classifier with the default criteria", t, func() {
		ctx := context.Background()
		c := route.Default()
		cl := classify.New(c)

		expected := map[testtracks.Kind]classify.Reason{
			testtracks.KindAccepted:         classify.ReasonNone,
			testtracks.KindUntimed:          classify.ReasonNone,
			testtracks.KindTooLong:          classify.ReasonDuration,
			testtracks.KindTooFewPoints:     classify.ReasonInsufficientPoints,
			testtracks.KindEndpointMismatch: classify.ReasonEndpointMismatch,
			testtracks.KindExclusionHit:     classify.ReasonExclusionHit,
			testtracks.KindLowCoverage:      classify.ReasonInsufficientCoverage,
		}

		for _, kind := range testtracks.Kinds() {
			Convey("When classifying a "+string(kind)+" track", func() {
				v := cl.Classify(ctx, testtracks.Build(kind, c, string(kind)+".gpx"))

				Convey("Then the reason should be "+string(expected[kind]), func() {
					So(v.Reason, ShouldEqual, expected[kind])
					So(v.Accepted, ShouldEqual, expected[kind] == classify.ReasonNone)
					So(v.TrackID, ShouldEqual, string(kind)+".gpx")
				})
			})
		}
	})
}

func TestClassifyAcceptedAndEndpoint(t *testing.T) {
	Convey("Given one full track and one ending at the summit", t, func() {
		ctx := context.Background()
		c := route.Default()
		cl := classify.New(c)

		good := testtracks.Build(testtracks.KindAccepted, c, "good.gpx")
		bad := testtracks.Build(testtracks.KindEndpointMismatch, c, "bad.gpx")

		Convey("When both are classified", func() {
			gv := cl.Classify(ctx, good)
			bv := cl.Classify(ctx, bad)

			Convey("Then the full track should be accepted with its counts", func() {
				So(gv.Accepted, ShouldBeTrue)
				So(gv.Reason, ShouldEqual, classify.ReasonNone)
				So(gv.WaypointsMatched, ShouldEqual, 12)
				So(gv.ZonesHit, ShouldEqual, 0)
				So(gv.Points, ShouldEqual, good.Len())
				So(gv.Duration, ShouldEqual, time.Duration(good.Len()-1)*testtracks.DefaultInterval)
			})

			Convey("Then the summit track should fail the endpoint check only", func() {
				So(bv.Accepted, ShouldBeFalse)
				So(bv.Reason, ShouldEqual, classify.ReasonEndpointMismatch)
				// Later stages did not run.
				So(bv.WaypointsMatched, ShouldEqual, 0)
			})
		})
	})
}

func TestClassifyCoverageBoundary(t *testing.T) {
	Convey("Given twelve waypoints at a 0.7 minimum", t, func() {
		ctx := context.Background()
		c := route.Default()
		cl := classify.New(c)

		Convey("When a track matches exactly ceil(0.7*12) = 9 waypoints", func() {
			v := cl.Classify(ctx, testtracks.CoverageTrack("nine.gpx", c, 9))

			Convey("Then it should be accepted", func() {
				So(v.WaypointsMatched, ShouldEqual, 9)
				So(v.Accepted, ShouldBeTrue)
			})
		})

		Convey("When a track matches one fewer", func() {
			v := cl.Classify(ctx, testtracks.CoverageTrack("eight.gpx", c, 8))

			Convey("Then it should be rejected for coverage", func() {
				So(v.WaypointsMatched, ShouldEqual, 8)
				So(v.Reason, ShouldEqual, classify.ReasonInsufficientCoverage)
			})
		})

		Convey("When the ratio times the count is a whole number", func() {
			ten := route.Default()
			ten.Waypoints = ten.Waypoints[:10]
			v := classify.New(ten).Classify(ctx, testtracks.CoverageTrack("seven.gpx", ten, 7))

			Convey("Then matching exactly 7 of 10 should still pass", func() {
				So(v.WaypointsMatched, ShouldEqual, 7)
				So(v.Accepted, ShouldBeTrue)
			})
		})
	})
}

func TestClassifyFirstFailureWins(t *testing.T) {
	Convey("Given the default criteria", t, func() {
		ctx := context.Background()
		c := route.Default()
		cl := classify.New(c)

		Convey("When a track is too long and also ends at the summit", func() {
			track := testtracks.Build(testtracks.KindEndpointMismatch, c, "both.gpx")
			last := len(track.Samples) - 1
			track.Samples[last].Time = track.Samples[0].Time.Add(25 * time.Hour)
			v := cl.Classify(ctx, track)

			Convey("Then duration should be reported", func() {
				So(v.Reason, ShouldEqual, classify.ReasonDuration)
				So(v.Duration, ShouldEqual, 25*time.Hour)
			})
		})

		Convey("When a track is short and starts far away", func() {
			far := geo.Point{Lat: 24.5, Lon: 121.4}
			track := testtracks.Timed("short.gpx", []geo.Point{far, far, far}, testtracks.DefaultStart, time.Minute)
			v := cl.Classify(ctx, track)

			Convey("Then the point count should be reported", func() {
				So(v.Reason, ShouldEqual, classify.ReasonInsufficientPoints)
				So(v.Points, ShouldEqual, 3)
			})
		})

		Convey("When a track enters a zone and misses most waypoints", func() {
			kalaye := c.Zones[2].Point
			points := testtracks.Polyline([]geo.Point{c.Origin.Point, kalaye, c.Origin.Point}, 20)
			v := cl.Classify(ctx, testtracks.Timed("detour.gpx", points, testtracks.DefaultStart, time.Minute))

			Convey("Then the exclusion hit should be reported", func() {
				So(v.Reason, ShouldEqual, classify.ReasonExclusionHit)
				So(v.ZonesHit, ShouldBeGreaterThanOrEqualTo, 1)
				So(v.WaypointsMatched, ShouldEqual, 0)
			})
		})

		Convey("When a 25 hour track has corrupt timestamps", func() {
			track := testtracks.Build(testtracks.KindTooLong, c, "corrupt.gpx")
			track.TimeErrors = 1
			v := cl.Classify(ctx, track)

			Convey("Then the duration guard should fail open", func() {
				So(v.Accepted, ShouldBeTrue)
				So(v.Duration, ShouldEqual, 0)
			})
		})

		Convey("When a track has no samples", func() {
			v := cl.Classify(ctx, model.Track{ID: "empty.gpx"})

			Convey("Then it should be rejected for too few points", func() {
				So(v.Reason, ShouldEqual, classify.ReasonInsufficientPoints)
			})
		})
	})
}

func TestClassifyKalayeOverride(t *testing.T) {
	Convey("Given a full track with a spur 250m short of Kalaye", t, func() {
		ctx := context.Background()
		c := route.Default()
		summit := c.Waypoints[len(c.Waypoints)-1].Point
		kalaye := c.Zones[2].Point
		// Stop 250m south of the zone center on the summit side.
		spur := testtracks.Offset(kalaye, -250, 0)

		out := testtracks.OutStops(c, len(c.Waypoints)-1)
		stops := append(out, spur, summit)
		for i := len(out) - 2; i >= 0; i-- {
			stops = append(stops, out[i])
		}
		track := testtracks.Timed("spur.gpx", testtracks.Polyline(stops, 10), testtracks.DefaultStart, time.Minute)

		Convey("When the zone keeps its 300m override", func() {
			v := classify.New(c).Classify(ctx, track)

			Convey("Then the track should be rejected for the exclusion hit", func() {
				So(v.Reason, ShouldEqual, classify.ReasonExclusionHit)
			})
		})

		Convey("When the override is removed", func() {
			c.Zones[2].RadiusM = 0
			v := classify.New(c).Classify(ctx, track)

			Convey("Then the 50m default should let it through", func() {
				So(v.Accepted, ShouldBeTrue)
			})
		})
	})
}

func TestRejectionReasons(t *testing.T) {
	Convey("Given the rejection reasons", t, func() {
		reasons := classify.RejectionReasons()

		Convey("Then they should follow pipeline order", func() {
			So(reasons, ShouldResemble, []classify.Reason{
				classify.ReasonDuration,
				classify.ReasonInsufficientPoints,
				classify.ReasonEndpointMismatch,
				classify.ReasonExclusionHit,
				classify.ReasonInsufficientCoverage,
			})
		})

		Convey("Then every reason should have a label", func() {
			for _, r := range reasons {
				So(r.Label(), ShouldNotBeBlank)
				So(r.Label(), ShouldNotEqual, string(r))
			}
		})
	})
}
