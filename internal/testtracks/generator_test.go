package testtracks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/internal/testtracks"
	"github.com/okian/trailfilter/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPolyline(t *testing.T) {
	Convey("Given two stops", t, func() {
		a := geo.Point{Lat: 24.0, Lon: 121.0}
		b := geo.Point{Lat: 24.1, Lon: 121.2}

		Convey("When interpolating four steps per leg", func() {
			points := testtracks.Polyline([]geo.Point{a, b}, 4)

			Convey("Then it should start and end on the stops", func() {
				So(points, ShouldHaveLength, 5)
				So(points[0], ShouldResemble, a)
				So(points[4], ShouldResemble, b)
				So(points[2].Lat, ShouldAlmostEqual, 24.05, 1e-9)
			})
		})

		Convey("When there are no stops", func() {
			Convey("Then it should return nothing", func() {
				So(testtracks.Polyline(nil, 3), ShouldBeEmpty)
			})
		})
	})
}

func TestOutAndBack(t *testing.T) {
	Convey("Given the default criteria", t, func() {
		c := route.Default()

		Convey("When walking to the summit and back", func() {
			points := testtracks.OutAndBack(c, len(c.Waypoints)-1, 10)

			Convey("Then it should start and end on the origin", func() {
				So(points[0], ShouldResemble, c.Origin.Point)
				So(points[len(points)-1], ShouldResemble, c.Origin.Point)
				// 11 distinct stops out, 11 legs back.
				So(points, ShouldHaveLength, 22*10+1)
			})
		})

		Convey("When the turn index is past the last waypoint", func() {
			points := testtracks.OutAndBack(c, 99, 1)

			Convey("Then it should clamp to the summit", func() {
				So(points, ShouldHaveLength, 23)
				So(points[11], ShouldResemble, c.Waypoints[11].Point)
			})
		})
	})
}

func TestOffset(t *testing.T) {
	Convey("Given a point on the ridge", t, func() {
		p := geo.Point{Lat: 24.44, Lon: 121.298}

		Convey("When moving 250 meters north", func() {
			moved := testtracks.Offset(p, 250, 0)

			Convey("Then the haversine distance should be 250 meters", func() {
				So(geo.Distance(p, moved), ShouldAlmostEqual, 250, 0.5)
			})
		})

		Convey("When moving 100 meters east", func() {
			moved := testtracks.Offset(p, 0, 100)

			Convey("Then the haversine distance should be 100 meters", func() {
				So(geo.Distance(p, moved), ShouldAlmostEqual, 100, 0.5)
			})
		})
	})
}

func TestBuildKinds(t *testing.T) {
	Convey("Given the default criteria", t, func() {
		c := route.Default()

		Convey("When building a too-long track", func() {
			track := testtracks.Build(testtracks.KindTooLong, c, "long.gpx")
			ts := track.Timestamps()

			Convey("Then it should span more than the ceiling", func() {
				So(ts[len(ts)-1].Sub(ts[0]), ShouldBeGreaterThan, c.MaxDuration)
			})
		})

		Convey("When building a too-few-points track", func() {
			track := testtracks.Build(testtracks.KindTooFewPoints, c, "short.gpx")

			Convey("Then it should be one sample short", func() {
				So(track.Len(), ShouldEqual, c.MinPoints-1)
			})
		})

		Convey("When building an untimed track", func() {
			track := testtracks.Build(testtracks.KindUntimed, c, "untimed.gpx")

			Convey("Then no sample should carry a time", func() {
				So(track.Timestamps(), ShouldBeEmpty)
				So(track.ID, ShouldEqual, "untimed.gpx")
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a fixture configuration", t, func() {
		So(logger.Init(logger.WithWriter(os.Stderr)), ShouldBeNil)
		dir := filepath.Join(t.TempDir(), "fixtures")
		cfg := &testtracks.Config{OutputDir: dir, PerKind: 2, JitterM: 5, Interval: time.Minute}

		Convey("When running the generator", func() {
			stats, err := testtracks.Run(context.Background(), cfg, route.Default())

			Convey("Then one file per track should be written", func() {
				So(err, ShouldBeNil)
				So(stats.FilesWritten, ShouldEqual, 2*len(testtracks.Kinds()))
				So(stats.ByKind[testtracks.KindAccepted], ShouldEqual, 2)

				entries, readErr := os.ReadDir(dir)
				So(readErr, ShouldBeNil)
				So(entries, ShouldHaveLength, stats.FilesWritten)
				So(entries[0].Name(), ShouldEqual, "accepted_001.gpx")
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := testtracks.Run(ctx, cfg, route.Default())

			Convey("Then it should stop with an error", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
