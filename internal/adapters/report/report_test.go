package report_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/trailfilter/internal/adapters/report"
	"github.com/okian/trailfilter/internal/domain/classify"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/internal/domain/stats"
	"github.com/okian/trailfilter/internal/testtracks"
	. "github.com/smartystreets/goconvey/convey"
)

func classifyAll(c route.Criteria, tracks []model.Track) []classify.Verdict {
	cl := classify.New(c)
	out := make([]classify.Verdict, len(tracks))
	for i, t := range tracks {
		out[i] = cl.Classify(context.Background(), t)
	}
	return out
}

func TestBuild(t *testing.T) {
	Convey("Given verdicts for every kind of synthetic track", t, func() {
		c := route.Default()
		var tracks []model.Track
		kinds := testtracks.Kinds()
		// Reverse so the input order differs from the sorted order.
		for i := len(kinds) - 1; i >= 0; i-- {
			tracks = append(tracks, testtracks.Build(kinds[i], c, string(kinds[i])+".gpx"))
		}
		verdicts := classifyAll(c, tracks)
		agg := stats.NewCollector(c).Collect(tracks)

		Convey("When the report is built", func() {
			r := report.Build(verdicts, agg, c, report.Meta{RunID: "run-1"})

			Convey("Then verdicts should be sorted by track ID", func() {
				So(r.Verdicts, ShouldHaveLength, len(tracks))
				for i := 1; i < len(r.Verdicts); i++ {
					So(r.Verdicts[i-1].TrackID, ShouldBeLessThan, r.Verdicts[i].TrackID)
				}
			})

			Convey("Then accepted tracks should be listed in order", func() {
				So(r.Accepted, ShouldHaveLength, 2)
				So(r.Accepted[0].TrackID, ShouldEqual, "accepted.gpx")
				So(r.Accepted[1].TrackID, ShouldEqual, "untimed.gpx")
			})

			Convey("Then each rejection reason should count one track in pipeline order", func() {
				So(r.Rejections, ShouldHaveLength, 5)
				for i, reason := range classify.RejectionReasons() {
					So(r.Rejections[i].Reason, ShouldEqual, reason)
					So(r.Rejections[i].Count, ShouldEqual, 1)
				}
				So(r.Rejected(), ShouldEqual, 5)
			})

			Convey("Then Kalaye should be the most-hit zone", func() {
				So(r.HasMostHit, ShouldBeTrue)
				So(r.MostHit.Zone.Name, ShouldEqual, "Kalaye Mountain")
				So(r.MostHit.Count, ShouldEqual, 1)
			})
		})

		Convey("When the verdicts arrive in a different order", func() {
			shuffled := append([]classify.Verdict{}, verdicts[3:]...)
			shuffled = append(shuffled, verdicts[:3]...)

			Convey("Then the rendered report should be identical", func() {
				a := report.Render(report.Build(verdicts, agg, c, report.Meta{RunID: "x"}))
				b := report.Render(report.Build(shuffled, agg, c, report.Meta{RunID: "x"}))
				So(b, ShouldEqual, a)
			})
		})
	})
}

func TestRender(t *testing.T) {
	Convey("Given an empty run", t, func() {
		c := route.Default()
		r := report.Build(nil, nil, c, report.Meta{
			RunID:       "5d0c7a9e",
			InputDir:    "/data/tracks",
			Discovered:  3,
			Skipped:     3,
			GeneratedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		})

		Convey("When it is rendered", func() {
			out := report.Render(r)

			Convey("Then every rejection row should still be present", func() {
				So(out, ShouldContainSubstring, "Found 0 matching tracks.")
				for _, reason := range classify.RejectionReasons() {
					So(out, ShouldContainSubstring, reason.Label())
				}
			})

			Convey("Then the zone section should report a zero count", func() {
				So(out, ShouldContainSubstring, "Waterfall trail 2.5K sign (24.40600, 121.30400), passed by 0 tracks")
				So(out, ShouldContainSubstring, "Every track matched every waypoint.")
			})

			Convey("Then the configuration and run should be echoed", func() {
				So(out, ShouldContainSubstring, "150 m")
				So(out, ShouldContainSubstring, "50 m (Kalaye Mountain: 300 m)")
				So(out, ShouldContainSubstring, "70%")
				So(out, ShouldContainSubstring, "24h0m0s")
				So(out, ShouldContainSubstring, "5d0c7a9e")
				So(out, ShouldContainSubstring, "/data/tracks")
				So(out, ShouldContainSubstring, "2024-05-01T08:00:00Z")
			})

			Convey("Then sections should appear in order", func() {
				titles := []string{"Accepted tracks", "Rejections", "Most-hit exclusion zone", "Missed waypoints", "Configuration", "Run"}
				last := -1
				for _, title := range titles {
					idx := strings.Index(out, "=== "+title+" ===")
					So(idx, ShouldBeGreaterThan, last)
					last = idx
				}
			})
		})
	})

	Convey("Given a track that turns at 3K", t, func() {
		c := route.Default()
		tracks := []model.Track{testtracks.CoverageTrack("short.gpx", c, 8)}
		r := report.Build(classifyAll(c, tracks), stats.NewCollector(c).Collect(tracks), c, report.Meta{})

		Convey("Then the four upper waypoints should be listed as missed", func() {
			out := report.Render(r)
			So(r.Missed, ShouldHaveLength, 4)
			So(out, ShouldContainSubstring, "Main trail 3.5K")
			So(out, ShouldContainSubstring, "Taoshan summit")
			So(out, ShouldNotContainSubstring, "Every track matched every waypoint.")
		})
	})

	Convey("Given criteria without exclusion zones", t, func() {
		c := route.Default()
		c.Zones = nil

		Convey("Then the zone section should say so", func() {
			So(report.Render(report.Build(nil, nil, c, report.Meta{})), ShouldContainSubstring, "No exclusion zones configured.")
		})
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite(t *testing.T) {
	Convey("Given a report", t, func() {
		c := route.Default()
		r := report.Build(nil, nil, c, report.Meta{RunID: "abc"})

		Convey("When written to a file", func() {
			path := filepath.Join(t.TempDir(), report.DefaultFileName)
			err := report.WriteFile(path, r)

			Convey("Then the file should hold the rendered report", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, report.Render(r))
			})
		})

		Convey("When the directory does not exist", func() {
			err := report.WriteFile(filepath.Join(t.TempDir(), "missing", "r.txt"), r)

			Convey("Then ErrWriteReport should be returned", func() {
				So(errors.Is(err, report.ErrWriteReport), ShouldBeTrue)
			})
		})

		Convey("When the writer fails", func() {
			err := report.Write(failingWriter{}, r)

			Convey("Then ErrWriteReport should be returned", func() {
				So(errors.Is(err, report.ErrWriteReport), ShouldBeTrue)
			})
		})
	})
}
