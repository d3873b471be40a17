// Package report renders classification results as a plain text report.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/okian/trailfilter/internal/domain/classify"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/internal/domain/stats"
)

// DefaultFileName is where the CLI writes the report unless told otherwise.
const DefaultFileName = "route_analysis_results.txt"

// Meta describes the run that produced a report.
type Meta struct {
	RunID       string
	InputDir    string
	Discovered  int
	Loaded      int
	Skipped     int
	Duplicates  int
	GeneratedAt time.Time
	Elapsed     time.Duration
}

// ReasonCount is the number of tracks rejected for one reason.
type ReasonCount struct {
	Reason classify.Reason
	Count  int
}

// Report is the structured content of a run report.
type Report struct {
	// Verdicts sorted by track ID.
	Verdicts   []classify.Verdict
	Accepted   []classify.Verdict
	Rejections []ReasonCount
	Zones      []stats.ZoneCount
	MostHit    stats.ZoneCount
	HasMostHit bool
	Missed     []stats.WaypointCount
	Criteria   route.Criteria
	Meta       Meta
}

// Build assembles a report. The verdict order does not matter.
func Build(verdicts []classify.Verdict, agg *stats.Aggregate, c route.Criteria, meta Meta) *Report {
	if agg == nil {
		agg = &stats.Aggregate{}
	}

	sorted := make([]classify.Verdict, len(verdicts))
	copy(sorted, verdicts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TrackID < sorted[j].TrackID
	})

	counts := make(map[classify.Reason]int)
	r := &Report{
		Verdicts: sorted,
		Criteria: c,
		Meta:     meta,
		Zones:    agg.ZoneCounts(c),
		Missed:   agg.MissedWaypoints(c),
	}
	for _, v := range sorted {
		if v.Accepted {
			r.Accepted = append(r.Accepted, v)
			continue
		}
		counts[v.Reason]++
	}
	for _, reason := range classify.RejectionReasons() {
		r.Rejections = append(r.Rejections, ReasonCount{Reason: reason, Count: counts[reason]})
	}
	r.MostHit, r.HasMostHit = agg.MostHitZone(c)

	return r
}

// Rejected returns the total number of rejected tracks.
func (r *Report) Rejected() int {
	n := 0
	for _, rc := range r.Rejections {
		n += rc.Count
	}
	return n
}

// Write renders r to w.
func Write(w io.Writer, r *Report) error {
	if _, err := io.WriteString(w, Render(r)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	return nil
}

// WriteFile renders r into the file at path, replacing it.
func WriteFile(path string, r *Report) error {
	if err := os.WriteFile(path, []byte(Render(r)), 0o644); err != nil { //nolint:gosec // the report is meant to be read by others
		return fmt.Errorf("%w: %w", ErrWriteReport, err)
	}
	return nil
}

// Render returns the report text.
func Render(r *Report) string {
	var b strings.Builder

	section(&b, "Accepted tracks")
	fmt.Fprintf(&b, "Found %d matching tracks.\n", len(r.Accepted))
	if len(r.Accepted) > 0 {
		t := newTable()
		t.AppendHeader(table.Row{"#", "Track", "Points", "Duration", "Waypoints"})
		for i, v := range r.Accepted {
			t.AppendRow(table.Row{i + 1, v.TrackID, v.Points, formatDuration(v.Duration), v.WaypointsMatched})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
		})
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	section(&b, "Rejections")
	t := newTable()
	t.AppendHeader(table.Row{"Stage", "Reason", "Tracks"})
	for _, rc := range r.Rejections {
		t.AppendRow(table.Row{string(rc.Reason), rc.Reason.Label(), rc.Count})
	}
	t.AppendFooter(table.Row{"", "Total rejected", r.Rejected()})
	b.WriteString(t.Render())
	b.WriteString("\n")

	section(&b, "Most-hit exclusion zone")
	if r.HasMostHit {
		fmt.Fprintf(&b, "%s %s, passed by %d tracks\n", r.MostHit.Zone.Name, r.MostHit.Zone.Point, r.MostHit.Count)
		t := newTable()
		t.AppendHeader(table.Row{"Zone", "Coordinate", "Radius (m)", "Tracks"})
		for _, zc := range r.Zones {
			t.AppendRow(table.Row{zc.Zone.Name, zc.Zone.Point.String(), formatMeters(r.Criteria.EffectiveRadius(zc.Zone)), zc.Count})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	} else {
		b.WriteString("No exclusion zones configured.\n")
	}

	section(&b, "Missed waypoints")
	if len(r.Missed) == 0 {
		b.WriteString("Every track matched every waypoint.\n")
	} else {
		t := newTable()
		t.AppendHeader(table.Row{"Waypoint", "Coordinate", "Missed by"})
		for _, wc := range r.Missed {
			t.AppendRow(table.Row{wc.Waypoint.Name, wc.Waypoint.Point.String(), wc.Count})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	section(&b, "Configuration")
	b.WriteString(configTable(r.Criteria).Render())
	b.WriteString("\n")

	section(&b, "Run")
	t = newTable()
	t.AppendRows([]table.Row{
		{"Run ID", r.Meta.RunID},
		{"Input directory", r.Meta.InputDir},
		{"Tracks discovered", r.Meta.Discovered},
		{"Tracks loaded", r.Meta.Loaded},
		{"Tracks skipped", r.Meta.Skipped},
		{"Duplicates skipped", r.Meta.Duplicates},
		{"Tracks classified", len(r.Verdicts)},
	})
	if !r.Meta.GeneratedAt.IsZero() {
		t.AppendRow(table.Row{"Generated at", r.Meta.GeneratedAt.UTC().Format(time.RFC3339)})
	}
	if r.Meta.Elapsed > 0 {
		t.AppendRow(table.Row{"Elapsed", r.Meta.Elapsed.Round(time.Millisecond).String()})
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	return b.String()
}

func configTable(c route.Criteria) table.Writer {
	exclude := formatMeters(c.ExcludeRadiusM)
	var overrides []string
	for _, z := range c.Zones {
		if z.RadiusM > 0 {
			overrides = append(overrides, fmt.Sprintf("%s: %s", z.Name, formatMeters(z.RadiusM)))
		}
	}
	if len(overrides) > 0 {
		exclude += " (" + strings.Join(overrides, ", ") + ")"
	}

	t := newTable()
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"Origin", c.Origin.Name + " " + c.Origin.Point.String()},
		{"Waypoint pass radius", formatMeters(c.PassRadiusM)},
		{"Exclusion radius", exclude},
		{"Minimum waypoint coverage", fmt.Sprintf("%.4g%%", c.MinCoverage*100)},
		{"Start/end radius", formatMeters(c.StartEndRadiusM)},
		{"Maximum recording time", c.MaxDuration.String()},
		{"Minimum points", c.MinPoints},
		{"Waypoints", len(c.Waypoints)},
		{"Exclusion zones", len(c.Zones)},
	})
	return t
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleDefault)
	return t
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "=== %s ===\n", title)
}

func formatMeters(m float64) string {
	return fmt.Sprintf("%g m", m)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
