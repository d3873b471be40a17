package trackfile

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/model"
)

// GPX document defaults used when encoding.
const (
	gpxNamespace = "http://www.topografix.com/GPX/1/1"
	gpxVersion   = "1.1"
	gpxCreator   = "trailfilter"
)

// Timestamp layouts seen in exported GPX files, tried in order.
var timeLayouts = []string{ //nolint:gochecknoglobals // read-only parse table
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

type gpxDocument struct {
	XMLName xml.Name   `xml:"gpx"`
	Version string     `xml:"version,attr"`
	Creator string     `xml:"creator,attr"`
	XMLNS   string     `xml:"xmlns,attr,omitempty"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name,omitempty"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

// gpxPoint keeps coordinates and time as text. An empty coordinate attribute
// would otherwise decode as zero, and one bad time should not fail the document.
type gpxPoint struct {
	Lat       string   `xml:"lat,attr"`
	Lon       string   `xml:"lon,attr"`
	Elevation *float64 `xml:"ele,omitempty"`
	Time      string   `xml:"time,omitempty"`
}

// DecodeGPX reads every track point from r, flattening tracks and segments in
// document order. A point without a valid lat and lon fails the whole file.
// Unparsable timestamps are counted in TimeErrors and the sample is kept
// without a time.
func DecodeGPX(r io.Reader) (model.Track, error) {
	var doc gpxDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return model.Track{}, fmt.Errorf("%w: gpx: %w", ErrParse, err)
	}

	var t model.Track
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				p, err := pt.point()
				if err != nil {
					return model.Track{}, fmt.Errorf("%w: gpx: trkpt %d: %w", ErrParse, len(t.Samples), err)
				}
				s := model.Sample{Point: p}
				if pt.Elevation != nil {
					s.Elevation = *pt.Elevation
				}
				if raw := strings.TrimSpace(pt.Time); raw != "" {
					ts, err := parseTime(raw)
					if err != nil {
						t.TimeErrors++
					} else {
						s.Time = ts
					}
				}
				t.Samples = append(t.Samples, s)
			}
		}
	}
	return t, nil
}

func (pt gpxPoint) point() (geo.Point, error) {
	lat, err := parseCoord("lat", pt.Lat, 90)
	if err != nil {
		return geo.Point{}, err
	}
	lon, err := parseCoord("lon", pt.Lon, 180)
	if err != nil {
		return geo.Point{}, err
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}

func parseCoord(name, raw string, limit float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", name, raw)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%s %v out of range", name, v)
	}
	return v, nil
}

func parseTime(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// EncodeGPX writes t as a single-track, single-segment GPX 1.1 document.
func EncodeGPX(w io.Writer, t model.Track) error {
	seg := gpxSegment{Points: make([]gpxPoint, len(t.Samples))}
	for i, s := range t.Samples {
		ele := s.Elevation
		pt := gpxPoint{
			Lat:       strconv.FormatFloat(s.Point.Lat, 'f', -1, 64),
			Lon:       strconv.FormatFloat(s.Point.Lon, 'f', -1, 64),
			Elevation: &ele,
		}
		if s.HasTime() {
			pt.Time = s.Time.UTC().Format(time.RFC3339)
		}
		seg.Points[i] = pt
	}
	doc := gpxDocument{
		Version: gpxVersion,
		Creator: gpxCreator,
		XMLNS:   gpxNamespace,
		Tracks:  []gpxTrack{{Name: t.ID, Segments: []gpxSegment{seg}}},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GPX: %w", err)
	}
	return nil
}

// WriteGPXFile saves t to path.
func WriteGPXFile(path string, t model.Track) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is chosen by the caller
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return EncodeGPX(f, t)
}
