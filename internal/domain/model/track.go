// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/trailfilter/internal/domain/geo"
)

// Sample is one recorded track point.
type Sample struct {
	Point     geo.Point
	Elevation float64   // meters, 0 when absent
	Time      time.Time // zero when the sample carries no timestamp
}

// HasTime reports whether the sample carries a timestamp.
func (s Sample) HasTime() bool {
	return !s.Time.IsZero()
}

// Track is one GPS recording session, read-only once built by the ingestion adapter.
type Track struct {
	ID          string   // source file base name
	Samples     []Sample // recording order
	TimeErrors  int      // timestamps present in the source but not parseable
	Fingerprint string   // content hash of the source file
}

// Len returns the number of samples.
func (t Track) Len() int {
	return len(t.Samples)
}

// Points returns the sample coordinates in recording order.
func (t Track) Points() []geo.Point {
	points := make([]geo.Point, len(t.Samples))
	for i, s := range t.Samples {
		points[i] = s.Point
	}
	return points
}

// Timestamps returns the timestamps of the samples that have one.
func (t Track) Timestamps() []time.Time {
	var ts []time.Time
	for _, s := range t.Samples {
		if s.HasTime() {
			ts = append(ts, s.Time)
		}
	}
	return ts
}
