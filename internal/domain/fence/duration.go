// Package fence computes the per-track geofence signals the classifier and
// the aggregate statistics are built from.
package fence

import (
	"time"

	"github.com/okian/trailfilter/internal/domain/model"
)

// DurationGuard rejects tracks whose recorded time span is implausible.
type DurationGuard struct {
	Max time.Duration
}

// Span returns max-min over the track's timestamps. ok is false when the
// span cannot be trusted: no timestamps, or some failed to parse.
func (g DurationGuard) Span(t model.Track) (span time.Duration, ok bool) {
	if t.TimeErrors > 0 {
		return 0, false
	}
	ts := t.Timestamps()
	if len(ts) == 0 {
		return 0, false
	}
	lo, hi := ts[0], ts[0]
	for _, v := range ts[1:] {
		if v.Before(lo) {
			lo = v
		}
		if v.After(hi) {
			hi = v
		}
	}
	return hi.Sub(lo), true
}

// Pass reports whether the track survives the guard. Tracks without usable
// timestamps pass: missing or corrupt time data is not a rejection reason.
func (g DurationGuard) Pass(t model.Track) bool {
	span, ok := g.Span(t)
	if !ok {
		return true
	}
	return span <= g.Max
}
