// Package classify turns per-track geofence signals into an accept/reject
// verdict.
package classify

import (
	"context"
	"time"

	"github.com/okian/trailfilter/internal/domain/fence"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/pkg/logger"
)

// Verdict is the outcome of classifying one track.
type Verdict struct {
	TrackID  string
	Accepted bool
	Reason   Reason

	// Counts gathered by the stages that ran. ZonesHit is only filled when
	// the exclusion stage found a hit; WaypointsMatched only when the
	// coverage stage ran.
	Points           int
	ZonesHit         int
	WaypointsMatched int
	Duration         time.Duration
}

// Classifier runs the ordered decision pipeline. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	minPoints int
	duration  fence.DurationGuard
	endpoint  fence.EndpointMatcher
	exclusion fence.ExclusionDetector
	coverage  fence.CoverageAnalyzer
	log       logger.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets a logger used for per-track debug output.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		c.log = l
	}
}

// New builds a classifier for the given criteria. The criteria are copied and
// never modified.
func New(c route.Criteria, opts ...Option) *Classifier {
	cl := &Classifier{
		minPoints: c.MinPoints,
		duration:  fence.DurationGuard{Max: c.MaxDuration},
		endpoint:  fence.EndpointMatcher{Origin: c.Origin.Point, RadiusM: c.StartEndRadiusM},
		exclusion: fence.ExclusionDetector{Zones: c.Zones, DefaultRadiusM: c.ExcludeRadiusM},
		coverage: fence.CoverageAnalyzer{
			Waypoints: c.Waypoints,
			RadiusM:   c.PassRadiusM,
			MinRatio:  c.MinCoverage,
		},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Classify evaluates the stages in order and stops at the first failure.
func (c *Classifier) Classify(ctx context.Context, t model.Track) Verdict {
	v := c.classify(t)
	if c.log != nil {
		c.log.Debug(ctx, "track classified",
			logger.String("track", v.TrackID),
			logger.Bool("accepted", v.Accepted),
			logger.String("reason", string(v.Reason)),
			logger.Int("points", v.Points),
			logger.Int("waypoints_matched", v.WaypointsMatched))
	}
	return v
}

func (c *Classifier) classify(t model.Track) Verdict {
	v := Verdict{TrackID: t.ID, Points: t.Len()}

	if span, ok := c.duration.Span(t); ok {
		v.Duration = span
	}
	if !c.duration.Pass(t) {
		return reject(v, ReasonDuration)
	}

	if v.Points < c.minPoints {
		return reject(v, ReasonInsufficientPoints)
	}

	points := t.Points()
	if !c.endpoint.Match(points) {
		return reject(v, ReasonEndpointMismatch)
	}

	// Any single hit decides the verdict; the per-zone map is left to the
	// aggregate statistics.
	if c.exclusion.AnyHit(points) {
		v.ZonesHit = c.exclusion.Count(points)
		return reject(v, ReasonExclusionHit)
	}

	v.WaypointsMatched = c.coverage.Matched(points)
	if !c.coverage.Passes(v.WaypointsMatched) {
		return reject(v, ReasonInsufficientCoverage)
	}

	v.Accepted = true
	v.Reason = ReasonNone
	return v
}

func reject(v Verdict, r Reason) Verdict {
	v.Accepted = false
	v.Reason = r
	return v
}
