package classify

// Reason tags the first pipeline stage a track failed.
type Reason string

// Pipeline stages, in evaluation order.
const (
	ReasonNone                 Reason = "none"
	ReasonDuration             Reason = "duration"
	ReasonInsufficientPoints   Reason = "insufficient-points"
	ReasonEndpointMismatch     Reason = "endpoint-mismatch"
	ReasonExclusionHit         Reason = "exclusion-hit"
	ReasonInsufficientCoverage Reason = "insufficient-coverage"
)

// RejectionReasons returns every rejection reason in pipeline order.
func RejectionReasons() []Reason {
	return []Reason{
		ReasonDuration,
		ReasonInsufficientPoints,
		ReasonEndpointMismatch,
		ReasonExclusionHit,
		ReasonInsufficientCoverage,
	}
}

// Label returns a human readable name for reports.
func (r Reason) Label() string {
	switch r {
	case ReasonNone:
		return "Accepted"
	case ReasonDuration:
		return "Duration exceeded"
	case ReasonInsufficientPoints:
		return "Too few points"
	case ReasonEndpointMismatch:
		return "Start/end away from trailhead"
	case ReasonExclusionHit:
		return "Entered exclusion zone"
	case ReasonInsufficientCoverage:
		return "Insufficient waypoint coverage"
	default:
		return string(r)
	}
}
