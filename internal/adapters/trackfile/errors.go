package trackfile

import "errors"

// Sentinel kinds for ingestion errors.
var (
	// ErrInputDir is fatal: the run aborts before any classification.
	ErrInputDir          = errors.New("input directory unavailable")
	ErrNoSamples         = errors.New("track has no samples")
	ErrUnsupportedFormat = errors.New("unsupported track format")
	ErrParse             = errors.New("track parse failed")
)
