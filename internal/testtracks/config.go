package testtracks

import "time"

// Config holds configuration for fixture generation.
type Config struct {
	OutputDir string        // Directory the GPX files are written to
	PerKind   int           // Number of tracks generated for each Kind
	Steps     int           // Interpolated samples per leg between waypoints
	Interval  time.Duration // Time between consecutive samples
	JitterM   float64       // Maximum random offset applied to each sample, meters
	Start     time.Time     // Timestamp of the first sample
}

// Stats holds generation statistics.
type Stats struct {
	TracksGenerated int
	FilesWritten    int
	ByKind          map[Kind]int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
