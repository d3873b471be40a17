// Package config defines run configuration and how it is loaded.
//
// Conventions:
//   - New returns a Config holding every default.
//   - Load layers a YAML file and TRAILFILTER_ environment variables on top.
//   - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/trailfilter/internal/adapters/report"
	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/pkg/logger"
)

// Place is a named coordinate.
type Place struct {
	Name string  `koanf:"name"`
	Lat  float64 `koanf:"lat"`
	Lon  float64 `koanf:"lon"`
}

// Zone is a named exclusion zone. RadiusM of zero uses ExcludeRadiusM.
type Zone struct {
	Name    string  `koanf:"name"`
	Lat     float64 `koanf:"lat"`
	Lon     float64 `koanf:"lon"`
	RadiusM float64 `koanf:"radius_m"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// InputDir is scanned (non-recursively) for track files.
	InputDir string `koanf:"input_dir"`

	// ReportFile receives the text report.
	ReportFile string `koanf:"report_file"`

	// MetricsFile, when set, receives a Prometheus textfile export.
	MetricsFile string `koanf:"metrics_file"`

	// WorkerCount sets the number of classification workers. Zero means one per CPU.
	WorkerCount int `koanf:"worker_count"`

	// ParseConcurrency bounds parallel file parsing. Zero means one per CPU.
	ParseConcurrency int `koanf:"parse_concurrency"`

	// SkipDuplicates drops files whose content was already loaded.
	SkipDuplicates bool `koanf:"skip_duplicates"`

	// DedupeSize bounds the duplicate detector. Zero or less is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	PassRadiusM      float64       `koanf:"pass_radius_m"`
	ExcludeRadiusM   float64       `koanf:"exclude_radius_m"`
	MinCoverageRatio float64       `koanf:"min_coverage_ratio"`
	StartEndRadiusM  float64       `koanf:"start_end_radius_m"`
	MaxDuration      time.Duration `koanf:"max_duration"`
	MinPoints        int           `koanf:"min_points"`

	Origin         Place   `koanf:"origin"`
	Waypoints      []Place `koanf:"waypoints"`
	ExclusionZones []Zone  `koanf:"exclusion_zones"`
}

// New creates a Config holding the Taoshan main trail defaults.
func New() *Config {
	def := route.Default()

	c := &Config{
		LogLevel:         "info",
		LogFormat:        logger.FormatText,
		InputDir:         ".",
		ReportFile:       report.DefaultFileName,
		PassRadiusM:      def.PassRadiusM,
		ExcludeRadiusM:   def.ExcludeRadiusM,
		MinCoverageRatio: def.MinCoverage,
		StartEndRadiusM:  def.StartEndRadiusM,
		MaxDuration:      def.MaxDuration,
		MinPoints:        def.MinPoints,
		Origin:           Place{Name: def.Origin.Name, Lat: def.Origin.Point.Lat, Lon: def.Origin.Point.Lon},
	}
	for _, wp := range def.Waypoints {
		c.Waypoints = append(c.Waypoints, Place{Name: wp.Name, Lat: wp.Point.Lat, Lon: wp.Point.Lon})
	}
	for _, z := range def.Zones {
		c.ExclusionZones = append(c.ExclusionZones, Zone{Name: z.Name, Lat: z.Point.Lat, Lon: z.Point.Lon, RadiusM: z.RadiusM})
	}
	return c
}

// Criteria converts the geofence settings to route criteria.
func (c *Config) Criteria() route.Criteria {
	rc := route.Criteria{
		Origin:          route.Origin{Name: c.Origin.Name, Point: geo.Point{Lat: c.Origin.Lat, Lon: c.Origin.Lon}},
		PassRadiusM:     c.PassRadiusM,
		ExcludeRadiusM:  c.ExcludeRadiusM,
		MinCoverage:     c.MinCoverageRatio,
		StartEndRadiusM: c.StartEndRadiusM,
		MaxDuration:     c.MaxDuration,
		MinPoints:       c.MinPoints,
	}
	for _, p := range c.Waypoints {
		rc.Waypoints = append(rc.Waypoints, route.Waypoint{Name: p.Name, Point: geo.Point{Lat: p.Lat, Lon: p.Lon}})
	}
	for _, z := range c.ExclusionZones {
		rc.Zones = append(rc.Zones, route.ExclusionZone{Name: z.Name, Point: geo.Point{Lat: z.Lat, Lon: z.Lon}, RadiusM: z.RadiusM})
	}
	return rc
}

// Validate normalizes case-insensitive settings in place, then checks for
// settings that would make a run meaningless.
func (c *Config) Validate() error {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	switch {
	case c.InputDir == "":
		return fmt.Errorf("%w: input_dir must not be empty", ErrInvalidConfig)
	case c.ReportFile == "":
		return fmt.Errorf("%w: report_file must not be empty", ErrInvalidConfig)
	case c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON:
		return fmt.Errorf("%w: log_format must be %q or %q, got %q", ErrInvalidConfig, logger.FormatText, logger.FormatJSON, c.LogFormat)
	case c.WorkerCount < 0:
		return fmt.Errorf("%w: worker_count must not be negative", ErrInvalidConfig)
	case c.ParseConcurrency < 0:
		return fmt.Errorf("%w: parse_concurrency must not be negative", ErrInvalidConfig)
	}
	if err := c.Criteria().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
