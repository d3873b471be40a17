package trackfile

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"github.com/okian/trailfilter/internal/domain/geo"
	"github.com/okian/trailfilter/internal/domain/model"
)

// DecodeFIT reads the record messages of a FIT activity file. Records without
// a valid position are dropped; timestamps are taken as recorded.
func DecodeFIT(r io.Reader) (model.Track, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return model.Track{}, fmt.Errorf("%w: fit: %w", ErrParse, err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return model.Track{}, fmt.Errorf("%w: fit: %w", ErrParse, err)
	}

	var t model.Track
	for _, rec := range activity.Records {
		if rec == nil || rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
			continue
		}
		s := model.Sample{
			Point: geo.Point{Lat: rec.PositionLat.Degrees(), Lon: rec.PositionLong.Degrees()},
			Time:  rec.Timestamp,
		}
		if alt := rec.GetEnhancedAltitudeScaled(); !math.IsNaN(alt) {
			s.Elevation = alt
		} else if alt := rec.GetAltitudeScaled(); !math.IsNaN(alt) {
			s.Elevation = alt
		}
		t.Samples = append(t.Samples, s)
	}
	return t, nil
}
