package testtracks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/trailfilter/internal/adapters/trackfile"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run generates fixture tracks for c and writes them as GPX files.
func Run(ctx context.Context, cfg *Config, c route.Criteria) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
		ByKind:    make(map[Kind]int),
	}

	logger.Get().Info(ctx, "generating fixture tracks",
		logger.String("outputDir", cfg.OutputDir),
		logger.Int("perKind", cfg.PerKind),
		logger.Float64("jitterM", cfg.JitterM))

	if err := os.MkdirAll(cfg.OutputDir, directoryPermission); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tracks := Generate(cfg, c)
	stats.TracksGenerated = len(tracks)

	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during fixture generation: %w", err)
		}
		path := filepath.Join(cfg.OutputDir, t.ID)
		if err := trackfile.WriteGPXFile(path, t); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", t.ID, err)
		}
		stats.FilesWritten++
	}
	for _, kind := range Kinds() {
		stats.ByKind[kind] = cfg.PerKind
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logger.Get().Info(ctx, "fixture tracks written",
		logger.Int("files", stats.FilesWritten),
		logger.Duration("took", stats.Duration))

	return stats, nil
}
