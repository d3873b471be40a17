// Package trackfile reads GPS track recordings from disk into domain tracks.
package trackfile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/pkg/logger"
	"github.com/okian/trailfilter/pkg/metrics"
)

// Supported file extensions, lower case.
const (
	ExtGPX = ".gpx"
	ExtFIT = ".fit"
)

// Discover lists the track files directly inside dir, sorted by name.
// Extensions are matched case-insensitively; subdirectories are not walked.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputDir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Supported reports whether name has a track file extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtGPX, ExtFIT:
		return true
	default:
		return false
	}
}

// Load reads one track file. The track ID is the file base name and the
// fingerprint is the SHA-256 of the file content.
func Load(path string) (model.Track, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from Discover
	if err != nil {
		return model.Track{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var decode func(io.Reader) (model.Track, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtGPX:
		decode = DecodeGPX
	case ExtFIT:
		decode = DecodeFIT
	default:
		return model.Track{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	t, err := decode(bytes.NewReader(data))
	if err != nil {
		return model.Track{}, err
	}
	if t.Len() == 0 {
		return model.Track{}, fmt.Errorf("%w: %s", ErrNoSamples, filepath.Base(path))
	}

	sum := sha256.Sum256(data)
	t.ID = filepath.Base(path)
	t.Fingerprint = hex.EncodeToString(sum[:])
	return t, nil
}

// Failure describes a file that could not be loaded.
type Failure struct {
	Path string
	Err  error
}

// Reason returns a short label for metrics and reports.
func (f Failure) Reason() string {
	switch {
	case errors.Is(f.Err, ErrNoSamples):
		return "no_samples"
	case errors.Is(f.Err, ErrUnsupportedFormat):
		return "unsupported_format"
	default:
		return "parse_error"
	}
}

// Loader reads many files concurrently.
type Loader struct {
	concurrency int
	log         logger.Logger
	onLoaded    func(path string, err error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithConcurrency bounds the number of files read at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger used for skipped-file warnings.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithOnLoaded registers a callback invoked after each file, successful or not.
// It may be called from several goroutines at once.
func WithOnLoaded(fn func(path string, err error)) Option {
	return func(l *Loader) {
		l.onLoaded = fn
	}
}

// NewLoader creates a loader. Concurrency defaults to the number of CPUs.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{concurrency: runtime.NumCPU()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll loads paths with bounded parallelism. Tracks come back in input
// order; files that fail are reported as failures and skipped. Only context
// cancellation aborts the batch.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]model.Track, []Failure, error) {
	type result struct {
		track model.Track
		err   error
	}
	results := make([]result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			t, err := Load(path)
			metrics.RecordParseLatency(float64(time.Since(start).Microseconds()) / 1000)
			results[i] = result{track: t, err: err}
			if l.onLoaded != nil {
				l.onLoaded(path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	tracks := make([]model.Track, 0, len(paths))
	var failures []Failure
	for i, r := range results {
		if r.err != nil {
			f := Failure{Path: paths[i], Err: r.err}
			failures = append(failures, f)
			metrics.RecordTrackSkipped(f.Reason())
			if l.log != nil {
				l.log.Warn(ctx, "skipping track file",
					logger.String("file", filepath.Base(f.Path)),
					logger.String("reason", f.Reason()),
					logger.Error(f.Err))
			}
			continue
		}
		metrics.RecordTrackLoaded()
		tracks = append(tracks, r.track)
	}
	return tracks, failures, nil
}
