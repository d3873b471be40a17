// Package service runs one batch classification over a directory of track
// files.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trailfilter/internal/adapters/mq/queue"
	"github.com/okian/trailfilter/internal/adapters/mq/worker"
	"github.com/okian/trailfilter/internal/adapters/progress"
	"github.com/okian/trailfilter/internal/adapters/report"
	"github.com/okian/trailfilter/internal/adapters/trackfile"
	"github.com/okian/trailfilter/internal/domain/classify"
	"github.com/okian/trailfilter/internal/domain/dedupe"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/route"
	"github.com/okian/trailfilter/internal/domain/stats"
	"github.com/okian/trailfilter/pkg/logger"
	"github.com/okian/trailfilter/pkg/metrics"
)

// queueSlotsPerWorker bounds how far loading may run ahead of classification.
const queueSlotsPerWorker = 2

// Service wires ingestion, classification, statistics and reporting.
type Service struct {
	// Configuration
	criteria         route.Criteria
	inputDir         string
	reportPath       string
	metricsPath      string
	workerCount      int
	parseConcurrency int
	skipDuplicates   bool
	dedupeSize       int

	// Output
	progress *progress.Display
	out      io.Writer

	// Logging
	logger logger.Logger
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID      string
	Report     *report.Report
	Stats      *stats.Aggregate
	Failures   []trackfile.Failure
	Duplicates []string
	ReportPath string
	Elapsed    time.Duration
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCriteria sets the geofence set tracks are classified against.
func WithCriteria(c route.Criteria) Option {
	return func(s *Service) {
		s.criteria = c
	}
}

// WithInputDir sets the directory scanned for track files.
func WithInputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.inputDir = dir
		}
	}
}

// WithReportPath sets where the text report is written.
func WithReportPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.reportPath = path
		}
	}
}

// WithMetricsPath enables a Prometheus textfile export at path.
func WithMetricsPath(path string) Option {
	return func(s *Service) {
		s.metricsPath = path
	}
}

// WithWorkerCount sets the number of classification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithParseConcurrency bounds how many files are parsed at once.
func WithParseConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parseConcurrency = n
		}
	}
}

// WithSkipDuplicates drops files whose bytes match an earlier file. size
// bounds the detector; zero or less is unbounded.
func WithSkipDuplicates(enabled bool, size int) Option {
	return func(s *Service) {
		s.skipDuplicates = enabled
		s.dedupeSize = size
	}
}

// WithProgress shows per-stage progress bars on d.
func WithProgress(d *progress.Display) Option {
	return func(s *Service) {
		s.progress = d
	}
}

// WithOutput sets where the end-of-run summary is printed.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.out = w
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		criteria:   route.Default(),
		inputDir:   ".",
		reportPath: report.DefaultFileName,
		out:        io.Discard,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	return s
}

// Run performs one full batch. A missing input directory or invalid
// criteria abort the run before anything is classified; unreadable files are
// skipped and listed in the outcome.
func (s *Service) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := s.logger

	if err := s.criteria.Validate(); err != nil {
		return nil, err
	}

	paths, err := trackfile.Discover(s.inputDir)
	if err != nil {
		metrics.RecordErrorByComponent("trackfile", "input_dir")
		return nil, err
	}
	metrics.RecordTracksDiscovered(len(paths))
	log.Info(ctx, "discovered track files",
		logger.String("run_id", runID),
		logger.String("dir", s.inputDir),
		logger.Int("files", len(paths)))

	if s.progress != nil {
		s.progress.Start()
		defer s.progress.Stop()
	}

	tracks, failures, err := s.load(ctx, paths)
	if err != nil {
		return nil, err
	}

	var duplicates []string
	if s.skipDuplicates {
		tracks, duplicates = s.dropDuplicates(ctx, tracks)
	}

	res, err := s.classify(ctx, tracks)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	rep := report.Build(res.Verdicts, res.Stats, s.criteria, report.Meta{
		RunID:       runID,
		InputDir:    s.inputDir,
		Discovered:  len(paths),
		Loaded:      len(tracks) + len(duplicates),
		Skipped:     len(failures),
		Duplicates:  len(duplicates),
		GeneratedAt: time.Now(),
		Elapsed:     elapsed,
	})
	if err := report.WriteFile(s.reportPath, rep); err != nil {
		metrics.RecordErrorByComponent("report", "write")
		return nil, err
	}

	s.exportMetrics(ctx, res.Stats, elapsed)

	outcome := &Outcome{
		RunID:      runID,
		Report:     rep,
		Stats:      res.Stats,
		Failures:   failures,
		Duplicates: duplicates,
		ReportPath: s.reportPath,
		Elapsed:    elapsed,
	}

	if s.progress != nil {
		// Let the bars finish before the summary is printed.
		s.progress.Stop()
	}
	s.printSummary(outcome)

	log.Info(ctx, "run finished",
		logger.String("run_id", runID),
		logger.Int("accepted", len(rep.Accepted)),
		logger.Int("rejected", rep.Rejected()),
		logger.Int("skipped", len(failures)),
		logger.Duration("elapsed", elapsed))

	return outcome, nil
}

func (s *Service) load(ctx context.Context, paths []string) ([]model.Track, []trackfile.Failure, error) {
	opts := []trackfile.Option{
		trackfile.WithConcurrency(s.parseConcurrency),
		trackfile.WithLogger(s.logger.Named("trackfile")),
	}
	if s.progress != nil {
		step := s.progress.Stage("Loading tracks", len(paths))
		defer step.Done()
		opts = append(opts, trackfile.WithOnLoaded(func(string, error) { step.Increment() }))
	}

	tracks, failures, err := trackfile.NewLoader(opts...).LoadAll(ctx, paths)
	if err != nil {
		return nil, nil, fmt.Errorf("loading tracks: %w", err)
	}
	return tracks, failures, nil
}

func (s *Service) dropDuplicates(ctx context.Context, tracks []model.Track) ([]model.Track, []string) {
	d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	kept := make([]model.Track, 0, len(tracks))
	var dups []string
	for _, t := range tracks {
		if d.SeenAndRecord(ctx, t.Fingerprint) {
			metrics.RecordTrackDuplicate()
			s.logger.Info(ctx, "skipping duplicate track", logger.String("file", t.ID))
			dups = append(dups, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	return kept, dups
}

func (s *Service) classify(ctx context.Context, tracks []model.Track) (*worker.Result, error) {
	workers := s.workerCount
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(workers * queueSlotsPerWorker))

	opts := []worker.Option{worker.WithLogger(s.logger.Named("worker"))}
	if s.progress != nil {
		step := s.progress.Stage("Classifying", len(tracks))
		defer step.Done()
		opts = append(opts, worker.WithOnVerdict(func(classify.Verdict) { step.Increment() }))
	}

	classifier := classify.New(s.criteria, classify.WithLogger(s.logger.Named("classifier")))
	pool := worker.NewPool(workers, q, classifier, stats.NewCollector(s.criteria), opts...)
	pool.Start(ctx)

	// Enqueue blocks while the workers are behind.
	for _, t := range tracks {
		if err := q.Enqueue(ctx, t); err != nil {
			_ = pool.Shutdown(context.WithoutCancel(ctx))
			return nil, err
		}
	}
	if err := q.Close(); err != nil {
		return nil, fmt.Errorf("closing queue: %w", err)
	}

	res, err := pool.Wait(ctx)
	if err != nil {
		_ = pool.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	return res, nil
}

func (s *Service) exportMetrics(ctx context.Context, agg *stats.Aggregate, elapsed time.Duration) {
	metrics.ResetRouteGauges()
	for _, zc := range agg.ZoneCounts(s.criteria) {
		metrics.UpdateZoneHits(zc.Zone.Name, zc.Count)
	}
	for i, wp := range s.criteria.Waypoints {
		misses := 0
		if i < len(agg.WaypointMisses) {
			misses = agg.WaypointMisses[i]
		}
		metrics.UpdateWaypointMisses(wp.Name, misses)
	}
	metrics.RecordRunCompleted(elapsed.Seconds(), time.Now().Unix())

	if s.metricsPath == "" {
		return
	}
	if err := metrics.WriteTextfile(s.metricsPath); err != nil {
		// The report is already written; a failed export only loses metrics.
		s.logger.Warn(ctx, "metrics export failed", logger.String("path", s.metricsPath), logger.Error(err))
		return
	}
	s.logger.Debug(ctx, "metrics exported", logger.String("path", s.metricsPath))
}

func (s *Service) printSummary(o *Outcome) {
	r := o.Report
	fmt.Fprintf(s.out, "Analysis complete. Results written to %s\n", o.ReportPath)
	fmt.Fprintf(s.out, "Tracks classified: %d (skipped %d, duplicates %d)\n",
		len(r.Verdicts), len(o.Failures), len(o.Duplicates))
	fmt.Fprintf(s.out, "Accepted: %d\n", len(r.Accepted))
	for _, rc := range r.Rejections {
		fmt.Fprintf(s.out, "  %-32s %d\n", rc.Reason.Label()+":", rc.Count)
	}
	if misses := o.Stats.RankedMisses(s.criteria); len(misses) > 0 {
		top := misses[0]
		fmt.Fprintf(s.out, "Most missed waypoint: %s %s, missed by %d tracks\n",
			top.Waypoint.Name, top.Waypoint.Point, top.Count)
	}
}
