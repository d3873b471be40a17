package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/trailfilter/internal/adapters/progress"
	app "github.com/okian/trailfilter/internal/app"
	"github.com/okian/trailfilter/internal/config"
	"github.com/okian/trailfilter/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}
}

type rootFlags struct {
	configPath  string
	dir         string
	report      string
	metricsFile string
	logLevel    string
	workers     int
	quiet       bool
}

// newRootCmd builds the trailfilter command. Summary and progress go to
// stdout, logs to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "trailfilter",
		Short: "Find GPS tracks that hiked the Taoshan main trail in a single push",
		Long: `trailfilter reads every .gpx and .fit file in a directory, keeps the tracks that
start and end at the Wuling trailhead, pass most of the main trail waypoints,
stay away from the neighbouring peaks and finish within a day, and writes a
report explaining why every other track was rejected.

Settings come from defaults, an optional YAML file (--config or
TRAILFILTER_CONFIG), TRAILFILTER_* environment variables and finally flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, &f, stdout, stderr)
			if err != nil {
				fmt.Fprintln(stderr, "trailfilter: "+err.Error())
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&f.dir, "dir", "d", "", "directory containing track files (default: current directory)")
	flags.StringVarP(&f.report, "report", "o", "", "report file (default: route_analysis_results.txt)")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format to this path")
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.IntVarP(&f.workers, "workers", "w", 0, "classification workers (default: one per CPU)")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "disable progress bars")

	return cmd
}

func run(cmd *cobra.Command, f *rootFlags, stdout, stderr io.Writer) error {
	ctx := cmd.Context()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx, f.configPath)
	if err != nil {
		return err
	}

	// Flags win over everything else.
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.InputDir = f.dir
	}
	if flags.Changed("report") {
		cfg.ReportFile = f.report
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = f.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logging
	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithCriteria(cfg.Criteria()),
		app.WithInputDir(cfg.InputDir),
		app.WithReportPath(cfg.ReportFile),
		app.WithMetricsPath(cfg.MetricsFile),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithParseConcurrency(cfg.ParseConcurrency),
		app.WithSkipDuplicates(cfg.SkipDuplicates, cfg.DedupeSize),
		app.WithOutput(stdout),
	}
	if !f.quiet {
		opts = append(opts, app.WithProgress(progress.New(stdout)))
	}

	_, err = app.New(opts...).Run(ctx)
	return err
}
