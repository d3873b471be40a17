package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/trailfilter/internal/config"
	"github.com/okian/trailfilter/internal/testtracks"
	"github.com/okian/trailfilter/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newGenCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}
}

// newGenCmd builds the fixture generator command.
func newGenCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := testtracks.Config{
		OutputDir: "fixtures",
		PerKind:   testtracks.DefaultPerKind,
		Steps:     testtracks.DefaultSteps,
		Interval:  testtracks.DefaultInterval,
		Start:     testtracks.DefaultStart,
	}
	var configPath string

	cmd := &cobra.Command{
		Use:   "gen-tracks",
		Short: "Write synthetic GPX tracks for every classification outcome",
		Long: `gen-tracks writes GPX files along the configured route: accepted tracks and one
group for each rejection reason. Point trailfilter at the output directory to
see every section of the report populated.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := logger.Init(logger.WithWriter(stderr)); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			appCfg, err := config.Load(ctx, configPath)
			if err != nil {
				fmt.Fprintln(stderr, "gen-tracks: "+err.Error())
				return err
			}

			stats, err := testtracks.Run(ctx, &cfg, appCfg.Criteria())
			if err != nil {
				fmt.Fprintln(stderr, "gen-tracks: "+err.Error())
				return err
			}

			fmt.Fprintf(stdout, "Wrote %d tracks to %s in %s\n", stats.FilesWritten, cfg.OutputDir, stats.Duration)
			for _, kind := range testtracks.Kinds() {
				fmt.Fprintf(stdout, "  %-20s %d\n", kind, stats.ByKind[kind])
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file with the route to follow")
	flags.StringVarP(&cfg.OutputDir, "out", "o", cfg.OutputDir, "output directory")
	flags.IntVarP(&cfg.PerKind, "per-kind", "n", cfg.PerKind, "tracks per outcome")
	flags.IntVar(&cfg.Steps, "steps", cfg.Steps, "samples per leg between waypoints")
	flags.DurationVar(&cfg.Interval, "interval", cfg.Interval, "time between samples")
	flags.Float64Var(&cfg.JitterM, "jitter", 0, "random offset per sample in meters")

	return cmd
}
