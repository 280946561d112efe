package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethpandaops/benchreport/pkg/config"
	"github.com/ethpandaops/benchreport/pkg/humanize"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/ethpandaops/benchreport/pkg/store"
	"github.com/ethpandaops/benchreport/pkg/upload"
	"github.com/spf13/cobra"
)

var (
	historyRunID      string
	historyJob        string
	historyExecutable string
	historyLimit      int
	historyRemote     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored runs",
	Long: `Lists stored runs, shows a single run with --run, or tracks one job on one
executable across runs with --job and --executable. With --remote, runs are read
from the configured S3 bucket instead of the history database.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Show a single run")
	historyCmd.Flags().StringVar(&historyJob, "job", "", "Job to track across runs")
	historyCmd.Flags().StringVar(&historyExecutable, "executable", "", "Executable to track across runs")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of rows (0 for all)")
	historyCmd.Flags().BoolVar(&historyRemote, "remote", false, "Read runs from S3")
	historyCmd.MarkFlagsRequiredTogether("job", "executable")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyRemote {
		return remoteHistory(ctx, out, cfg)
	}

	if cfg.Store == nil || !cfg.Store.Enabled {
		return fmt.Errorf("history store is not configured or not enabled in config")
	}

	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("validating store config: %w", err)
	}

	s := store.NewStore(log, cfg.Store)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() { _ = s.Stop() }()

	switch {
	case historyRunID != "":
		run, err := s.GetRun(ctx, historyRunID)
		if err != nil {
			return err
		}

		return printRun(out, run)
	case historyJob != "":
		points, err := s.JobHistory(ctx, historyJob, historyExecutable, historyLimit)
		if err != nil {
			return err
		}

		return printHistory(out, points)
	default:
		runs, err := s.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}

		return printRuns(out, runs)
	}
}

func remoteHistory(ctx context.Context, out io.Writer, cfg *config.Config) error {
	s3 := cfg.S3()
	if s3 == nil || !s3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	reader := upload.NewS3Reader(log, s3)

	if historyRunID != "" {
		rr, err := reader.FetchRunResult(ctx, historyRunID)
		if err != nil {
			return err
		}

		if rr == nil {
			return fmt.Errorf("run %s has no %s in s3://%s", historyRunID, results.ResultFile, s3.Bucket)
		}

		_, err = io.WriteString(out, results.RenderMarkdown(rr, 0))

		return err
	}

	runs, err := reader.ListRuns(ctx)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if _, err := fmt.Fprintln(out, run); err != nil {
			return err
		}
	}

	return nil
}

func printRuns(out io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "RUN\tSTARTED\tHOST\tCLOCK")

	for _, r := range runs {
		clock := "-"
		if r.ClockMHz > 0 {
			clock = fmt.Sprintf("%.0f MHz", r.ClockMHz)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RunID, formatTimestamp(r.Timestamp), orDash(r.Hostname), clock)
	}

	return tw.Flush()
}

func printRun(out io.Writer, run *store.Run) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Run %s (%s)\n\n", run.RunID, formatTimestamp(run.Timestamp))
	fmt.Fprintln(tw, "RANK\tJOB\tEXECUTABLE\tI/S\tSLOWER")

	for _, e := range run.Entries {
		slower := "-"
		if e.Slowdown > 0 {
			slower = fmt.Sprintf("%.2fx", e.Slowdown)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Rank, e.Job, e.Executable, formatIPS(e.IPS), slower)
	}

	return tw.Flush()
}

func printHistory(out io.Writer, points []store.HistoryPoint) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "RUN\tSTARTED\tI/S\tITERATIONS\tTIME")

	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.6fs\n",
			p.RunID, formatTimestamp(p.Timestamp), formatIPS(p.IPS), p.Iterations, p.RealSeconds)
	}

	return tw.Flush()
}

func formatIPS(ips float64) string {
	s, err := humanize.Number(ips, 1)
	if err != nil {
		return "-"
	}

	return strings.TrimSpace(s)
}

func formatTimestamp(ts int64) string {
	if ts <= 0 {
		return "-"
	}

	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
