package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethpandaops/benchreport/pkg/config"
	"github.com/ethpandaops/benchreport/pkg/cpufreq"
	"github.com/ethpandaops/benchreport/pkg/driver"
	"github.com/ethpandaops/benchreport/pkg/fsutil"
	"github.com/ethpandaops/benchreport/pkg/job"
	"github.com/ethpandaops/benchreport/pkg/output"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/ethpandaops/benchreport/pkg/store"
	"github.com/ethpandaops/benchreport/pkg/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const summaryFile = "summary.md"

var (
	reportMeasurements string
	reportNoCompare    bool
	reportSkipStore    bool
	reportSkipUpload   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a recorded benchmark run",
	Long: `Replays recorded measurements through the ips report, writes result.json and
summary.md to a new run directory and optionally stores and uploads the run.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportMeasurements, "measurements", "",
		"Path to the recorded measurements (YAML or JSON)")
	reportCmd.Flags().BoolVar(&reportNoCompare, "no-compare", false,
		"Disable the comparison section")
	reportCmd.Flags().BoolVar(&reportSkipStore, "skip-store", false,
		"Do not save the run to the history database")
	reportCmd.Flags().BoolVar(&reportSkipUpload, "skip-upload", false,
		"Do not upload the run directory")

	if err := reportCmd.MarkFlagRequired("measurements"); err != nil {
		panic(err)
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	jobs, err := job.NewRegistry().ParseAll(cfg.Jobs)
	if err != nil {
		return fmt.Errorf("parsing jobs: %w", err)
	}

	doc, err := driver.LoadDocument(reportMeasurements)
	if err != nil {
		return err
	}

	// Setup context with signal handling.
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := cpufreq.NewSource(cfg.SourceConfig())
	if err != nil {
		return fmt.Errorf("creating cpu frequency source: %w", err)
	}

	hz := cpufreq.Probe(ctx, log, src)
	execs := cfg.BenchmarkExecutables()

	out, err := output.NewIPS(log, os.Stdout, execs, output.Options{
		Compare: cfg.Report.Compare && !reportNoCompare,
		ClockHz: hz,
	})
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	start := time.Now()

	summary, err := driver.New(log, execs).Run(ctx, out, jobs, doc)
	if err != nil {
		return fmt.Errorf("reporting run: %w", err)
	}

	runID := fmt.Sprintf("%d_%s", start.Unix(), generateShortID())

	rr := results.Build(runID, execs, out.Results())
	rr.Timestamp = start.Unix()
	rr.TimestampEnd = time.Now().Unix()
	rr.Skipped = summary.Skipped
	rr.ClockMHz = megahertz(hz)

	if sys, err := results.CollectSystemInfo(ctx); err != nil {
		log.WithError(err).Warn("Failed to collect system info")
	} else {
		rr.System = sys
	}

	owner, err := cfg.ResultsOwner()
	if err != nil {
		return fmt.Errorf("parsing results owner: %w", err)
	}

	runDir := filepath.Join(cfg.Results.Dir, runID)

	if err := writeRunDir(runDir, rr, owner); err != nil {
		return err
	}

	if err := refreshIndex(cfg.Results.Dir, owner); err != nil {
		log.WithError(err).Warn("Failed to refresh run index")
	}

	log.WithFields(logrus.Fields{
		"run_id":  runID,
		"run_dir": runDir,
		"results": len(rr.Entries),
	}).Info("Run written")

	if cfg.Store != nil && cfg.Store.Enabled && !reportSkipStore {
		if err := saveRun(ctx, cfg.Store, rr); err != nil {
			return err
		}
	}

	if s3 := cfg.S3(); s3 != nil && s3.Enabled && !reportSkipUpload {
		if err := uploadRun(ctx, s3, runDir); err != nil {
			return err
		}
	}

	return nil
}

func writeRunDir(runDir string, rr *results.RunResult, owner *fsutil.Owner) error {
	if err := results.WriteRunResult(runDir, rr, owner); err != nil {
		return fmt.Errorf("writing run result: %w", err)
	}

	md := results.RenderMarkdown(rr, maxMarkdownChars)
	if err := fsutil.WriteFile(filepath.Join(runDir, summaryFile), []byte(md), 0o644, owner); err != nil {
		return fmt.Errorf("writing %s: %w", summaryFile, err)
	}

	return nil
}

func saveRun(ctx context.Context, cfg *config.StoreConfig, rr *results.RunResult) error {
	s := store.NewStore(log, cfg)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := s.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	if err := s.SaveRun(ctx, rr); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	return nil
}

func uploadRun(ctx context.Context, cfg *config.S3UploadConfig, runDir string) error {
	uploader, err := upload.NewS3Uploader(log, cfg)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("s3 preflight: %w", err)
	}

	if err := uploader.Upload(ctx, runDir); err != nil {
		return fmt.Errorf("uploading results: %w", err)
	}

	return nil
}

// megahertz converts a frequency in Hz to MHz, zero when unknown.
func megahertz(hz *big.Rat) float64 {
	if hz == nil {
		return 0
	}

	mhz, _ := new(big.Rat).Quo(hz, big.NewRat(1_000_000, 1)).Float64()

	return mhz
}

// generateShortID generates a short random hex ID (8 characters).
func generateShortID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails.
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xFFFFFFFF)
	}

	return hex.EncodeToString(b)
}
