package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethpandaops/benchreport/pkg/fsutil"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/ethpandaops/benchreport/pkg/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	indexResultsDir string
	indexMethod     string
)

var indexFileCmd = &cobra.Command{
	Use:   "generate-index-file",
	Short: "Generate index.json from all runs in a results directory",
	Long: `Scans the result.json of every run and writes an index.json summary.
Supports the local results directory or the configured S3 bucket as source.`,
	RunE: runIndexFile,
}

func init() {
	rootCmd.AddCommand(indexFileCmd)
	indexFileCmd.Flags().StringVar(&indexResultsDir, "results-dir", "",
		"Path to the results directory (default: results.dir from config)")
	indexFileCmd.Flags().StringVar(&indexMethod, "method", "local",
		`Source method: "local" (filesystem) or "s3" (remote bucket)`)
}

func runIndexFile(cmd *cobra.Command, _ []string) error {
	switch indexMethod {
	case "local":
		return runIndexFileLocal()
	case "s3":
		return runIndexFileS3(cmd.Context())
	default:
		return fmt.Errorf("unsupported method %q (use \"local\" or \"s3\")", indexMethod)
	}
}

func runIndexFileLocal() error {
	dir := indexResultsDir

	var owner *fsutil.Owner

	if len(cfgFiles) > 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if dir == "" {
			dir = cfg.Results.Dir
		}

		if owner, err = cfg.ResultsOwner(); err != nil {
			return fmt.Errorf("parsing results owner: %w", err)
		}
	}

	if dir == "" {
		return fmt.Errorf("--results-dir or --config is required for --method=local")
	}

	log.WithField("results_dir", dir).Info("Generating index.json from local results")

	if err := refreshIndex(dir, owner); err != nil {
		return err
	}

	log.Info("index.json generated successfully")

	return nil
}

// refreshIndex rebuilds index.json of a local results directory.
func refreshIndex(dir string, owner *fsutil.Owner) error {
	index, err := results.GenerateIndex(dir)
	if err != nil {
		return fmt.Errorf("generating index: %w", err)
	}

	if err := results.WriteIndex(dir, index, owner); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	log.WithField("entries_count", len(index.Entries)).Debug("Run index refreshed")

	return nil
}

// runIndexFileS3 builds index.json from the runs in the bucket and uploads it
// next to them.
func runIndexFileS3(ctx context.Context) error {
	if len(cfgFiles) == 0 {
		return fmt.Errorf("--config is required for --method=s3")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s3Cfg := cfg.S3()
	if s3Cfg == nil || !s3Cfg.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	reader := upload.NewS3Reader(log, s3Cfg)

	runIDs, err := reader.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	log.WithFields(logrus.Fields{
		"bucket": s3Cfg.Bucket,
		"runs":   len(runIDs),
	}).Info("Generating index.json from S3")

	runs := make([]*results.RunResult, 0, len(runIDs))

	for _, runID := range runIDs {
		rr, err := reader.FetchRunResult(ctx, runID)
		if err != nil {
			log.WithError(err).WithField("run_id", runID).Warn("Skipping unreadable run")

			continue
		}

		if rr == nil {
			continue
		}

		if rr.RunID == "" {
			rr.RunID = runID
		}

		runs = append(runs, rr)
	}

	index := results.BuildIndex(runs)

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	key := reader.IndexKey()

	if err := reader.PutObject(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("uploading %s: %w", results.IndexFile, err)
	}

	log.WithFields(logrus.Fields{
		"key":           key,
		"entries_count": len(index.Entries),
	}).Info("index.json generated and uploaded successfully")

	return nil
}
