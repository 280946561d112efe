package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uploadMethod    string
	uploadResultDir string
)

var uploadResultsCmd = &cobra.Command{
	Use:   "upload-results",
	Short: "Upload a run directory to remote storage",
	Long:  `Upload a local run directory to S3-compatible storage using the config file settings.`,
	RunE:  runUploadResults,
}

func init() {
	rootCmd.AddCommand(uploadResultsCmd)
	uploadResultsCmd.Flags().StringVar(&uploadMethod, "method", "s3",
		"Upload method (currently only \"s3\")")
	uploadResultsCmd.Flags().StringVar(&uploadResultDir, "result-dir", "",
		"Path to the run directory to upload")

	_ = uploadResultsCmd.MarkFlagRequired("result-dir")
}

func runUploadResults(cmd *cobra.Command, _ []string) error {
	if uploadMethod != "s3" {
		return fmt.Errorf("unsupported method %q (only \"s3\" is supported)", uploadMethod)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s3 := cfg.S3()
	if s3 == nil || !s3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	log.WithField("dir", uploadResultDir).Info("Uploading results")

	if err := uploadRun(cmd.Context(), s3, uploadResultDir); err != nil {
		return err
	}

	log.Info("Upload completed successfully")

	return nil
}
