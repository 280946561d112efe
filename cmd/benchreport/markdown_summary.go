package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/spf13/cobra"
)

var generateMarkdownSummaryCmd = &cobra.Command{
	Use:   "generate-markdown-summary",
	Short: "Generate a markdown summary from a run directory",
	Long:  `Reads result.json from a run directory and produces a markdown summary file.`,
	RunE:  runGenerateMarkdownSummary,
}

var (
	runToMdRunDir string
	runToMdOutput string
)

const maxMarkdownChars = 65000

func init() {
	rootCmd.AddCommand(generateMarkdownSummaryCmd)
	generateMarkdownSummaryCmd.Flags().StringVar(&runToMdRunDir, "run-dir", "",
		"Path to the run directory")
	generateMarkdownSummaryCmd.Flags().StringVar(&runToMdOutput, "output", "",
		"Output file path (default: summary-<run_id>.md)")

	if err := generateMarkdownSummaryCmd.MarkFlagRequired("run-dir"); err != nil {
		panic(err)
	}
}

func runGenerateMarkdownSummary(_ *cobra.Command, _ []string) error {
	log.WithField("run_dir", runToMdRunDir).
		Info("Generating markdown summary")

	md, err := results.GenerateMarkdown(runToMdRunDir, maxMarkdownChars)
	if err != nil {
		return fmt.Errorf("generating markdown: %w", err)
	}

	output := runToMdOutput
	if output == "" {
		output = fmt.Sprintf("summary-%s.md", filepath.Base(runToMdRunDir))
	}

	if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	log.WithField("output", output).
		Info("Markdown summary generated successfully")

	return nil
}
