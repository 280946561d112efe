// Package upload publishes run directories to S3-compatible storage and
// reads published runs back.
package upload

import "context"

// Uploader publishes a local run directory.
type Uploader interface {
	// Preflight writes a probe object so a misconfigured bucket fails the
	// run before any result file is sent.
	Preflight(ctx context.Context) error

	// Upload sends every file below runDir, keyed by the run ID taken from
	// the directory name.
	Upload(ctx context.Context, runDir string) error
}
