package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ethpandaops/benchreport/pkg/config"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/sirupsen/logrus"
)

// S3Reader reads uploaded runs back from S3-compatible storage.
type S3Reader struct {
	log    logrus.FieldLogger
	cfg    *config.S3UploadConfig
	client *s3.Client
}

// NewS3Reader creates a new S3Reader from the given configuration.
func NewS3Reader(
	log logrus.FieldLogger,
	cfg *config.S3UploadConfig,
) *S3Reader {
	return &S3Reader{
		log:    log.WithField("component", "s3-reader"),
		cfg:    cfg,
		client: newS3Client(cfg),
	}
}

// ListRuns returns the IDs of the runs uploaded under the configured prefix,
// sorted.
func (r *S3Reader) ListRuns(ctx context.Context) ([]string, error) {
	prefix := runsPrefix(r.cfg)

	prefixes, err := r.listPrefixes(ctx, prefix)
	if err != nil {
		return nil, err
	}

	runs := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		runs = append(runs, runIDFromPrefix(prefix, p))
	}

	sort.Strings(runs)

	r.log.WithField("runs", len(runs)).Debug("Listed remote runs")

	return runs, nil
}

// FetchRunResult downloads and decodes the result.json of a run. It
// returns (nil, nil) when the run has no result document.
func (r *S3Reader) FetchRunResult(ctx context.Context, runID string) (*results.RunResult, error) {
	data, err := r.getObject(ctx, runsPrefix(r.cfg)+runID+"/"+results.ResultFile)
	if err != nil {
		return nil, err
	}

	if data == nil {
		return nil, nil
	}

	var rr results.RunResult
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, fmt.Errorf("parsing %s of %s: %w", results.ResultFile, runID, err)
	}

	return &rr, nil
}

// PutObject uploads data to key under the configured bucket.
func (r *S3Reader) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object %q: %w", key, err)
	}

	return nil
}

// IndexKey returns the key of the run index next to the uploaded runs.
func (r *S3Reader) IndexKey() string {
	return runsPrefix(r.cfg) + results.IndexFile
}

// listPrefixes lists immediate "subdirectory" prefixes under prefix.
func (r *S3Reader) listPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.cfg.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing prefixes under %q: %w", prefix, err)
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix != nil {
				prefixes = append(prefixes, *cp.Prefix)
			}
		}
	}

	return prefixes, nil
}

// getObject returns the contents of key, or (nil, nil) if it does not exist.
func (r *S3Reader) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting object %q: %w", key, err)
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %w", key, err)
	}

	return data, nil
}

// runIDFromPrefix strips the runs prefix and trailing slash.
func runIDFromPrefix(runsPrefix, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(prefix, runsPrefix), "/")
}

// isS3NotFound returns true if the error indicates the object does not exist.
func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	// Some S3-compatible implementations return a generic error with
	// "NoSuchKey" in the message rather than the typed error.
	return strings.Contains(err.Error(), "NoSuchKey")
}
