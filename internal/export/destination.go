package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/catalog/internal/blob"
)

// ContentType is the media type of an export payload.
const ContentType = "application/x-ndjson"

// S3Destination writes JSONL data to an S3-compatible bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	client, err := blob.NewS3Client(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	return &S3Destination{client: client, bucket: bucket, key: key}, nil
}

func (d *S3Destination) Name() string {
	return "s3://" + d.bucket + "/" + d.key
}

// Write uploads data to S3 as the configured object key.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// FileDestination replaces a local file with each payload. The write goes
// through a temporary file in the same directory so readers never see a
// partial export.
type FileDestination struct {
	Path string
}

func (d *FileDestination) Name() string {
	return d.Path
}

func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.jsonl")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}

// WriterDestination copies each payload to an io.Writer such as stdout.
type WriterDestination struct {
	W     io.Writer
	Label string
}

func (d *WriterDestination) Name() string {
	if d.Label == "" {
		return "writer"
	}
	return d.Label
}

func (d *WriterDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.W.Write(data); err != nil {
		return fmt.Errorf("write export to %s: %w", d.Name(), err)
	}
	return nil
}
