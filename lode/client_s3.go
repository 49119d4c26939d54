package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// S3Config holds configuration for S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// NewLodeS3Client creates a new Lode client with S3 storage backend.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func NewLodeS3Client(ctx context.Context, cfg Config, s3cfg S3Config) (*LodeClient, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	client, err := NewLodeClientWithFactory(cfg, factory)
	if err != nil {
		return nil, fmt.Errorf("failed to create Lode dataset: %w", err)
	}
	return client, nil
}
