package lode

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"lds", "query", "day", "run_id", "record_type"}

// newDataset opens the dataset with the inquire layout and codec.
func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewReadDataset creates a Lode Dataset for reading.
// Uses the same codec and layout as the write path to ensure compatibility.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return newDataset(dataset, factory)
}

// NewReadDatasetFS creates a read Dataset with filesystem storage.
func NewReadDatasetFS(dataset, rootPath string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(rootPath))
}

// NewReadDatasetS3 creates a read Dataset with S3 storage.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func NewReadDatasetS3(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := newS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// newS3Factory builds a Lode store factory over an S3 client.
func newS3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	s3Client := s3.NewFromConfig(awsConfig, s3Opts...)

	return func() (lode.Store, error) {
		return lodes3.New(s3Client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}, nil
}

// isMetricsSnapshot checks if a snapshot contains metrics data
// by examining file paths for the record_type=metrics partition.
func isMetricsSnapshot(snap *lode.Snapshot) bool {
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, "record_type", RecordKindMetrics) {
			return true
		}
	}
	return false
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.Snapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so run_id=run-1 never matches run_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
