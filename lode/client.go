package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/policy"
)

// ErrInvalidFilename is returned by PutFile for names with path elements.
var ErrInvalidFilename = errors.New("invalid sidecar filename")

// LodeClient is a real Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error

	// mu serializes dataset writes; each write is one snapshot.
	mu sync.Mutex
}

// NewLodeClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a new Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}, nil
}

// Config returns the client's partition configuration.
func (c *LodeClient) Config() Config {
	return c.config
}

// WriteRows writes a batch of result rows as one snapshot.
// Each record carries its offset within the query result, so a batch
// written twice after a retry can be deduplicated by readers.
func (c *LodeClient) WriteRows(ctx context.Context, batch policy.Batch) error {
	if len(batch.Rows) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, toRowRecordMaps(batch, c.config), lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.partitionPath(PartitionValue(batch.Ref.Query), RecordKindRow))
	}
	return nil
}

// WriteMetrics writes the run's metrics snapshot as one record.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := toMetricsRecordMap(snap, completedAt, c.config)
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.partitionPath(runPartition, RecordKindMetrics))
	}
	return nil
}

// PutFile writes a run-level sidecar file (e.g. manifest.json) next to the
// run's partitions, bypassing Dataset snapshots.
func (c *LodeClient) PutFile(ctx context.Context, filename string, data []byte) error {
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	if c.storeErr != nil {
		return WrapInitError(c.storeErr, c.config.Dataset)
	}

	path := c.FilePath(filename)
	if err := c.store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// FilePath is the store path of a run-level sidecar file.
// Format: datasets/<dataset>/partitions/lds=<l>/query=_run/day=<d>/run_id=<r>/files/<filename>
func (c *LodeClient) FilePath(filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/lds=%s/query=%s/day=%s/run_id=%s/files/%s",
		c.config.Dataset,
		c.config.LDS,
		runPartition,
		c.config.Day,
		c.config.RunID,
		filename,
	)
}

// partitionPath renders the partition a record lands in, for error context.
func (c *LodeClient) partitionPath(query, recordType string) string {
	return fmt.Sprintf("%s/lds=%s/query=%s/day=%s/run_id=%s/record_type=%s",
		c.config.Dataset, c.config.LDS, query, c.config.Day, c.config.RunID, recordType)
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
