// Package lode persists exported result rows, run manifests and run metrics
// in a Lode dataset.
//
// Rows are stored as JSONL records under a Hive layout keyed by
// lds/query/day/run_id/record_type, so one query result of one run always
// lands in its own partition.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/inquire/policy"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "inquire"

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds Lode sink configuration.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// LDS is the partition key for the data source.
	LDS string
	// Day is the partition key derived from run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for the run identifier.
	RunID string
	// Policy is the ingestion policy name, stored with metrics records.
	Policy string
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteRows writes one batch of result rows. Must preserve row order.
	WriteRows(ctx context.Context, batch policy.Batch) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed implementation of policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteRows implements policy.Sink.
func (s *Sink) WriteRows(ctx context.Context, batch policy.Batch) error {
	return s.client.WriteRows(ctx, batch)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Verify Sink implements policy.Sink.
var _ policy.Sink = (*Sink)(nil)

// StubClient is a test client that accepts writes without persisting.
type StubClient struct {
	mu      sync.Mutex
	Batches []policy.Batch
	Closed  bool
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteRows implements Client.
func (c *StubClient) WriteRows(_ context.Context, batch policy.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Batches = append(c.Batches, batch)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
