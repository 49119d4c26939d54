package policy

import (
	"context"
	"sync"
)

// Sink abstracts persistence for policies.
// Implementations may write to storage, forward to a queue, or stub for testing.
type Sink interface {
	// WriteRows persists a batch of rows of one query result.
	// Must preserve ordering within the batch.
	// Returns error on failure; caller decides whether to retry or fail.
	WriteRows(ctx context.Context, batch Batch) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a test sink that accepts writes without persisting.
// Tracks write statistics for test assertions.
type StubSink struct {
	mu sync.Mutex

	// RowsWritten is the total count of rows written.
	RowsWritten int64
	// Batches records every successful WriteRows call in order.
	Batches []Batch
	// Closed indicates whether Close was called.
	Closed bool

	// ErrorOnWrite, if non-nil, is returned by WriteRows.
	ErrorOnWrite error
}

// NewStubSink creates a new stub sink for testing.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteRows records the batch without persisting.
func (s *StubSink) WriteRows(_ context.Context, batch Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.RowsWritten += int64(len(batch.Rows))
	s.Batches = append(s.Batches, batch)
	return nil
}

// SetError sets the error returned by subsequent writes.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	s.ErrorOnWrite = err
	s.mu.Unlock()
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// Stats returns a snapshot of sink statistics.
func (s *StubSink) Stats() StubSinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StubSinkStats{
		RowsWritten: s.RowsWritten,
		Batches:     int64(len(s.Batches)),
		Closed:      s.Closed,
	}
}

// Written returns a copy of the recorded batches.
func (s *StubSink) Written() []Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Batch(nil), s.Batches...)
}

// StubSinkStats is a snapshot of StubSink statistics.
type StubSinkStats struct {
	RowsWritten int64
	Batches     int64
	Closed      bool
}
