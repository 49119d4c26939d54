package lode

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/inquire/metrics"
)

// RunStore persists run-level artifacts: the metrics record and sidecar
// files such as the run manifest.
type RunStore interface {
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error
	PutFile(ctx context.Context, filename string, data []byte) error
}

// Verify LodeClient implements RunStore.
var _ RunStore = (*LodeClient)(nil)

// StubRunStore records run-level writes for testing.
type StubRunStore struct {
	mu      sync.Mutex
	Metrics []metrics.Snapshot
	Files   map[string][]byte
	Err     error
}

// NewStubRunStore creates a new stub run store.
func NewStubRunStore() *StubRunStore {
	return &StubRunStore{Files: make(map[string][]byte)}
}

// WriteMetrics implements RunStore.
func (s *StubRunStore) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Metrics = append(s.Metrics, snap)
	return nil
}

// PutFile implements RunStore.
func (s *StubRunStore) PutFile(_ context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Files[filename] = data
	return nil
}

// Verify StubRunStore implements RunStore.
var _ RunStore = (*StubRunStore)(nil)
