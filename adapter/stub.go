package adapter

import (
	"context"
	"sync"
)

// StubAdapter records published events for testing.
type StubAdapter struct {
	mu     sync.Mutex
	Events []ExportCompletedEvent
	Err    error
	Closed bool
}

// NewStubAdapter creates a new stub adapter.
func NewStubAdapter() *StubAdapter {
	return &StubAdapter{}
}

// Publish implements Adapter.
func (s *StubAdapter) Publish(_ context.Context, event *ExportCompletedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Events = append(s.Events, *event)
	return nil
}

// Published returns a copy of the recorded events.
func (s *StubAdapter) Published() []ExportCompletedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ExportCompletedEvent(nil), s.Events...)
}

// Close implements Adapter.
func (s *StubAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Verify StubAdapter implements Adapter.
var _ Adapter = (*StubAdapter)(nil)
