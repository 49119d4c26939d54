package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/inquire/inquire"
)

// NoopPolicy counts rows without persisting them. Used for dry runs,
// where queries execute but nothing is stored.
type NoopPolicy struct {
	mu    sync.Mutex
	stats Stats
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{}
}

// IngestRow counts the row.
func (p *NoopPolicy) IngestRow(_ context.Context, _ QueryRef, _ inquire.Row) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalRows++
	return nil
}

// EndResult counts the result.
func (p *NoopPolicy) EndResult(_ context.Context, _ QueryRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Results++
	return nil
}

// Discard has nothing to drop.
func (p *NoopPolicy) Discard(_ QueryRef) int64 {
	return 0
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.FlushCount++
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}
