package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/inquire/inquire"
)

// StrictPolicy implements synchronous, unbuffered persistence.
//
//   - No buffering: each row is written immediately
//   - Backpressure: caller blocks on sink latency
//   - Sink errors fail the query
type StrictPolicy struct {
	sink Sink

	mu      sync.Mutex
	stats   Stats
	offsets map[QueryRef]int64
}

// NewStrictPolicy creates a new strict policy writing to the given sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{
		sink:    sink,
		offsets: make(map[QueryRef]int64),
	}
}

// IngestRow writes the row immediately to the sink.
func (p *StrictPolicy) IngestRow(ctx context.Context, ref QueryRef, row inquire.Row) error {
	p.mu.Lock()
	p.stats.TotalRows++
	offset := p.offsets[ref]
	p.mu.Unlock()

	// Write immediately (batch of 1)
	if err := p.sink.WriteRows(ctx, Batch{Ref: ref, Offset: offset, Rows: []inquire.Row{row}}); err != nil {
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.stats.RowsPersisted++
	p.stats.Batches++
	p.offsets[ref] = offset + 1
	p.mu.Unlock()

	return nil
}

// EndResult forgets the result's offset. Nothing is buffered.
func (p *StrictPolicy) EndResult(_ context.Context, ref QueryRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.offsets, ref)
	p.stats.Results++
	return nil
}

// Discard forgets the result's offset. Rows already written stay written.
func (p *StrictPolicy) Discard(ref QueryRef) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.offsets, ref)
	return 0
}

// Flush is a no-op for strict policy (nothing is buffered).
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.FlushCount++
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}
