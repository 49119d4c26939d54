package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/pithecene-io/inquire/inquire"
	"github.com/pithecene-io/inquire/log"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferRows is the maximum number of rows buffered per query result.
	// Zero means no limit (use MaxBufferBytes instead).
	MaxBufferRows int

	// MaxBufferBytes is the maximum buffer size per query result in bytes
	// (estimated). Zero means no limit (use MaxBufferRows instead).
	// At least one limit must be set.
	MaxBufferBytes int64

	// Logger is an optional logger for policy observability.
	// If nil, no logging is emitted.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferRows:  1000,
		MaxBufferBytes: 10 * 1024 * 1024, // 10 MB
	}
}

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferRows or MaxBufferBytes must be set")

// resultBuffer holds the pending rows of one query result.
type resultBuffer struct {
	rows   []inquire.Row
	bytes  int64
	offset int64 // index of rows[0] within the result
}

// BufferedPolicy implements buffered persistence.
//
//   - One bounded buffer per query result; results never share a batch
//   - A full buffer is written before the next row is accepted
//   - EndResult writes the remainder of that result
//   - On a failed write the buffer is kept: rows may be written twice
//     on retry but are never lost
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu      sync.Mutex // guards buffers and stats
	buffers map[QueryRef]*resultBuffer
	stats   Stats

	// writeMu serializes sink writes so batches of one result stay ordered.
	writeMu sync.Mutex
}

// NewBufferedPolicy creates a new buffered policy.
// Returns error if config is invalid.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferRows <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:    sink,
		config:  config,
		logger:  config.Logger,
		buffers: make(map[QueryRef]*resultBuffer),
	}, nil
}

// IngestRow buffers the row, writing the result's buffer first when the
// row would not fit.
func (p *BufferedPolicy) IngestRow(ctx context.Context, ref QueryRef, row inquire.Row) error {
	size := EstimateRowSize(row)

	p.mu.Lock()
	p.stats.TotalRows++
	buf := p.buffers[ref]
	if buf == nil {
		buf = &resultBuffer{}
		p.buffers[ref] = buf
	}
	full := !p.hasRoom(buf, size)
	p.mu.Unlock()

	if full {
		if err := p.flushResult(ctx, ref); err != nil {
			p.mu.Lock()
			p.stats.TotalRows--
			p.mu.Unlock()
			return err
		}
	}

	p.mu.Lock()
	buf = p.buffers[ref]
	buf.rows = append(buf.rows, row)
	buf.bytes += size
	p.stats.BufferRows++
	p.stats.BufferSize += size
	p.mu.Unlock()
	return nil
}

// hasRoom reports whether buf accepts a row of size bytes. An empty buffer
// always accepts one row so oversized rows still make progress.
// Caller must hold mu.
func (p *BufferedPolicy) hasRoom(buf *resultBuffer, size int64) bool {
	if len(buf.rows) == 0 {
		return true
	}
	if p.config.MaxBufferRows > 0 && len(buf.rows) >= p.config.MaxBufferRows {
		return false
	}
	if p.config.MaxBufferBytes > 0 && buf.bytes+size > p.config.MaxBufferBytes {
		return false
	}
	return true
}

// EndResult writes the remaining rows of the result and releases its buffer.
func (p *BufferedPolicy) EndResult(ctx context.Context, ref QueryRef) error {
	if err := p.flushResult(ctx, ref); err != nil {
		return err
	}
	p.mu.Lock()
	delete(p.buffers, ref)
	p.stats.Results++
	p.mu.Unlock()
	return nil
}

// Discard drops the buffer of the result without writing it.
func (p *BufferedPolicy) Discard(ref QueryRef) int64 {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	buf := p.buffers[ref]
	if buf == nil {
		return 0
	}
	delete(p.buffers, ref)
	n := int64(len(buf.rows))
	p.stats.BufferRows -= n
	p.stats.BufferSize -= buf.bytes
	p.stats.RowsDiscarded += n
	return n
}

// Flush writes every buffered result. It attempts all results and returns
// the first error.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	p.stats.FlushCount++
	refs := make([]QueryRef, 0, len(p.buffers))
	for ref := range p.buffers {
		refs = append(refs, ref)
	}
	p.mu.Unlock()

	var firstErr error
	for _, ref := range refs {
		if err := p.flushResult(ctx, ref); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// flushResult writes the buffered rows of one result.
func (p *BufferedPolicy) flushResult(ctx context.Context, ref QueryRef) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	buf := p.buffers[ref]
	if buf == nil || len(buf.rows) == 0 {
		p.mu.Unlock()
		return nil
	}
	batch := Batch{Ref: ref, Offset: buf.offset, Rows: buf.rows}
	p.mu.Unlock()

	if err := p.sink.WriteRows(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		p.logFlushFailure(ref, len(batch.Rows), err)
		// Keep the buffer intact - prefer duplicates over loss
		return err
	}

	p.mu.Lock()
	n := int64(len(batch.Rows))
	p.stats.RowsPersisted += n
	p.stats.Batches++
	p.stats.BufferRows -= n
	p.stats.BufferSize -= buf.bytes
	buf.offset += n
	buf.rows = nil
	buf.bytes = 0
	p.mu.Unlock()
	return nil
}

// Close flushes remaining rows and closes the sink.
func (p *BufferedPolicy) Close() error {
	// Best-effort flush on close
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}

// logFlushFailure logs a failed batch write.
func (p *BufferedPolicy) logFlushFailure(ref QueryRef, rows int, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"query":        ref.Query,
		"execution_id": ref.ExecutionID,
		"rows":         rows,
		"error":        err.Error(),
		"policy":       NameBuffered,
	})
}
