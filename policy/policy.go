// Package policy defines how exported result rows reach storage.
//
// A Policy receives rows one at a time, per query, in server emission
// order, and decides when to hand batches to a Sink:
//   - strict: every row is written immediately (batch of 1)
//   - buffered: rows accumulate per query and are written in bounded batches
//   - noop: rows are counted and discarded (dry runs)
//
// Policies never drop or reorder rows. A sink error fails the query being
// ingested; the caller decides whether the run continues.
package policy

import (
	"context"
	"fmt"

	"github.com/pithecene-io/inquire/inquire"
)

// Names of the built-in policies.
const (
	NameStrict   = "strict"
	NameBuffered = "buffered"
	NameNoop     = "noop"
)

// QueryRef identifies one query result within a run.
type QueryRef struct {
	// Query is the shared query published name.
	Query string
	// ExecutionID is the backend execution id.
	ExecutionID string
}

func (r QueryRef) String() string {
	return fmt.Sprintf("%s@%s", r.Query, r.ExecutionID)
}

// Batch is a run of consecutive rows of one query result.
type Batch struct {
	Ref QueryRef
	// Offset is the index of the first row within the query result.
	Offset int64
	Rows   []inquire.Row
}

// Policy defines the ingestion policy interface.
type Policy interface {
	// IngestRow accepts the next row of the result identified by ref.
	IngestRow(ctx context.Context, ref QueryRef, row inquire.Row) error

	// EndResult marks the result identified by ref as complete.
	// Buffered rows of that result are written before it returns.
	EndResult(ctx context.Context, ref QueryRef) error

	// Discard drops the unwritten rows of the result identified by ref
	// and returns how many were dropped. Used when the result failed, so
	// a later Flush never persists it.
	Discard(ref QueryRef) int64

	// Flush writes any buffered rows of every result.
	Flush(ctx context.Context) error

	// Close cleans up policy resources.
	Close() error

	// Stats returns an atomic snapshot of policy metrics.
	Stats() Stats
}

// Stats represents policy observability metrics.
type Stats struct {
	// TotalRows is the total number of rows received.
	TotalRows int64
	// RowsPersisted is the number of rows handed to the sink successfully.
	RowsPersisted int64
	// Batches is the number of successful sink writes.
	Batches int64
	// Results is the number of results ended.
	Results int64
	// BufferRows is the number of rows currently buffered.
	BufferRows int64
	// RowsDiscarded is the number of buffered rows dropped by Discard.
	RowsDiscarded int64
	// BufferSize is the current buffer size in bytes (estimated).
	BufferSize int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// Errors is the count of failed sink writes.
	Errors int64
}

// EstimateRowSize returns a rough encoded size of row in bytes.
func EstimateRowSize(row inquire.Row) int64 {
	size := int64(2)
	for _, col := range row.Columns {
		size += int64(len(col)) + 4
		switch v := row.Values[col].(type) {
		case string:
			size += int64(len(v)) + 2
		case nil:
			size += 4
		case map[string]any, []any:
			size += 64
		default:
			size += 8
		}
	}
	return size
}

// New builds the named policy over sink. The noop policy ignores sink.
func New(name string, sink Sink, buffered BufferedConfig) (Policy, error) {
	switch name {
	case NameStrict, "":
		return NewStrictPolicy(sink), nil
	case NameBuffered:
		return NewBufferedPolicy(sink, buffered)
	case NameNoop:
		return NewNoopPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want %s, %s or %s)", name, NameStrict, NameBuffered, NameNoop)
	}
}
