package policy_test

import (
	"errors"
	"testing"

	"github.com/pithecene-io/inquire/policy"
)

// helper to create policy or fail test
func mustNewBufferedPolicy(t *testing.T, sink policy.Sink, config policy.BufferedConfig) *policy.BufferedPolicy {
	t.Helper()
	pol, err := policy.NewBufferedPolicy(sink, config)
	if err != nil {
		t.Fatalf("NewBufferedPolicy failed: %v", err)
	}
	return pol
}

func TestBufferedPolicy_InvalidConfig(t *testing.T) {
	_, err := policy.NewBufferedPolicy(policy.NewStubSink(), policy.BufferedConfig{})
	if !errors.Is(err, policy.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBufferedPolicy_BuffersRows(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 10})
	ref := policy.QueryRef{Query: "Q", ExecutionID: "e"}

	for i := range 3 {
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if sink.Stats().RowsWritten != 0 {
		t.Errorf("expected 0 rows written before end, got %d", sink.Stats().RowsWritten)
	}
	stats := pol.Stats()
	if stats.TotalRows != 3 || stats.RowsPersisted != 0 || stats.BufferRows != 3 || stats.BufferSize == 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBufferedPolicy_EndResultWritesBatch(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 10})
	ref := policy.QueryRef{Query: "Q", ExecutionID: "e"}

	for i := range 5 {
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pol.EndResult(t.Context(), ref); err != nil {
		t.Fatal(err)
	}

	batches := sink.Written()
	if len(batches) != 1 || len(batches[0].Rows) != 5 {
		t.Fatalf("expected one batch of 5, got %+v", batches)
	}
	for i, r := range batches[0].Rows {
		if r.Values["n"] != i {
			t.Errorf("row %d out of order: %v", i, r.Values["n"])
		}
	}
	stats := pol.Stats()
	if stats.RowsPersisted != 5 || stats.BufferRows != 0 || stats.BufferSize != 0 || stats.Results != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBufferedPolicy_FullBufferWritesInBatches(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 2})
	ref := policy.QueryRef{Query: "Q", ExecutionID: "e"}

	for i := range 5 {
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pol.EndResult(t.Context(), ref); err != nil {
		t.Fatal(err)
	}

	batches := sink.Written()
	wantSizes := []int{2, 2, 1}
	wantOffsets := []int64{0, 2, 4}
	if len(batches) != len(wantSizes) {
		t.Fatalf("expected %d batches, got %d", len(wantSizes), len(batches))
	}
	for i, b := range batches {
		if len(b.Rows) != wantSizes[i] || b.Offset != wantOffsets[i] {
			t.Errorf("batch %d: size=%d offset=%d", i, len(b.Rows), b.Offset)
		}
	}
}

func TestBufferedPolicy_ByteLimit(t *testing.T) {
	sink := policy.NewStubSink()
	size := policy.EstimateRowSize(row(1))
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferBytes: size*2 + 1})
	ref := policy.QueryRef{Query: "Q"}

	for i := range 3 {
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	if got := sink.Stats().Batches; got != 1 {
		t.Errorf("expected byte limit to trigger 1 write, got %d", got)
	}
}

func TestBufferedPolicy_OversizedRowStillAccepted(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferBytes: 1})
	ref := policy.QueryRef{Query: "Q"}

	for i := range 2 {
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pol.EndResult(t.Context(), ref); err != nil {
		t.Fatal(err)
	}
	if sink.Stats().RowsWritten != 2 || sink.Stats().Batches != 2 {
		t.Errorf("expected one row per batch, got %+v", sink.Stats())
	}
}

func TestBufferedPolicy_ResultsDoNotShareBatches(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.DefaultBufferedConfig())
	a := policy.QueryRef{Query: "A", ExecutionID: "1"}
	b := policy.QueryRef{Query: "B", ExecutionID: "2"}

	for i := range 4 {
		ref := a
		if i%2 == 1 {
			ref = b
		}
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}

	batches := sink.Written()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	for _, batch := range batches {
		if len(batch.Rows) != 2 {
			t.Errorf("batch for %s has %d rows", batch.Ref, len(batch.Rows))
		}
	}
	if pol.Stats().FlushCount != 1 {
		t.Errorf("expected FlushCount=1, got %d", pol.Stats().FlushCount)
	}
}

func TestBufferedPolicy_FailedWriteKeepsBuffer(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 10})
	ref := policy.QueryRef{Query: "Q"}

	for i := range 3 {
		if err := pol.IngestRow(t.Context(), ref, row(i)); err != nil {
			t.Fatal(err)
		}
	}

	sinkErr := errors.New("throttled")
	sink.SetError(sinkErr)
	if err := pol.EndResult(t.Context(), ref); !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if stats := pol.Stats(); stats.BufferRows != 3 || stats.Errors != 1 {
		t.Errorf("expected buffer kept after failure, got %+v", stats)
	}

	sink.SetError(nil)
	if err := pol.EndResult(t.Context(), ref); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sink.Stats().RowsWritten != 3 {
		t.Errorf("expected 3 rows after retry, got %d", sink.Stats().RowsWritten)
	}
}

func TestBufferedPolicy_FullBufferWriteFailureRejectsRow(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 1})
	ref := policy.QueryRef{Query: "Q"}

	if err := pol.IngestRow(t.Context(), ref, row(0)); err != nil {
		t.Fatal(err)
	}
	sink.SetError(errors.New("down"))
	if err := pol.IngestRow(t.Context(), ref, row(1)); err == nil {
		t.Fatal("expected error when full buffer cannot be written")
	}
	if got := pol.Stats().TotalRows; got != 1 {
		t.Errorf("rejected row must not be counted, TotalRows=%d", got)
	}
}

func TestBufferedPolicy_CloseFlushes(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 10})

	if err := pol.IngestRow(t.Context(), policy.QueryRef{Query: "Q"}, row(0)); err != nil {
		t.Fatal(err)
	}
	if err := pol.Close(); err != nil {
		t.Fatal(err)
	}
	if s := sink.Stats(); s.RowsWritten != 1 || !s.Closed {
		t.Errorf("expected flushed and closed sink, got %+v", s)
	}
}

func TestBufferedPolicy_DiscardDropsResult(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewBufferedPolicy(t, sink, policy.BufferedConfig{MaxBufferRows: 10})
	a := policy.QueryRef{Query: "A"}
	b := policy.QueryRef{Query: "B"}

	for i := range 3 {
		if err := pol.IngestRow(t.Context(), a, row(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pol.IngestRow(t.Context(), b, row(9)); err != nil {
		t.Fatal(err)
	}

	sink.SetError(errors.New("throttled"))
	if err := pol.EndResult(t.Context(), a); err == nil {
		t.Fatal("expected end result to fail")
	}
	sink.SetError(nil)

	if n := pol.Discard(a); n != 3 {
		t.Errorf("discarded %d rows, want 3", n)
	}
	if n := pol.Discard(a); n != 0 {
		t.Errorf("second discard dropped %d rows", n)
	}
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatal(err)
	}

	for _, batch := range sink.Written() {
		if batch.Ref == a {
			t.Errorf("discarded result was written: %+v", batch)
		}
	}
	stats := pol.Stats()
	if stats.RowsDiscarded != 3 || stats.RowsPersisted != 1 || stats.BufferRows != 0 || stats.BufferSize != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
