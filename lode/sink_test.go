package lode

import (
	"errors"
	"testing"

	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/policy"
)

func TestSink_DelegatesToClient(t *testing.T) {
	client := NewStubClient()
	sink := NewSink(client)

	batch := testBatch("Q", "e1", 0, 1, 2)
	if err := sink.WriteRows(t.Context(), batch); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	if len(client.Batches) != 1 || len(client.Batches[0].Rows) != 2 {
		t.Errorf("unexpected batches: %+v", client.Batches)
	}
	if !client.Closed {
		t.Error("expected client closed")
	}
}

func TestSink_WithPolicy(t *testing.T) {
	client := NewStubClient()
	pol := policy.NewStrictPolicy(NewSink(client))

	batch := testBatch("Q", "e1", 0, 1, 2, 3)
	for _, row := range batch.Rows {
		if err := pol.IngestRow(t.Context(), batch.Ref, row); err != nil {
			t.Fatal(err)
		}
	}
	if len(client.Batches) != 3 {
		t.Fatalf("expected 3 single-row writes, got %d", len(client.Batches))
	}
	for i, b := range client.Batches {
		if b.Offset != int64(i) {
			t.Errorf("batch %d offset = %d", i, b.Offset)
		}
	}
}

func TestInstrumentedSink_CountsWrites(t *testing.T) {
	collector := metrics.NewCollector("strict", 1, "fs", "run-1", "web")
	inner := policy.NewStubSink()
	sink := NewInstrumentedSink(inner, collector)

	if err := sink.WriteRows(t.Context(), testBatch("Q", "e", 0, 1)); err != nil {
		t.Fatal(err)
	}
	inner.SetError(errors.New("throttled"))
	if err := sink.WriteRows(t.Context(), testBatch("Q", "e", 1, 2)); err == nil {
		t.Fatal("expected error")
	}

	snap := collector.Snapshot()
	if snap.LodeWriteSuccess != 1 || snap.LodeWriteFailure != 1 {
		t.Errorf("success=%d failure=%d, want 1/1", snap.LodeWriteSuccess, snap.LodeWriteFailure)
	}

	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.Stats().Closed {
		t.Error("expected inner sink closed")
	}
}

func TestInstrumentedSink_NilCollector(t *testing.T) {
	sink := NewInstrumentedSink(policy.NewStubSink(), nil)
	if err := sink.WriteRows(t.Context(), testBatch("Q", "e", 0, 1)); err != nil {
		t.Fatal(err)
	}
}

func TestStubRunStore(t *testing.T) {
	s := NewStubRunStore()
	if err := s.PutFile(t.Context(), "manifest.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if string(s.Files["manifest.json"]) != "{}" {
		t.Errorf("files = %v", s.Files)
	}
	s.Err = errors.New("down")
	if err := s.WriteMetrics(t.Context(), metrics.Snapshot{}, mustTime(t, "2026-03-01T00:00:00Z")); err == nil {
		t.Error("expected configured error")
	}
}
