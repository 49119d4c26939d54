package lode

import (
	"context"

	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/policy"
)

// InstrumentedSink wraps a policy.Sink and counts every batch write as
// lode_write_success or lode_write_failure.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteRows delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteRows(ctx context.Context, batch policy.Batch) error {
	err := s.inner.WriteRows(ctx, batch)
	if err != nil {
		s.collector.IncLodeWriteFailure()
	} else {
		s.collector.IncLodeWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedSink implements policy.Sink.
var _ policy.Sink = (*InstrumentedSink)(nil)
