package transcript

import (
	"time"

	"github.com/pithecene-io/inquire/inquire"
)

// Record is one recorded submit or poll exchange.
type Record struct {
	Seq         int64  `msgpack:"seq" json:"seq"`
	RunID       string `msgpack:"run_id" json:"run_id"`
	Op          string `msgpack:"op" json:"op"`
	LDS         string `msgpack:"lds" json:"lds"`
	Query       string `msgpack:"query" json:"query"`
	ExecutionID string `msgpack:"execution_id,omitempty" json:"execution_id,omitempty"`
	Status      int    `msgpack:"status" json:"status"`
	Kind        string `msgpack:"kind,omitempty" json:"kind,omitempty"`
	Body        []byte `msgpack:"body,omitempty" json:"-"`
	StartedAt   string `msgpack:"started_at" json:"started_at"`
	DurationMs  int64  `msgpack:"duration_ms" json:"duration_ms"`
	Error       string `msgpack:"error,omitempty" json:"error,omitempty"`
	ErrorKind   string `msgpack:"error_kind,omitempty" json:"error_kind,omitempty"`
}

// FromExchange converts an observed exchange into a record.
func FromExchange(ex inquire.Exchange, runID string, seq int64) Record {
	rec := Record{
		Seq:         seq,
		RunID:       runID,
		Op:          ex.Op,
		LDS:         ex.DataSource,
		Query:       ex.Query,
		ExecutionID: ex.ExecutionID,
		Status:      ex.Status,
		Kind:        string(ex.Kind),
		Body:        ex.Body,
		StartedAt:   ex.Started.UTC().Format(time.RFC3339Nano),
		DurationMs:  ex.Duration.Milliseconds(),
	}
	if ex.Err != nil {
		rec.Error = ex.Err.Error()
		rec.ErrorKind = inquire.KindName(ex.Err)
	}
	return rec
}
