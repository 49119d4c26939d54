package reader

import (
	"errors"

	"github.com/pithecene-io/inquire/lode"
)

// ParseMetricsRecord converts a stored metrics record into its view.
// Records missing a dimension the write path always sets are rejected
// as corrupt.
func ParseMetricsRecord(record *lode.MetricsRecord) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &MetricsSnapshot{
		Ts:    record.Ts,
		RunID: record.RunID,
		LDS:   record.LDS,
		Day:   record.Day,

		RunsStarted:   record.RunsStarted,
		RunsCompleted: record.RunsCompleted,
		RunsPartial:   record.RunsPartial,
		RunsFailed:    record.RunsFailed,

		QueriesSelected:  record.QueriesSelected,
		QueriesSucceeded: record.QueriesSucceeded,
		QueriesFailed:    record.QueriesFailed,
		QueriesSkipped:   record.QueriesSkipped,
		FailuresByKind:   record.FailuresByKind,

		Submits:         record.Submits,
		Polls:           record.Polls,
		NetworkTimeouts: record.NetworkTimeouts,
		AuthFailures:    record.AuthFailures,

		RowsReceived:  record.RowsReceived,
		RowsPersisted: record.RowsPersisted,
		Batches:       record.Batches,

		LodeWriteSuccess: record.LodeWriteSuccess,
		LodeWriteFailure: record.LodeWriteFailure,

		Policy:         record.Policy,
		APIVersion:     record.APIVersion,
		StorageBackend: record.StorageBackend,
	}

	switch {
	case snap.Ts == "":
		return nil, errors.New("metrics record missing required field: ts")
	case snap.RunID == "":
		return nil, errors.New("metrics record missing required field: run_id")
	case snap.LDS == "":
		return nil, errors.New("metrics record missing required field: lds")
	case snap.Policy == "":
		return nil, errors.New("metrics record missing required field: policy")
	case snap.StorageBackend == "":
		return nil, errors.New("metrics record missing required field: storage_backend")
	}

	return snap, nil
}
