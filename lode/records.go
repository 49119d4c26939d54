package lode

import (
	"strings"
	"time"

	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/policy"
)

// Record kind discriminator values. record_type is the partition key,
// record_kind the field readers switch on.
const (
	RecordKindRow     = "row"
	RecordKindMetrics = "metrics"
)

// runPartition is the query partition value of run-level records
// (metrics, manifest) that belong to no single query.
const runPartition = "_run"

// MetricsRecord is the storage format of a run's metrics snapshot.
type MetricsRecord struct {
	RecordKind string `json:"record_kind"`
	Ts         string `json:"ts"`

	RunsStarted   int64 `json:"runs_started_total"`
	RunsCompleted int64 `json:"runs_completed_total"`
	RunsPartial   int64 `json:"runs_partial_total"`
	RunsFailed    int64 `json:"runs_failed_total"`

	QueriesSelected  int64            `json:"queries_selected_total"`
	QueriesSucceeded int64            `json:"queries_succeeded_total"`
	QueriesFailed    int64            `json:"queries_failed_total"`
	QueriesSkipped   int64            `json:"queries_skipped_total"`
	FailuresByKind   map[string]int64 `json:"failures_by_kind"`

	Submits         int64 `json:"submits_total"`
	Polls           int64 `json:"polls_total"`
	NetworkTimeouts int64 `json:"network_timeouts_total"`
	AuthFailures    int64 `json:"auth_failures_total"`

	RowsReceived  int64 `json:"rows_received_total"`
	RowsPersisted int64 `json:"rows_persisted_total"`
	Batches       int64 `json:"batches_total"`

	LodeWriteSuccess int64 `json:"lode_write_success_total"`
	LodeWriteFailure int64 `json:"lode_write_failure_total"`

	Policy         string `json:"policy"`
	APIVersion     int    `json:"api_version"`
	StorageBackend string `json:"storage_backend"`

	// Partition keys
	LDS        string `json:"lds"`
	Query      string `json:"query"`
	Day        string `json:"day"`
	RunID      string `json:"run_id"`
	RecordType string `json:"record_type"`
}

// PartitionValue turns a published query name into a safe partition value.
// Anything outside [A-Za-z0-9._-] becomes '_'.
func PartitionValue(name string) string {
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// toRowRecordMaps converts a batch to maps for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toRowRecordMaps(batch policy.Batch, cfg Config) []any {
	records := make([]any, 0, len(batch.Rows))
	for i, row := range batch.Rows {
		records = append(records, map[string]any{
			"record_kind":  RecordKindRow,
			"query_name":   batch.Ref.Query,
			"execution_id": batch.Ref.ExecutionID,
			"offset":       batch.Offset + int64(i),
			"columns":      row.Columns,
			"values":       row.Values,
			"lds":          cfg.LDS,
			"query":        PartitionValue(batch.Ref.Query),
			"day":          cfg.Day,
			"run_id":       cfg.RunID,
			"record_type":  RecordKindRow,
		})
	}
	return records
}

// toMetricsRecordMap converts a metrics snapshot to a map for Lode storage.
func toMetricsRecordMap(snap metrics.Snapshot, completedAt time.Time, cfg Config) map[string]any {
	byKind := make(map[string]any, len(snap.FailuresByKind))
	for k, v := range snap.FailuresByKind {
		byKind[k] = v
	}
	return map[string]any{
		"record_kind": RecordKindMetrics,
		"ts":          completedAt.UTC().Format(time.RFC3339Nano),

		"runs_started_total":   snap.RunsStarted,
		"runs_completed_total": snap.RunsCompleted,
		"runs_partial_total":   snap.RunsPartial,
		"runs_failed_total":    snap.RunsFailed,

		"queries_selected_total":  snap.QueriesSelected,
		"queries_succeeded_total": snap.QueriesSucceeded,
		"queries_failed_total":    snap.QueriesFailed,
		"queries_skipped_total":   snap.QueriesSkipped,
		"failures_by_kind":        byKind,

		"submits_total":          snap.Submits,
		"polls_total":            snap.Polls,
		"network_timeouts_total": snap.NetworkTimeouts,
		"auth_failures_total":    snap.AuthFailures,

		"rows_received_total":  snap.RowsReceived,
		"rows_persisted_total": snap.RowsPersisted,
		"batches_total":        snap.Batches,

		"lode_write_success_total": snap.LodeWriteSuccess,
		"lode_write_failure_total": snap.LodeWriteFailure,

		"policy":          snap.Policy,
		"api_version":     snap.APIVersion,
		"storage_backend": snap.StorageBackend,

		"lds":         cfg.LDS,
		"query":       runPartition,
		"day":         cfg.Day,
		"run_id":      cfg.RunID,
		"record_type": RecordKindMetrics,
	}
}
