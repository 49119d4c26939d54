package lode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// QueryLatestMetrics finds and reads the most recent metrics record.
// Filters by runID and lds if non-empty.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, runID, lds string) (*MetricsRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	// Snapshots are ordered by creation time; walk newest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		if !isMetricsSnapshot(snap) ||
			!snapshotMatchesFilter(snap, "run_id", runID) ||
			!snapshotMatchesFilter(snap, "lds", lds) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}

		// Path filtering is coarse; record fields are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindMetrics {
				continue
			}
			if runID != "" && toString(record["run_id"]) != runID {
				continue
			}
			if lds != "" && toString(record["lds"]) != lds {
				continue
			}
			return decodeMetricsRecord(record)
		}
	}

	return nil, ErrNoMetricsFound
}

// decodeMetricsRecord maps a raw record onto MetricsRecord. Counters read
// back as float64 and are converted by the JSON round-trip.
func decodeMetricsRecord(record map[string]any) (*MetricsRecord, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode metrics record: %w", err)
	}
	var m MetricsRecord
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metrics record: %w", err)
	}
	return &m, nil
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
