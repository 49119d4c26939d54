// Package types defines core domain types shared by the export runtime,
// storage and CLI.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// RunMeta contains export run identity and lineage metadata.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// LDS is the data source the run exports from.
	LDS string
	// APIVersion is the backend API version the run speaks.
	APIVersion int
	// ParentRunID links a rerun to the run it repeats. Nil for initial runs.
	ParentRunID *string
	// Attempt is the attempt number. Starts at 1 for initial runs.
	Attempt int
}

// Validate validates lineage rules:
//   - run_id and lds are non-empty
//   - attempt >= 1
//   - attempt == 1 => parent_run_id must be nil (initial run)
//   - attempt > 1 => parent_run_id must be present (rerun)
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}

	if r.LDS == "" {
		return errors.New("lds must be non-empty")
	}

	if r.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", r.Attempt)
	}

	if r.Attempt == 1 && r.ParentRunID != nil {
		return errors.New("initial run (attempt=1) must not have parent_run_id")
	}

	if r.Attempt > 1 && r.ParentRunID == nil {
		return fmt.Errorf("rerun (attempt=%d) must have parent_run_id", r.Attempt)
	}

	return nil
}

// OutcomeStatus represents the final status of an export run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every selected query was exported.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomePartial indicates at least one query failed and the rest were exported.
	OutcomePartial OutcomeStatus = "partial"
	// OutcomeFailed indicates the run could not start or no query succeeded
	// (login, catalog or storage failure).
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeCanceled indicates the run was interrupted.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// RunOutcome represents the final outcome of a run.
type RunOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus
	// Message is a human-readable description.
	Message string
	// ErrorKind is the classified error kind of the run-level failure, if any.
	ErrorKind string
}

// QueryStatus is the outcome of one shared query within a run.
type QueryStatus string

const (
	// QuerySuccess indicates the query finished and its rows were stored.
	QuerySuccess QueryStatus = "success"
	// QueryFailed indicates the query failed; the run continued.
	QueryFailed QueryStatus = "failed"
	// QuerySkipped indicates the query was excluded by the selection rules.
	QuerySkipped QueryStatus = "skipped"
)
