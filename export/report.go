package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/inquire/metrics"
	"github.com/pithecene-io/inquire/types"
)

// ManifestFile is the sidecar name of the run report in storage.
const ManifestFile = "manifest.json"

// RunReport is the structured JSON report of a run. It is written by
// --report and stored as the run manifest.
type RunReport struct {
	RunID       string              `json:"run_id"`
	ParentRunID string              `json:"parent_run_id,omitempty"`
	Attempt     int                 `json:"attempt"`
	LDS         string              `json:"lds"`
	APIVersion  int                 `json:"api_version"`
	Outcome     types.OutcomeStatus `json:"outcome"`
	Message     string              `json:"message"`
	ErrorKind   string              `json:"error_kind,omitempty"`
	ExitCode    int                 `json:"exit_code"`
	StartedAt   string              `json:"started_at"`
	DurationMs  int64               `json:"duration_ms"`

	Selected  int   `json:"selected"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Skipped   int   `json:"skipped"`
	Rows      int64 `json:"rows"`

	Queries []QueryResult     `json:"queries"`
	Policy  *ReportPolicy     `json:"policy"`
	Metrics *metrics.Snapshot `json:"metrics"`
}

// ReportPolicy holds policy stats in the report.
type ReportPolicy struct {
	Name          string `json:"name"`
	RowsReceived  int64  `json:"rows_received"`
	RowsPersisted int64  `json:"rows_persisted"`
	Batches       int64  `json:"batches"`
	Errors        int64  `json:"errors"`
}

// BuildRunReport composes a RunReport from a Result and metrics snapshot.
func BuildRunReport(result *Result, snap metrics.Snapshot, policyName string, exitCode int) *RunReport {
	report := &RunReport{
		RunID:      result.RunMeta.RunID,
		Attempt:    result.RunMeta.Attempt,
		LDS:        result.RunMeta.LDS,
		APIVersion: result.RunMeta.APIVersion,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ErrorKind:  result.Outcome.ErrorKind,
		ExitCode:   exitCode,
		StartedAt:  result.Started.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		DurationMs: result.Duration.Milliseconds(),
		Selected:   result.Selected,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		Rows:       result.Rows,
		Queries:    result.Queries,
		Policy: &ReportPolicy{
			Name:          policyName,
			RowsReceived:  result.PolicyStats.TotalRows,
			RowsPersisted: result.PolicyStats.RowsPersisted,
			Batches:       result.PolicyStats.Batches,
			Errors:        result.PolicyStats.Errors,
		},
		Metrics: &snap,
	}
	if report.Queries == nil {
		report.Queries = []QueryResult{}
	}
	if result.RunMeta.ParentRunID != nil {
		report.ParentRunID = *result.RunMeta.ParentRunID
	}
	return report
}

// MarshalRunReport renders the report as indented JSON with a trailing newline.
func MarshalRunReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := MarshalRunReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := MarshalRunReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
