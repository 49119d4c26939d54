// Package reader provides the read-side views of the inquire CLI.
//
// Read-only commands (catalog, stats, inspect) build these views from the
// backend catalog, persisted metrics records and recorded transcripts, and
// hand them to the renderer or the TUI unchanged.
package reader

// MetricsSnapshot is the view of a persisted metrics record.
type MetricsSnapshot struct {
	Ts    string `json:"ts"`
	RunID string `json:"run_id"`
	LDS   string `json:"lds"`
	Day   string `json:"day"`

	// Run lifecycle
	RunsStarted   int64 `json:"runs_started"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsPartial   int64 `json:"runs_partial"`
	RunsFailed    int64 `json:"runs_failed"`

	// Queries
	QueriesSelected  int64            `json:"queries_selected"`
	QueriesSucceeded int64            `json:"queries_succeeded"`
	QueriesFailed    int64            `json:"queries_failed"`
	QueriesSkipped   int64            `json:"queries_skipped"`
	FailuresByKind   map[string]int64 `json:"failures_by_kind,omitempty"`

	// Protocol
	Submits         int64 `json:"submits"`
	Polls           int64 `json:"polls"`
	NetworkTimeouts int64 `json:"network_timeouts"`
	AuthFailures    int64 `json:"auth_failures"`

	// Ingestion
	RowsReceived  int64 `json:"rows_received"`
	RowsPersisted int64 `json:"rows_persisted"`
	Batches       int64 `json:"batches"`

	// Lode / Storage
	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`

	// Dimensions
	Policy         string `json:"policy"`
	APIVersion     int    `json:"api_version"`
	StorageBackend string `json:"storage_backend"`
}

// CatalogEntry is one shared query in the catalog listing.
type CatalogEntry struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description"`
	Excluded    bool   `json:"excluded"`
}

// TranscriptExecution summarizes the exchanges of one execution.
type TranscriptExecution struct {
	ExecutionID string `json:"execution_id"`
	Query       string `json:"query"`
	Polls       int    `json:"polls"`
	Final       string `json:"final"`
	ErrorKind   string `json:"error_kind,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// TranscriptSummary is the view of a recorded transcript.
type TranscriptSummary struct {
	RunID      string                `json:"run_id"`
	LDS        string                `json:"lds"`
	Records    int                   `json:"records"`
	Skipped    int                   `json:"skipped"`
	Submits    int                   `json:"submits"`
	Polls      int                   `json:"polls"`
	Errors     int                   `json:"errors"`
	Executions []TranscriptExecution `json:"executions"`
}
