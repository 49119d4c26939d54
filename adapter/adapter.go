// Package adapter publishes export completion notifications to downstream
// systems. The export runner owns adapter lifecycle; users provide
// configuration only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventTypeExportCompleted is the event_type of every published event.
const EventTypeExportCompleted = "export_completed"

// ExportCompletedEvent is the payload published when an export run finishes.
type ExportCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "export_completed"
	RunID           string `json:"run_id"`
	LDS             string `json:"lds"`
	APIVersion      int    `json:"api_version"`
	Day             string `json:"day"`
	Outcome         string `json:"outcome"` // success, partial, failed, canceled
	StoragePath     string `json:"storage_path,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	Attempt         int    `json:"attempt"`

	QueriesSelected  int   `json:"queries_selected"`
	QueriesSucceeded int   `json:"queries_succeeded"`
	QueriesFailed    int   `json:"queries_failed"`
	QueriesSkipped   int   `json:"queries_skipped"`
	RowCount         int64 `json:"row_count"`
	DurationMs       int64 `json:"duration_ms"`
}

// Adapter publishes export completion events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation.
	Publish(ctx context.Context, event *ExportCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// RetryBase is the delay before the first retry; each later retry doubles it.
var RetryBase = 500 * time.Millisecond

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Retry stops after the current attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, fn func(ctx context.Context) error) error {
	attempts := 1 + retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * RetryBase
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var p *permanent
		if errors.As(lastErr, &p) {
			return fmt.Errorf("%s: non-retriable error: %w", name, p.err)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
