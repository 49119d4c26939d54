// Package webhook publishes export completion events as JSON HTTP POSTs.
//
// 5xx responses and network errors are retried with exponential backoff;
// 4xx responses fail immediately.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/inquire/adapter"
	"github.com/pithecene-io/inquire/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// EventHeader carries the event type so receivers can route without
// decoding the body.
const EventHeader = "X-Inquire-Event"

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes export completion events via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a webhook adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish sends the event as a JSON POST request.
func (a *Adapter) Publish(ctx context.Context, event *adapter.ExportCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "webhook", a.config.Retries, func(ctx context.Context) error {
		err := a.doRequest(ctx, event.EventType, body)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return adapter.Permanent(err)
		}
		return err
	})
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// doRequest performs a single HTTP POST and returns nil on 2xx.
func (a *Adapter) doRequest(ctx context.Context, eventType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return adapter.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if eventType != "" {
		req.Header.Set(EventHeader, eventType)
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
