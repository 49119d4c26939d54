// Package redis publishes export completion events to a Redis pub/sub
// channel, optionally also appending them to a list for consumers that
// were not subscribed at the time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/inquire/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "inquire:export_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: inquire:export_completed).
	Channel string
	// List, when set, also receives every event via RPUSH.
	List string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes export completion events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish sends the event as JSON to the configured channel (and list).
func (a *Adapter) Publish(ctx context.Context, event *adapter.ExportCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "redis", a.config.Retries, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()

		if a.config.List == "" {
			return a.client.Publish(ctx, a.config.Channel, body).Err()
		}

		_, err := a.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.RPush(ctx, a.config.List, body)
			pipe.Publish(ctx, a.config.Channel, body)
			return nil
		})
		return err
	})
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
