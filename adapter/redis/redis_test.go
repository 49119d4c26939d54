package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/pithecene-io/inquire/adapter"
	"github.com/pithecene-io/inquire/iox"
)

func testEvent() *adapter.ExportCompletedEvent {
	return &adapter.ExportCompletedEvent{
		ContractVersion:  "0.3.0",
		EventType:        adapter.EventTypeExportCompleted,
		RunID:            "run-001",
		LDS:              "web-prod",
		APIVersion:       2,
		Day:              "2026-03-01",
		Outcome:          "partial",
		StoragePath:      "file:///data/lds=web-prod/day=2026-03-01/run_id=run-001",
		Timestamp:        "2026-03-01T12:00:00Z",
		Attempt:          1,
		QueriesSelected:  3,
		QueriesSucceeded: 2,
		QueriesFailed:    1,
		RowCount:         42,
		DurationMs:       1500,
	}
}

// fastRetries shrinks the retry backoff for the duration of the test.
func fastRetries(t *testing.T) {
	t.Helper()
	prev := adapter.RetryBase
	adapter.RetryBase = time.Millisecond
	t.Cleanup(func() { adapter.RetryBase = prev })
}

// asyncReceive starts a goroutine that reads one message from the subscriber
// and sends it to the returned channel. Must be called BEFORE Publish to avoid
// deadlocking miniredis's synchronous pub/sub delivery.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{} // unreachable
	}
}

func TestPublish_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	event := testEvent()
	if err := a.Publish(t.Context(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)

	var received adapter.ExportCompletedEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if received.RunID != "run-001" {
		t.Errorf("expected run-001, got %s", received.RunID)
	}
	if received.EventType != "export_completed" {
		t.Errorf("expected export_completed, got %s", received.EventType)
	}
	if received.Outcome != "partial" || received.QueriesFailed != 1 {
		t.Errorf("expected partial with 1 failed query, got %s/%d", received.Outcome, received.QueriesFailed)
	}
}

func TestPublish_Channels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		channel string
	}{
		{"default channel", Config{}, DefaultChannel},
		{"custom channel", Config{Channel: "custom:notifications"}, "custom:notifications"},
		{"healthy with retries", Config{Retries: 3, Timeout: 5 * time.Second}, DefaultChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			cfg := tt.cfg
			cfg.URL = "redis://" + mr.Addr()

			a, err := New(cfg)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			t.Cleanup(iox.CloseFunc(a))

			sub := mr.NewSubscriber()
			sub.Subscribe(tt.channel)
			ch := asyncReceive(sub)

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("publish: %v", err)
			}

			if msg := waitMessage(t, ch); msg.Channel != tt.channel {
				t.Errorf("expected channel %q, got %q", tt.channel, msg.Channel)
			}
		})
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	fastRetries(t)
	// Use an address that won't connect
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 2, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))

	err = a.Publish(t.Context(), testEvent())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	// Use an address that won't connect; context cancellation should fire first
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	err = a.Publish(ctx, testEvent())
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"requires URL", Config{}, true},
		{"invalid URL", Config{URL: "not-a-redis-url"}, true},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}, true},
		{"defaults applied", Config{URL: "redis://localhost:6379"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer iox.DiscardClose(a)
			if a.config.Channel != DefaultChannel || a.config.Timeout != DefaultTimeout {
				t.Errorf("defaults not applied: %+v", a.config)
			}
		})
	}
}

func TestClose_ClosesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Publish after close should fail
	err = a.Publish(t.Context(), testEvent())
	if err == nil {
		t.Fatal("expected error after close")
	}
}

func TestPublish_AppendsToList(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr(), List: "inquire:exports"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(iox.CloseFunc(a))

	// No subscriber: the list must still receive every event.
	for range 2 {
		if err := a.Publish(t.Context(), testEvent()); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	items, err := mr.List("inquire:exports")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 list entries, got %d", len(items))
	}

	var received adapter.ExportCompletedEvent
	if err := json.Unmarshal([]byte(items[0]), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.LDS != "web-prod" || received.RowCount != 42 {
		t.Errorf("unexpected event: %+v", received)
	}
}
