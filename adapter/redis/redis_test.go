package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/strata/adapter"
)

func testEvent() *adapter.BatchCompletedEvent {
	return &adapter.BatchCompletedEvent{
		ContractVersion: "0.4.0",
		EventType:       adapter.EventTypeBatchCompleted,
		BatchID:         "b-001",
		Archive:         "webapi",
		Root:            "/data/era",
		Outcome:         adapter.OutcomeSuccess,
		Timestamp:       "2026-03-01T12:00:00Z",
		Requests:        12,
		Created:         7,
		Skipped:         5,
		DurationMs:      1500,
	}
}

// asyncReceive reads one message from the subscriber. Must be called
// before Publish: miniredis delivers pub/sub synchronously.
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
		return miniredis.PubsubMessage{}
	}
}

func TestPublish_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("channel = %q", msg.Channel)
	}
	var received adapter.BatchCompletedEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.BatchID != "b-001" || received.EventType != "batch_completed" || received.Created != 7 {
		t.Errorf("received = %+v", received)
	}
}

func TestPublish_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr(), Channel: "era:done"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe("era:done")
	ch := asyncReceive(sub)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if msg := waitMessage(t, ch); msg.Channel != "era:done" {
		t.Errorf("channel = %q", msg.Channel)
	}
}

func TestPublish_CappedList(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr(), List: "strata:history", ListMax: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	for _, id := range []string{"b-1", "b-2", "b-3"} {
		ev := testEvent()
		ev.BatchID = id
		if err := a.Publish(t.Context(), ev); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}

	items, err := mr.List("strata:history")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("list len = %d, want 2", len(items))
	}
	var newest adapter.BatchCompletedEvent
	if err := json.Unmarshal([]byte(items[0]), &newest); err != nil {
		t.Fatal(err)
	}
	if newest.BatchID != "b-3" {
		t.Errorf("newest = %q, want b-3", newest.BatchID)
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	old := adapter.BaseBackoff
	adapter.BaseBackoff = time.Millisecond
	t.Cleanup(func() { adapter.BaseBackoff = old })

	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 2, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing URL", Config{}},
		{"invalid URL", Config{URL: "not-a-redis-url"}},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.channel != DefaultChannel || a.timeout != DefaultTimeout || a.listMax != DefaultListMax {
		t.Errorf("adapter = %+v", a)
	}
}

func TestPublish_AfterClose(t *testing.T) {
	mr := miniredis.RunT(t)

	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	start := time.Now()
	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after close")
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Error("closed client was retried")
	}
}
