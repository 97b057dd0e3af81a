package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/iox"
)

func testEvent() *adapter.BatchCompletedEvent {
	return &adapter.BatchCompletedEvent{
		ContractVersion: "0.4.0",
		EventType:       adapter.EventTypeBatchCompleted,
		BatchID:         "b-001",
		Archive:         "webapi",
		Root:            "/data/era",
		Outcome:         adapter.OutcomePartial,
		Timestamp:       "2026-03-01T12:00:00Z",
		Requests:        12,
		Created:         6,
		Skipped:         5,
		Failed:          1,
		FailedByKind:    map[string]int64{"archive_client": 1},
		DurationMs:      1500,
	}
}

func fastBackoff(t *testing.T) {
	t.Helper()
	old := adapter.BaseBackoff
	adapter.BaseBackoff = time.Millisecond
	t.Cleanup(func() { adapter.BaseBackoff = old })
}

func TestPublish_Success(t *testing.T) {
	var received adapter.BatchCompletedEvent
	var authHeader string
	var hdr http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		authHeader = r.Header.Get("Authorization")
		hdr = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Headers: map[string]string{"Authorization": "Bearer t"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if received.BatchID != "b-001" || received.Outcome != "partial" || received.FailedByKind["archive_client"] != 1 {
		t.Errorf("received = %+v", received)
	}
	if authHeader != "Bearer t" {
		t.Errorf("Authorization = %q", authHeader)
	}
	if hdr.Get(HeaderEvent) != "batch_completed" || hdr.Get(HeaderBatch) != "b-001" {
		t.Errorf("headers = %v", hdr)
	}
	if hdr.Get(HeaderDelivery) != "b-001/2026-03-01T12:00:00Z" {
		t.Errorf("delivery = %q", hdr.Get(HeaderDelivery))
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"3600", maxRetryAfter},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tc := range tests {
		if got := retryAfter(tc.in); got != tc.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	fastBackoff(t)

	tests := []struct {
		name         string
		codes        []int // response per attempt; last repeats
		retries      int
		wantErr      bool
		wantAttempts int32
	}{
		{"2xx accepted", []int{http.StatusNoContent}, 3, false, 1},
		{"5xx then ok", []int{500, 502, 200}, 3, false, 3},
		{"5xx exhausts", []int{503}, 2, true, 3},
		{"4xx fails immediately", []int{403}, 3, true, 1},
		{"404 fails immediately", []int{404}, 3, true, 1},
		{"429 is retried", []int{429, 200}, 3, false, 2},
		{"408 is retried", []int{408, 408, 204}, 3, false, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(attempts.Add(1))
				code := tc.codes[len(tc.codes)-1]
				if n <= len(tc.codes) {
					code = tc.codes[n-1]
				}
				w.WriteHeader(code)
			}))
			defer ts.Close()

			a, err := New(Config{URL: ts.URL, Retries: tc.retries, Timeout: 5 * time.Second})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer iox.DiscardClose(a)

			err = a.Publish(t.Context(), testEvent())
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got := attempts.Load(); got != tc.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tc.wantAttempts)
			}
		})
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a, err := New(Config{URL: ts.URL, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}
	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.client.Timeout, DefaultTimeout)
	}
}
