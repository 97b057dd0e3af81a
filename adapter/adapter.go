// Package adapter defines the notification boundary for finished batches.
//
// Adapters publish batch completion events to downstream systems (an HTTP
// endpoint, a Redis channel). The CLI owns adapter lifecycle; users provide
// configuration only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventTypeBatchCompleted is the event_type of BatchCompletedEvent.
const EventTypeBatchCompleted = "batch_completed"

// Batch outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomePartial     = "partial"
	OutcomeInterrupted = "interrupted"
)

// BatchCompletedEvent is the payload published when a batch finishes.
type BatchCompletedEvent struct {
	ContractVersion string           `json:"contract_version"`
	EventType       string           `json:"event_type"` // always "batch_completed"
	BatchID         string           `json:"batch_id"`
	Archive         string           `json:"archive"`
	Root            string           `json:"root"`
	Outcome         string           `json:"outcome"` // success, partial, interrupted
	Timestamp       string           `json:"timestamp"`
	Requests        int64            `json:"requests"`
	Created         int64            `json:"created"`
	Skipped         int64            `json:"skipped"`
	Failed          int64            `json:"failed"`
	FailedByKind    map[string]int64 `json:"failed_by_kind,omitempty"`
	Bytes           int64            `json:"bytes_materialized"`
	DurationMs      int64            `json:"duration_ms"`
}

// Adapter publishes batch completion events to a downstream system.
type Adapter interface {
	// Publish sends a batch completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *BatchCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry. It doubles per retry.
var BaseBackoff = 500 * time.Millisecond

// Permanent marks an error that must not be retried.
type Permanent struct {
	Err error
}

func (e *Permanent) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Permanent) Unwrap() error { return e.Err }

// Delayed marks a retriable error whose next attempt should wait at
// least After.
type Delayed struct {
	Err   error
	After time.Duration
}

func (e *Delayed) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Delayed) Unwrap() error { return e.Err }

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts. A *Permanent error stops immediately; a *Delayed error
// stretches the next backoff to its After.
func Retry(ctx context.Context, retries int, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			var d *Delayed
			if errors.As(lastErr, &d) && d.After > backoff {
				backoff = d.After
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm *Permanent
		if errors.As(lastErr, &perm) {
			return fmt.Errorf("non-retriable error: %w", perm.Err)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
