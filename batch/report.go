package batch

import (
	"time"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/fetch"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// Report is the outcome of one Driver.Run.
type Report struct {
	Meta    types.BatchMeta
	Results []fetch.Result
	Metrics metrics.Snapshot
	// Pending counts descriptors never started because the batch was
	// interrupted.
	Pending     int
	Interrupted bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// Failed returns the failed results in run order.
func (r *Report) Failed() []fetch.Result {
	var out []fetch.Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Outcome classifies the batch: interrupted, partial (some failed) or
// success.
func (r *Report) Outcome() string {
	switch {
	case r.Interrupted:
		return adapter.OutcomeInterrupted
	case len(r.Failed()) > 0:
		return adapter.OutcomePartial
	default:
		return adapter.OutcomeSuccess
	}
}

// Duration returns the wall time of the batch.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Event builds the batch completion event for adapters.
func (r *Report) Event() *adapter.BatchCompletedEvent {
	m := r.Metrics
	return &adapter.BatchCompletedEvent{
		ContractVersion: types.Version,
		EventType:       adapter.EventTypeBatchCompleted,
		BatchID:         r.Meta.BatchID,
		Archive:         r.Meta.Archive,
		Root:            r.Meta.Root,
		Outcome:         r.Outcome(),
		Timestamp:       r.CompletedAt.UTC().Format(time.RFC3339),
		Requests:        m.Requests,
		Created:         m.Created,
		Skipped:         m.Skipped,
		Failed:          m.Failed,
		FailedByKind:    m.FailedByKind,
		Bytes:           m.BytesMaterialized,
		DurationMs:      r.Duration().Milliseconds(),
	}
}

// Summary is the per-status tally of a report, for rendering.
type Summary struct {
	BatchID      string           `json:"batch_id" yaml:"batch_id"`
	Outcome      string           `json:"outcome" yaml:"outcome"`
	Requests     int64            `json:"requests" yaml:"requests"`
	Created      int64            `json:"created" yaml:"created"`
	Skipped      int64            `json:"skipped" yaml:"skipped"`
	Failed       int64            `json:"failed" yaml:"failed"`
	Pending      int              `json:"pending,omitempty" yaml:"pending,omitempty"`
	FailedByKind map[string]int64 `json:"failed_by_kind,omitempty" yaml:"failed_by_kind,omitempty"`
	Bytes        int64            `json:"bytes_materialized" yaml:"bytes_materialized"`
	DurationMs   int64            `json:"duration_ms" yaml:"duration_ms"`
}

// Summary returns the report tally.
func (r *Report) Summary() Summary {
	m := r.Metrics
	return Summary{
		BatchID:      r.Meta.BatchID,
		Outcome:      r.Outcome(),
		Requests:     m.Requests,
		Created:      m.Created,
		Skipped:      m.Skipped,
		Failed:       m.Failed,
		Pending:      r.Pending,
		FailedByKind: m.FailedByKind,
		Bytes:        m.BytesMaterialized,
		DurationMs:   r.Duration().Milliseconds(),
	}
}
