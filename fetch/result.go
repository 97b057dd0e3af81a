package fetch

import (
	"time"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/types"
)

// State is a lifecycle state of one request.
type State string

// Lifecycle: CHECKING -> FETCHING -> MATERIALIZING -> DONE.
// SKIPPED and FAILED are the other terminals.
const (
	StateChecking      State = "checking"
	StateFetching      State = "fetching"
	StateMaterializing State = "materializing"
	StateDone          State = "done"
	StateSkipped       State = "skipped"
	StateFailed        State = "failed"
)

// Terminal reports whether s ends the lifecycle.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// Status is the outcome of one request.
type Status string

// Outcome statuses.
const (
	StatusAlreadyExists Status = "already_exists"
	StatusCreated       Status = "created"
	StatusFailed        Status = "failed"
)

// Result is the tagged outcome of Unit.Fetch.
//
// Path is set whenever the descriptor resolved. Err is set iff Status is
// StatusFailed, and FailedIn names the state the failure occurred in.
type Result struct {
	Descriptor types.Descriptor
	Status     Status
	Path       string
	State      State
	FailedIn   State
	Err        error

	// Request is the archive request, when one was built.
	Request *archive.Request
	// Bytes is the size of the materialized file.
	Bytes    int64
	Duration time.Duration
}

// OK reports whether the request did not fail.
func (r Result) OK() bool { return r.Status != StatusFailed }

// Kind returns the failure class, or "" on success.
func (r Result) Kind() types.ErrorKind {
	return types.KindOf(r.Err)
}

// Fields returns the result as log fields.
func (r Result) Fields() map[string]any {
	fields := r.Descriptor.Fields()
	fields["status"] = string(r.Status)
	fields["duration_ms"] = r.Duration.Milliseconds()
	if r.Path != "" {
		fields["path"] = r.Path
	}
	if r.Bytes > 0 {
		fields["bytes"] = r.Bytes
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
		fields["error_kind"] = string(r.Kind())
		fields["failed_in"] = string(r.FailedIn)
	}
	return fields
}
