package batch

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/catalog"
	"github.com/justapithecus/strata/fetch"
	"github.com/justapithecus/strata/journal"
	"github.com/justapithecus/strata/layout"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// scriptedFetcher returns canned results keyed by parameter.
type scriptedFetcher struct {
	root     string
	outcome  map[string]fetch.Status
	cancel   context.CancelFunc
	cancelOn string
	calls    []string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, d types.Descriptor) fetch.Result {
	f.calls = append(f.calls, d.Param+"/"+d.Year)
	res := fetch.Result{
		Descriptor: d,
		Path:       filepath.Join(f.root, "ei_Glb", "sfc", d.Param, "ei_"+d.Param+"_"+d.Year+".grb"),
	}
	if d.Param == f.cancelOn && f.cancel != nil {
		f.cancel()
		res.Status, res.Err = fetch.StatusFailed, ctx.Err()
		return res
	}
	switch f.outcome[d.Param] {
	case fetch.StatusFailed:
		res.Status = fetch.StatusFailed
		res.Err = &types.ArchiveClientError{Err: errors.New("rejected")}
	case fetch.StatusAlreadyExists:
		res.Status = fetch.StatusAlreadyExists
	default:
		res.Status, res.Bytes = fetch.StatusCreated, 10
	}
	return res
}

type recordingJournal struct {
	mu       sync.Mutex
	outcomes []fetch.Result
	summary  *journal.Summary
	err      error
}

func (j *recordingJournal) Record(_ context.Context, res fetch.Result, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes = append(j.outcomes, res)
	return j.err
}

func (j *recordingJournal) Summarize(ctx context.Context, s journal.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.summary = &s
	return j.err
}

type recordingMirror struct {
	rels []string
	err  error
}

func (m *recordingMirror) Publish(_ context.Context, _, rel string, _ bool) (bool, error) {
	m.rels = append(m.rels, rel)
	return m.err == nil, m.err
}

type recordingAdapter struct {
	events []*adapter.BatchCompletedEvent
}

func (a *recordingAdapter) Publish(ctx context.Context, e *adapter.BatchCompletedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.events = append(a.events, e)
	return nil
}

func (a *recordingAdapter) Close() error { return nil }

func descs(params ...string) []types.Descriptor {
	var out []types.Descriptor
	for _, p := range params {
		out = append(out, types.Descriptor{Param: p, Level: types.Surface(), Year: "1990", Step: "0", Area: types.Global()})
	}
	return out
}

func newTestDriver(t *testing.T, f *scriptedFetcher, opts ...Option) *Driver {
	t.Helper()
	resolver := layout.NewResolver(f.root, filepath.Join(f.root, ".staging"), catalog.ERAInterim())
	meta := types.BatchMeta{BatchID: "b-1", Archive: "webapi", Root: f.root}
	return NewDriver(f, resolver, meta, opts...)
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	f := &scriptedFetcher{root: root, outcome: map[string]fetch.Status{
		"msl": fetch.StatusAlreadyExists,
		"2t":  fetch.StatusFailed,
	}}
	j := &recordingJournal{}
	m := &recordingMirror{}
	a := &recordingAdapter{}
	c := metrics.NewCollector("webapi", "memory", "b-1")
	var progress []int

	d := newTestDriver(t, f,
		WithJournal(j), WithMirror(m), WithAdapter(a), WithMetrics(c),
		WithProgress(func(i, total int, _ fetch.Result) { progress = append(progress, i*10+total) }),
	)
	rep := d.Run(t.Context(), descs("msl", "2t", "2d", "tcw"))

	if len(f.calls) != 4 {
		t.Fatalf("calls = %v, want all four", f.calls)
	}
	if rep.Interrupted || rep.Pending != 0 {
		t.Errorf("interrupted=%v pending=%d", rep.Interrupted, rep.Pending)
	}
	if rep.Outcome() != adapter.OutcomePartial {
		t.Errorf("Outcome = %q", rep.Outcome())
	}
	if got := rep.Failed(); len(got) != 1 || got[0].Descriptor.Param != "2t" {
		t.Errorf("Failed = %v", got)
	}

	s := rep.Metrics
	if s.Requests != 4 || s.Created != 2 || s.Skipped != 1 || s.Failed != 1 {
		t.Errorf("metrics = %+v", s)
	}
	if s.FailedByKind[string(types.KindArchiveClient)] != 1 {
		t.Errorf("FailedByKind = %v", s.FailedByKind)
	}

	if len(j.outcomes) != 4 || j.summary == nil || j.summary.Metrics.Requests != 4 {
		t.Errorf("journal outcomes=%d summary=%+v", len(j.outcomes), j.summary)
	}
	if len(m.rels) != 2 || m.rels[0] != "ei_Glb/sfc/2d/ei_2d_1990.grb" {
		t.Errorf("mirrored = %v", m.rels)
	}
	if len(a.events) != 1 || a.events[0].Outcome != adapter.OutcomePartial || a.events[0].BatchID != "b-1" {
		t.Errorf("events = %+v", a.events)
	}
	if len(progress) != 4 || progress[3] != 44 {
		t.Errorf("progress = %v", progress)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	f := &scriptedFetcher{root: root, cancel: cancel, cancelOn: "2t"}
	j := &recordingJournal{}
	a := &recordingAdapter{}

	rep := newTestDriver(t, f, WithJournal(j), WithAdapter(a)).Run(ctx, descs("msl", "2t", "2d", "tcw"))

	if len(f.calls) != 2 {
		t.Fatalf("calls = %v, want stop after 2t", f.calls)
	}
	if !rep.Interrupted || rep.Pending != 2 {
		t.Errorf("interrupted=%v pending=%d", rep.Interrupted, rep.Pending)
	}
	if rep.Outcome() != adapter.OutcomeInterrupted {
		t.Errorf("Outcome = %q", rep.Outcome())
	}
	// Finalization runs detached from the canceled context.
	if j.summary == nil || !j.summary.Interrupted {
		t.Errorf("summary = %+v", j.summary)
	}
	if len(j.outcomes) != 2 {
		t.Errorf("journaled %d outcomes, want 2", len(j.outcomes))
	}
	if len(a.events) != 1 || a.events[0].Outcome != adapter.OutcomeInterrupted {
		t.Errorf("events = %+v", a.events)
	}
}

func TestRun_AlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	f := &scriptedFetcher{root: t.TempDir()}

	rep := newTestDriver(t, f).Run(ctx, descs("msl", "2t"))
	if len(f.calls) != 0 || !rep.Interrupted || rep.Pending != 2 {
		t.Errorf("calls=%v interrupted=%v pending=%d", f.calls, rep.Interrupted, rep.Pending)
	}
}

func TestRun_SideEffectFailuresAreWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLoggerWithWriter(&types.BatchMeta{BatchID: "b-1", Archive: "webapi"}, &buf)
	f := &scriptedFetcher{root: t.TempDir()}
	j := &recordingJournal{err: errors.New("disk full")}
	m := &recordingMirror{err: errors.New("access denied")}

	rep := newTestDriver(t, f, WithLogger(logger), WithJournal(j), WithMirror(m)).Run(t.Context(), descs("msl"))

	if rep.Outcome() != adapter.OutcomeSuccess || rep.Results[0].Status != fetch.StatusCreated {
		t.Errorf("outcome = %q status = %q", rep.Outcome(), rep.Results[0].Status)
	}
	out := buf.String()
	for _, want := range []string{"journal write failed", "mirror publish failed", "journal summary failed", `"batch_id":"b-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestNewBatchID_Unique(t *testing.T) {
	a, b := NewBatchID(), NewBatchID()
	if a == "" || a == b {
		t.Errorf("ids = %q, %q", a, b)
	}
}
