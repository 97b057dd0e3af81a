// Package batch runs many requests through a fetch unit.
//
// A Driver processes descriptors sequentially and never stops on a failed
// request. Only cancellation ends a batch early. Each outcome is logged,
// counted, journaled and, when created, mirrored. Journal, mirror and
// adapter failures are warnings and never change an outcome.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/fetch"
	"github.com/justapithecus/strata/journal"
	"github.com/justapithecus/strata/layout"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// finalizeTimeout bounds the summary and adapter publish after the batch
// context is gone.
const finalizeTimeout = 30 * time.Second

// Fetcher runs one descriptor to a terminal result. *fetch.Unit implements it.
type Fetcher interface {
	Fetch(ctx context.Context, d types.Descriptor) fetch.Result
}

// Recorder persists outcomes. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, res fetch.Result, at time.Time) error
	Summarize(ctx context.Context, s journal.Summary) error
}

// Publisher copies created files elsewhere. *journal.Mirror implements it.
type Publisher interface {
	Publish(ctx context.Context, local, rel string, replace bool) (bool, error)
}

// ProgressFunc observes each result as it completes. i is 1-based.
type ProgressFunc func(i, total int, res fetch.Result)

// Driver runs batches.
type Driver struct {
	fetcher  Fetcher
	resolver *layout.Resolver
	meta     types.BatchMeta

	logger   *log.Logger
	metrics  *metrics.Collector
	journal  Recorder
	mirror   Publisher
	adapter  adapter.Adapter
	progress ProgressFunc
	now      func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(d *Driver) { d.logger = l } }

// WithMetrics sets the collector. The same collector should be shared
// with the fetch unit.
func WithMetrics(c *metrics.Collector) Option { return func(d *Driver) { d.metrics = c } }

// WithJournal records every outcome and the batch summary.
func WithJournal(r Recorder) Option { return func(d *Driver) { d.journal = r } }

// WithMirror publishes created files.
func WithMirror(p Publisher) Option { return func(d *Driver) { d.mirror = p } }

// WithAdapter publishes a batch completion event.
func WithAdapter(a adapter.Adapter) Option { return func(d *Driver) { d.adapter = a } }

// WithProgress observes results as they complete.
func WithProgress(fn ProgressFunc) Option { return func(d *Driver) { d.progress = fn } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(d *Driver) { d.now = now } }

// NewDriver creates a driver for the batch described by meta.
// resolver maps created paths to mirror keys; it may be nil without a mirror.
func NewDriver(f Fetcher, resolver *layout.Resolver, meta types.BatchMeta, opts ...Option) *Driver {
	d := &Driver{
		fetcher:  f,
		resolver: resolver,
		meta:     meta,
		logger:   log.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = metrics.NewCollector(meta.Archive, "", meta.BatchID)
	}
	return d
}

// NewBatchID returns a time-ordered batch identifier.
func NewBatchID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Run processes descs in order and returns the report.
func (d *Driver) Run(ctx context.Context, descs []types.Descriptor) *Report {
	rep := &Report{Meta: d.meta, StartedAt: d.now()}
	total := len(descs)

	d.logger.Info("batch started", map[string]any{"requests": total, "root": d.meta.Root})

	for i, desc := range descs {
		if ctx.Err() != nil {
			rep.Interrupted = true
			rep.Pending = total - i
			break
		}

		res := d.fetcher.Fetch(ctx, desc)
		rep.Results = append(rep.Results, res)
		d.observe(ctx, res)
		if d.progress != nil {
			d.progress(i+1, total, res)
		}

		if res.Kind() == types.KindCanceled {
			rep.Interrupted = true
			rep.Pending = total - i - 1
			break
		}
	}

	rep.CompletedAt = d.now()
	rep.Metrics = d.metrics.Snapshot()
	d.finalize(ctx, rep)
	return rep
}

// observe logs, counts, journals and mirrors one outcome.
func (d *Driver) observe(ctx context.Context, res fetch.Result) {
	d.metrics.IncRequest()
	fields := res.Fields()

	switch res.Status {
	case fetch.StatusAlreadyExists:
		d.metrics.IncSkipped()
		d.logger.Info("skip", fields)
	case fetch.StatusCreated:
		d.metrics.IncCreated()
		d.logger.Info("created", fields)
		d.publish(ctx, res)
	default:
		d.metrics.IncFailed(string(res.Kind()))
		d.logger.Error("failed", fields)
	}

	if d.journal != nil {
		// A canceled batch still records its last outcome.
		if err := d.journal.Record(context.WithoutCancel(ctx), res, d.now()); err != nil {
			d.logger.Warn("journal write failed", map[string]any{"error": err.Error(), "path": res.Path})
		}
	}
}

func (d *Driver) publish(ctx context.Context, res fetch.Result) {
	if d.mirror == nil || d.resolver == nil {
		return
	}
	rel, err := d.resolver.Rel(res.Path)
	if err != nil {
		d.logger.Warn("mirror skipped", map[string]any{"error": err.Error(), "path": res.Path})
		return
	}
	uploaded, err := d.mirror.Publish(ctx, res.Path, rel, res.Descriptor.Overwrite)
	if err != nil {
		d.logger.Warn("mirror publish failed", map[string]any{"error": err.Error(), "path": rel})
		return
	}
	d.logger.Debug("mirror publish", map[string]any{"path": rel, "uploaded": uploaded})
}

// finalize writes the summary and publishes the completion event. Both run
// on a context detached from cancellation so interrupted batches report too.
func (d *Driver) finalize(ctx context.Context, rep *Report) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if d.journal != nil {
		err := d.journal.Summarize(fctx, journal.Summary{
			Meta:        d.meta,
			Metrics:     rep.Metrics,
			Interrupted: rep.Interrupted,
			StartedAt:   rep.StartedAt,
			CompletedAt: rep.CompletedAt,
		})
		if err != nil {
			d.logger.Warn("journal summary failed", map[string]any{"error": err.Error()})
		}
	}

	if d.adapter != nil {
		if err := d.adapter.Publish(fctx, rep.Event()); err != nil {
			d.logger.Warn("adapter publish failed", map[string]any{"error": err.Error()})
		} else {
			d.logger.Debug("adapter publish", map[string]any{"outcome": rep.Outcome()})
		}
	}

	s := rep.Summary()
	fields := map[string]any{
		"outcome":     s.Outcome,
		"requests":    s.Requests,
		"created":     s.Created,
		"skipped":     s.Skipped,
		"failed":      s.Failed,
		"duration_ms": s.DurationMs,
	}
	if rep.Pending > 0 {
		fields["pending"] = rep.Pending
	}
	if rep.Interrupted {
		d.logger.Warn("batch interrupted", fields)
		return
	}
	d.logger.Info("batch completed", fields)
}
