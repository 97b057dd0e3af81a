// Package fetch runs one request through the existence gate, the archive
// client and the staging-then-rename materialization.
//
// A Unit never panics and never aborts a batch: every failure is local to
// one descriptor and returned inside the Result.
package fetch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/layout"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// Unit fetches and materializes single requests.
// A Unit holds no per-request state and may be reused sequentially.
type Unit struct {
	resolver *layout.Resolver
	client   archive.Client
	logger   *log.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// Option configures a Unit.
type Option func(*Unit)

// WithLogger sets the logger used for state transitions (debug level).
func WithLogger(l *log.Logger) Option {
	return func(u *Unit) { u.logger = l }
}

// WithMetrics sets the collector for archive calls and bytes.
func WithMetrics(c *metrics.Collector) Option {
	return func(u *Unit) { u.metrics = c }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(u *Unit) { u.now = now }
}

// NewUnit creates a unit writing under resolver's root through client.
func NewUnit(resolver *layout.Resolver, client archive.Client, opts ...Option) *Unit {
	u := &Unit{
		resolver: resolver,
		client:   client,
		logger:   log.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Resolver returns the layout resolver.
func (u *Unit) Resolver() *layout.Resolver { return u.resolver }

// Fetch runs d to a terminal state.
//
// Returns StatusAlreadyExists when the file is present and d.Overwrite is
// false (zero client calls), StatusCreated once the file is in place, and
// StatusFailed otherwise. Cancellation of ctx is reported as a failure of
// kind canceled.
func (u *Unit) Fetch(ctx context.Context, d types.Descriptor) Result {
	run := &unitRun{Unit: u, res: Result{Descriptor: d}, start: u.now(), logger: u.logger.ForDescriptor(d)}
	run.transition(StateChecking)
	return run.execute(ctx)
}

// unitRun carries one request through the lifecycle.
type unitRun struct {
	*Unit
	res    Result
	start  time.Time
	logger *log.Logger // shadows Unit.logger with descriptor fields
}

func (r *unitRun) transition(s State) {
	r.res.State = s
	r.logger.Debug("fetch state", map[string]any{"state": string(s)})
}

func (r *unitRun) fail(err error) Result {
	r.res.FailedIn = r.res.State
	r.res.Status = StatusFailed
	r.res.Err = err
	r.transition(StateFailed)
	return r.finish()
}

func (r *unitRun) finish() Result {
	r.res.Duration = r.now().Sub(r.start)
	return r.res
}

func (r *unitRun) execute(ctx context.Context) Result {
	d := r.res.Descriptor

	// CHECKING
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}
	loc, err := r.resolver.Resolve(d)
	if err != nil {
		return r.fail(err)
	}
	final := loc.Path()
	r.res.Path = final

	decision, err := Gate(final, d.Overwrite)
	if err != nil {
		return r.fail(err)
	}
	if decision == Skip {
		r.res.Status = StatusAlreadyExists
		r.transition(StateSkipped)
		return r.finish()
	}

	// FETCHING
	r.transition(StateFetching)
	req, err := archive.Build(d, loc.Entry, r.resolver.Catalog().Table(), loc.Staging)
	if err != nil {
		return r.fail(err)
	}
	r.res.Request = req

	if err := checkStaging(loc.Staging); err != nil {
		return r.fail(err)
	}
	if err := os.MkdirAll(filepath.Dir(loc.Staging), dirPerm); err != nil {
		return r.fail(types.NewMaterializationError("mkdir", filepath.Dir(loc.Staging), err))
	}

	r.metrics.IncArchiveCall()
	if err := r.client.Retrieve(ctx, req); err != nil {
		r.metrics.IncArchiveFailure()
		_ = iox.RemoveIfExists(loc.Staging)
		return r.fail(&types.ArchiveClientError{Request: req.String(), Err: err})
	}

	// MATERIALIZING
	r.transition(StateMaterializing)
	size, err := stagedSize(loc.Staging)
	if err != nil {
		return r.fail(err)
	}
	switch err := materialize(loc.Staging, loc.Dir, final, d.Overwrite); err {
	case nil:
	case errLostRace:
		r.logger.Warn("destination appeared during fetch; keeping existing file", map[string]any{"path": final})
		r.res.Status = StatusAlreadyExists
		r.transition(StateSkipped)
		return r.finish()
	default:
		return r.fail(err)
	}

	r.metrics.AddBytesMaterialized(size)
	r.res.Bytes = size
	r.res.Status = StatusCreated
	r.transition(StateDone)
	return r.finish()
}
