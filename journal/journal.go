// Package journal records request outcomes and batch summaries to a
// Hive-partitioned lode dataset, and mirrors materialized files to an
// object store.
//
// Records are partitioned by day/batch_id/status and encoded as JSONL.
// The journal is an audit trail; the materialized tree remains the source
// of truth for what exists.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/strata/fetch"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "strata"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"day", "batch_id", "status"}

// Config identifies the batch a journal writes for.
type Config struct {
	Dataset string
	Meta    types.BatchMeta
	// Day is the day partition (YYYY-MM-DD). Derived from the first
	// write time when empty.
	Day string
}

// Journal appends records for a single batch. Safe for concurrent use.
//
// By default every record is written on its own (strict). With
// WithFlushEvery(n), records are buffered and written n at a time; a
// summary always flushes. A failed flush keeps the buffer for the next
// attempt, so records may be written twice; readers dedupe by record_id.
type Journal struct {
	dataset    lode.Dataset
	cfg        Config
	metrics    *metrics.Collector
	newID      func() string
	flushEvery int

	mu  sync.Mutex
	day string

	bufMu sync.Mutex // guards buf and stats
	buf   []any
	stats Stats
}

// Stats counts journal activity.
type Stats struct {
	Records   int64 `json:"records"`
	Persisted int64 `json:"persisted"`
	Pending   int   `json:"pending"`
	Flushes   int64 `json:"flushes"`
	Errors    int64 `json:"errors"`
}

// Option configures a Journal.
type Option func(*Journal)

// WithMetrics records write outcomes to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(j *Journal) { j.metrics = c }
}

// WithFlushEvery buffers records and writes them n at a time.
// n <= 1 writes every record immediately.
func WithFlushEvery(n int) Option {
	return func(j *Journal) { j.flushEvery = n }
}

// New creates a journal over the given store factory.
// Use lode.NewMemoryFactory() for testing.
func New(cfg Config, factory lode.StoreFactory, opts ...Option) (*Journal, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if err := cfg.Meta.Validate(); err != nil {
		return nil, err
	}
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, wrapError("init", cfg.Dataset, err)
	}
	j := &Journal{
		dataset: ds,
		cfg:     cfg,
		newID:   uuid.NewString,
		day:     cfg.Day,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// NewFS creates a journal stored under root on the local filesystem.
func NewFS(cfg Config, root string, opts ...Option) (*Journal, error) {
	return New(cfg, lode.NewFSFactory(root), opts...)
}

// NewS3 creates a journal stored in an S3 bucket.
func NewS3(ctx context.Context, cfg Config, s3cfg S3Config, opts ...Option) (*Journal, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, factory, opts...)
}

// Record appends the outcome of one request.
func (j *Journal) Record(ctx context.Context, res fetch.Result, at time.Time) error {
	rec := newOutcomeRecord(j.newID(), j.dayFor(at), j.cfg.Meta, res, at)
	return j.append(ctx, rec, false)
}

// Summarize appends the summary of a finished batch and flushes.
func (j *Journal) Summarize(ctx context.Context, s Summary) error {
	s.Meta = j.cfg.Meta
	rec := newSummaryRecord(j.newID(), j.dayFor(s.StartedAt), s)
	return j.append(ctx, rec, true)
}

// Flush writes buffered records.
func (j *Journal) Flush(ctx context.Context) error {
	j.bufMu.Lock()
	defer j.bufMu.Unlock()
	return j.flushLocked(ctx)
}

// Stats returns a snapshot of journal activity.
func (j *Journal) Stats() Stats {
	j.bufMu.Lock()
	defer j.bufMu.Unlock()
	st := j.stats
	st.Pending = len(j.buf)
	return st
}

// Dataset returns the underlying dataset, for queries.
func (j *Journal) Dataset() lode.Dataset { return j.dataset }

// Close flushes buffered records.
func (j *Journal) Close() error {
	return j.Flush(context.Background())
}

// dayFor pins the day partition on first use so a batch spanning midnight
// stays in one partition.
func (j *Journal) dayFor(at time.Time) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.day == "" {
		j.day = at.UTC().Format(time.DateOnly)
	}
	return j.day
}

func (j *Journal) append(ctx context.Context, rec any, flush bool) error {
	m, err := toMap(rec)
	if err != nil {
		j.metrics.IncJournalWriteFailure()
		return wrapError("write", j.cfg.Dataset, err)
	}

	j.bufMu.Lock()
	defer j.bufMu.Unlock()
	j.stats.Records++
	j.buf = append(j.buf, m)
	if flush || len(j.buf) >= j.flushEvery {
		return j.flushLocked(ctx)
	}
	return nil
}

func (j *Journal) flushLocked(ctx context.Context) error {
	if len(j.buf) == 0 {
		return nil
	}
	j.stats.Flushes++
	if _, err := j.dataset.Write(ctx, j.buf, lode.Metadata{}); err != nil {
		j.stats.Errors++
		j.metrics.IncJournalWriteFailure()
		return wrapError("write", j.cfg.Dataset, err)
	}
	j.stats.Persisted += int64(len(j.buf))
	j.buf = nil
	j.metrics.IncJournalWriteSuccess()
	return nil
}

// NewReadDataset opens a dataset with the journal layout and codec.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}
