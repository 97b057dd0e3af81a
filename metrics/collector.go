// Package metrics provides per-batch metrics collection.
//
// The Collector accumulates counters during a single batch. It is a leaf
// package with no internal dependencies; failure kinds are recorded as plain
// strings so callers decide the vocabulary.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all batch metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Requests
	Requests int64 `json:"requests"`
	Created  int64 `json:"created"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
	// FailedByKind counts failures by error kind.
	FailedByKind map[string]int64 `json:"failed_by_kind,omitempty"`

	// Archive client
	ArchiveCalls    int64 `json:"archive_calls"`
	ArchiveFailures int64 `json:"archive_failures"`

	// Materialization
	BytesMaterialized int64 `json:"bytes_materialized"`

	// Journal / mirror
	JournalWriteSuccess int64 `json:"journal_write_success"`
	JournalWriteFailure int64 `json:"journal_write_failure"`
	MirrorWriteSuccess  int64 `json:"mirror_write_success"`
	MirrorWriteFailure  int64 `json:"mirror_write_failure"`

	// Dimensions (informational, set at construction)
	Archive        string `json:"archive"`
	StorageBackend string `json:"storage_backend"`
	BatchID        string `json:"batch_id"`
}

// Collector accumulates metrics during a single batch.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	requests     int64
	created      int64
	skipped      int64
	failed       int64
	failedByKind map[string]int64

	archiveCalls    int64
	archiveFailures int64

	bytesMaterialized int64

	journalWriteSuccess int64
	journalWriteFailure int64
	mirrorWriteSuccess  int64
	mirrorWriteFailure  int64

	// Dimensions
	archive        string
	storageBackend string
	batchID        string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend names the journal backend ("fs", "s3", "memory" or "").
func NewCollector(archive, storageBackend, batchID string) *Collector {
	return &Collector{
		failedByKind:   make(map[string]int64),
		archive:        archive,
		storageBackend: storageBackend,
		batchID:        batchID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Requests ---

// IncRequest records a request entering the unit.
func (c *Collector) IncRequest() {
	if c == nil {
		return
	}
	c.add(&c.requests, 1)
}

// IncCreated records a materialized file.
func (c *Collector) IncCreated() {
	if c == nil {
		return
	}
	c.add(&c.created, 1)
}

// IncSkipped records a request skipped because the file already existed.
func (c *Collector) IncSkipped() {
	if c == nil {
		return
	}
	c.add(&c.skipped, 1)
}

// IncFailed records a failed request under its error kind.
func (c *Collector) IncFailed(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.failed++
	c.failedByKind[kind]++
	c.mu.Unlock()
}

// --- Archive ---

// IncArchiveCall records one archive client invocation.
func (c *Collector) IncArchiveCall() {
	if c == nil {
		return
	}
	c.add(&c.archiveCalls, 1)
}

// IncArchiveFailure records an archive client failure.
func (c *Collector) IncArchiveFailure() {
	if c == nil {
		return
	}
	c.add(&c.archiveFailures, 1)
}

// AddBytesMaterialized records the size of a materialized file.
func (c *Collector) AddBytesMaterialized(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.add(&c.bytesMaterialized, n)
}

// --- Journal / mirror ---
// Journal counters are per-call, not per-record.

// IncJournalWriteSuccess records a successful journal write.
func (c *Collector) IncJournalWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteSuccess, 1)
}

// IncJournalWriteFailure records a failed journal write.
func (c *Collector) IncJournalWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteFailure, 1)
}

// IncMirrorWriteSuccess records a file copied to the mirror.
func (c *Collector) IncMirrorWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.mirrorWriteSuccess, 1)
}

// IncMirrorWriteFailure records a failed mirror copy.
func (c *Collector) IncMirrorWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.mirrorWriteFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.failedByKind))
	for k, v := range c.failedByKind {
		byKind[k] = v
	}

	return Snapshot{
		Requests:     c.requests,
		Created:      c.created,
		Skipped:      c.skipped,
		Failed:       c.failed,
		FailedByKind: byKind,

		ArchiveCalls:    c.archiveCalls,
		ArchiveFailures: c.archiveFailures,

		BytesMaterialized: c.bytesMaterialized,

		JournalWriteSuccess: c.journalWriteSuccess,
		JournalWriteFailure: c.journalWriteFailure,
		MirrorWriteSuccess:  c.mirrorWriteSuccess,
		MirrorWriteFailure:  c.mirrorWriteFailure,

		Archive:        c.archive,
		StorageBackend: c.storageBackend,
		BatchID:        c.batchID,
	}
}
