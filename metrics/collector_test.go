package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("webapi", "fs", "batch-001")

	c.IncRequest()
	c.IncRequest()
	c.IncRequest()
	c.IncRequest()
	c.IncCreated()
	c.IncSkipped()
	c.IncFailed("archive_client")
	c.IncFailed("archive_client")
	c.IncFailed("unknown_parameter")
	c.IncArchiveCall()
	c.IncArchiveCall()
	c.IncArchiveFailure()
	c.AddBytesMaterialized(1024)
	c.AddBytesMaterialized(0)
	c.AddBytesMaterialized(-5)
	c.IncJournalWriteSuccess()
	c.IncJournalWriteSuccess()
	c.IncJournalWriteFailure()
	c.IncMirrorWriteSuccess()
	c.IncMirrorWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"Requests", s.Requests, 4},
		{"Created", s.Created, 1},
		{"Skipped", s.Skipped, 1},
		{"Failed", s.Failed, 3},
		{"ArchiveCalls", s.ArchiveCalls, 2},
		{"ArchiveFailures", s.ArchiveFailures, 1},
		{"BytesMaterialized", s.BytesMaterialized, 1024},
		{"JournalWriteSuccess", s.JournalWriteSuccess, 2},
		{"JournalWriteFailure", s.JournalWriteFailure, 1},
		{"MirrorWriteSuccess", s.MirrorWriteSuccess, 1},
		{"MirrorWriteFailure", s.MirrorWriteFailure, 1},
		{"FailedByKind[archive_client]", s.FailedByKind["archive_client"], 2},
		{"FailedByKind[unknown_parameter]", s.FailedByKind["unknown_parameter"], 1},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("gcs", "s3", "batch-42")
	s := c.Snapshot()

	if s.Archive != "gcs" {
		t.Errorf("Archive = %q, want %q", s.Archive, "gcs")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
	if s.BatchID != "batch-42" {
		t.Errorf("BatchID = %q, want %q", s.BatchID, "batch-42")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.IncRequest()
	c.IncCreated()
	c.IncSkipped()
	c.IncFailed("x")
	c.IncArchiveCall()
	c.IncArchiveFailure()
	c.AddBytesMaterialized(10)
	c.IncJournalWriteSuccess()
	c.IncJournalWriteFailure()
	c.IncMirrorWriteSuccess()
	c.IncMirrorWriteFailure()

	s := c.Snapshot()
	if s.Requests != 0 || s.FailedByKind != nil {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("webapi", "", "b")
	c.IncFailed("materialization")

	s := c.Snapshot()
	s.FailedByKind["materialization"] = 99

	c.IncFailed("materialization")
	s2 := c.Snapshot()
	if s2.FailedByKind["materialization"] != 2 {
		t.Errorf("snapshot mutation leaked: got %d, want 2", s2.FailedByKind["materialization"])
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("webapi", "fs", "b")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncRequest()
			c.IncFailed("archive_client")
			c.AddBytesMaterialized(2)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Requests != 50 || s.Failed != 50 || s.BytesMaterialized != 100 {
		t.Errorf("concurrent totals = %+v", s)
	}
}
