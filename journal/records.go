package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/justapithecus/strata/fetch"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// Record kind discriminators.
const (
	RecordKindOutcome = "fetch_outcome"
	RecordKindSummary = "batch_summary"
)

// StatusSummary is the status partition value of summary records.
const StatusSummary = "summary"

// OutcomeRecord is the stored form of one request outcome.
// Day, BatchID and Status are the Hive partition keys.
type OutcomeRecord struct {
	RecordKind      string `json:"record_kind"`
	RecordID        string `json:"record_id"`
	ContractVersion string `json:"contract_version"`

	Day     string `json:"day"`
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`

	Archive   string `json:"archive"`
	Param     string `json:"param"`
	Level     string `json:"level"`
	Year      string `json:"year"`
	Step      string `json:"step"`
	Area      string `json:"area"`
	Format    string `json:"format"`
	Overwrite bool   `json:"overwrite"`

	Path       string `json:"path,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	FailedIn   string `json:"failed_in,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Ts         string `json:"ts"`
}

// SummaryRecord is the stored form of a finished batch.
type SummaryRecord struct {
	RecordKind      string `json:"record_kind"`
	RecordID        string `json:"record_id"`
	ContractVersion string `json:"contract_version"`

	Day     string `json:"day"`
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`

	Archive      string           `json:"archive"`
	Root         string           `json:"root"`
	Requests     int64            `json:"requests"`
	Created      int64            `json:"created"`
	Skipped      int64            `json:"skipped"`
	Failed       int64            `json:"failed"`
	FailedByKind map[string]int64 `json:"failed_by_kind,omitempty"`
	ArchiveCalls int64            `json:"archive_calls"`
	Bytes        int64            `json:"bytes_materialized"`
	Interrupted  bool             `json:"interrupted"`
	StartedAt    string           `json:"started_at"`
	CompletedAt  string           `json:"completed_at"`
	DurationMs   int64            `json:"duration_ms"`
}

// Summary describes a finished batch for Summarize.
type Summary struct {
	Meta        types.BatchMeta
	Metrics     metrics.Snapshot
	Interrupted bool
	StartedAt   time.Time
	CompletedAt time.Time
}

func newOutcomeRecord(id, day string, meta types.BatchMeta, res fetch.Result, at time.Time) OutcomeRecord {
	d := res.Descriptor
	format := d.Format
	if format == "" {
		format = types.FormatGRIB
	}
	rec := OutcomeRecord{
		RecordKind:      RecordKindOutcome,
		RecordID:        id,
		ContractVersion: types.Version,
		Day:             day,
		BatchID:         meta.BatchID,
		Status:          string(res.Status),
		Archive:         meta.Archive,
		Param:           d.Param,
		Level:           d.Level.String(),
		Year:            d.Year,
		Step:            d.Step,
		Area:            d.Area.String(),
		Format:          string(format),
		Overwrite:       d.Overwrite,
		Path:            res.Path,
		Bytes:           res.Bytes,
		DurationMs:      res.Duration.Milliseconds(),
		Ts:              at.UTC().Format(time.RFC3339Nano),
	}
	if res.Err != nil {
		rec.ErrorKind = string(res.Kind())
		rec.Error = res.Err.Error()
		rec.FailedIn = string(res.FailedIn)
	}
	return rec
}

func newSummaryRecord(id, day string, s Summary) SummaryRecord {
	m := s.Metrics
	return SummaryRecord{
		RecordKind:      RecordKindSummary,
		RecordID:        id,
		ContractVersion: types.Version,
		Day:             day,
		BatchID:         s.Meta.BatchID,
		Status:          StatusSummary,
		Archive:         s.Meta.Archive,
		Root:            s.Meta.Root,
		Requests:        m.Requests,
		Created:         m.Created,
		Skipped:         m.Skipped,
		Failed:          m.Failed,
		FailedByKind:    m.FailedByKind,
		ArchiveCalls:    m.ArchiveCalls,
		Bytes:           m.BytesMaterialized,
		Interrupted:     s.Interrupted,
		StartedAt:       s.StartedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt:     s.CompletedAt.UTC().Format(time.RFC3339Nano),
		DurationMs:      s.CompletedAt.Sub(s.StartedAt).Milliseconds(),
	}
}

// toMap converts a record struct into the map form lode partitions on.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// fromMap decodes a stored record into dst.
func fromMap(m map[string]any, dst any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %v record: %w", m["record_kind"], err)
	}
	return nil
}
