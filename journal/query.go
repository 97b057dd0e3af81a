package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoSummaryFound is returned when no summary record matches.
var ErrNoSummaryFound = errors.New("no batch summary found")

// Filter narrows a query. Empty fields match everything.
type Filter struct {
	BatchID string
	Day     string
	// Status matches the status partition (created, already_exists,
	// failed, summary).
	Status string
	Param  string
}

// Outcomes returns the outcome records matching f, oldest first.
func Outcomes(ctx context.Context, ds lode.Dataset, f Filter) ([]OutcomeRecord, error) {
	var out []OutcomeRecord
	err := scan(ctx, ds, f, RecordKindOutcome, func(m map[string]any) error {
		if f.Param != "" && toString(m["param"]) != f.Param {
			return nil
		}
		var rec OutcomeRecord
		if err := fromMap(m, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })
	return out, nil
}

// Summaries returns the batch summaries matching f, most recent first.
func Summaries(ctx context.Context, ds lode.Dataset, f Filter) ([]SummaryRecord, error) {
	f.Status = ""
	var out []SummaryRecord
	err := scan(ctx, ds, f, RecordKindSummary, func(m map[string]any) error {
		var rec SummaryRecord
		if err := fromMap(m, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt > out[j].CompletedAt })
	return out, nil
}

// LatestSummary returns the most recent summary, optionally for one batch.
func LatestSummary(ctx context.Context, ds lode.Dataset, batchID string) (SummaryRecord, error) {
	sums, err := Summaries(ctx, ds, Filter{BatchID: batchID})
	if err != nil {
		return SummaryRecord{}, err
	}
	if len(sums) == 0 {
		return SummaryRecord{}, ErrNoSummaryFound
	}
	return sums[0], nil
}

// scan visits every distinct record of kind matching the partition filter.
// Manifest paths are a coarse pre-filter; record fields are authoritative,
// and record_id dedupes records seen through more than one snapshot.
func scan(ctx context.Context, ds lode.Dataset, f Filter, kind string, visit func(map[string]any) error) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return wrapError("read", fmt.Sprintf("%s/snapshots", ds.ID()), err)
	}

	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		if !snapshotMatches(snap, "batch_id", f.BatchID) ||
			!snapshotMatches(snap, "day", f.Day) ||
			!snapshotMatches(snap, "status", f.Status) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return wrapError("read", fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID), err)
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || m["record_kind"] != kind {
				continue
			}
			if !fieldMatches(m, "batch_id", f.BatchID) ||
				!fieldMatches(m, "day", f.Day) ||
				!fieldMatches(m, "status", f.Status) {
				continue
			}
			id := toString(m["record_id"])
			if _, dup := seen[id]; dup && id != "" {
				continue
			}
			seen[id] = struct{}{}
			if err := visit(m); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldMatches(m map[string]any, key, want string) bool {
	return want == "" || toString(m[key]) == want
}

// snapshotMatches reports whether any manifest file sits under the exact
// key=value Hive segment. Exact segment matching keeps batch-1 from
// matching batch-10.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
