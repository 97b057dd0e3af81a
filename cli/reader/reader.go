package reader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/strata/journal"
	"github.com/justapithecus/strata/layout"
)

// ErrNoJournal is returned by journal queries when no journal is configured.
var ErrNoJournal = errors.New("no journal configured (set journal.backend)")

// Reader serves read-only views of a root, its staging directory and an
// optional journal dataset.
type Reader struct {
	root    string
	staging string
	journal lode.Dataset
	now     func() time.Time
}

// New creates a reader. journal may be nil.
func New(root, staging string, journal lode.Dataset) *Reader {
	if root == "" {
		root = layout.DefaultRoot
	}
	if staging == "" {
		staging = root
	}
	return &Reader{root: root, staging: staging, journal: journal, now: time.Now}
}

// Inventory walks the root and parses every file it finds.
// A missing root yields an empty inventory.
func (r *Reader) Inventory() (*Inventory, error) {
	inv := &Inventory{
		Root:    r.root,
		Files:   []InventoryItem{},
		ByArea:  map[string]int{},
		ByParam: map[string]int{},
		ByLevel: map[string]int{},
	}
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(d.Name(), layout.StagingPrefix) {
			inv.Staging++
			return nil
		}
		item, ok := r.parse(path, d)
		if !ok {
			inv.Unrecognized = append(inv.Unrecognized, path)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		item.Bytes = info.Size()
		item.ModTime = info.ModTime()

		inv.Files = append(inv.Files, item)
		inv.TotalBytes += item.Bytes
		inv.ByArea[item.Area]++
		inv.ByParam[item.Param]++
		inv.ByLevel[item.Level]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.root, err)
	}
	sort.Slice(inv.Files, func(i, j int) bool { return inv.Files[i].Path < inv.Files[j].Path })
	return inv, nil
}

// parse recovers the layout key from a path of the form
// <root>/<area dir>/<param dir>/<file>.
func (r *Reader) parse(path string, d fs.DirEntry) (InventoryItem, bool) {
	key, err := layout.ParseFilename(d.Name())
	if err != nil {
		return InventoryItem{}, false
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return InventoryItem{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return InventoryItem{}, false
	}
	area, err := layout.ParseAreaDir(parts[0])
	if err != nil {
		return InventoryItem{}, false
	}
	return itemFromKey(key, area.String(), path), true
}

// StagingFiles lists temp_ files in the staging directory and, when the
// staging directory is the root, anywhere below it. Only files older than
// minAge are returned.
func (r *Reader) StagingFiles(minAge time.Duration) ([]StagingFile, error) {
	out := []StagingFile{}
	now := r.now()
	err := filepath.WalkDir(r.staging, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.staging && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != r.staging && r.staging != r.root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasPrefix(d.Name(), layout.StagingPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		age := now.Sub(info.ModTime())
		if age < minAge {
			return nil
		}
		out = append(out, StagingFile{Path: path, Bytes: info.Size(), Age: age})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan staging %s: %w", r.staging, err)
	}
	return out, nil
}

// CleanStaging removes the files returned by StagingFiles. With dryRun set
// nothing is removed. Files that vanished meanwhile count as removed.
func (r *Reader) CleanStaging(minAge time.Duration, dryRun bool) ([]StagingFile, error) {
	files, err := r.StagingFiles(minAge)
	if err != nil || dryRun {
		return files, err
	}
	var errs []error
	for i := range files {
		if err := os.Remove(files[i].Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		files[i].Removed = true
	}
	return files, errors.Join(errs...)
}

// Outcomes returns journaled fetch outcomes, oldest first.
func (r *Reader) Outcomes(ctx context.Context, f journal.Filter) ([]journal.OutcomeRecord, error) {
	if r.journal == nil {
		return nil, ErrNoJournal
	}
	out, err := journal.Outcomes(ctx, r.journal, f)
	if out == nil && err == nil {
		out = []journal.OutcomeRecord{}
	}
	return out, err
}

// Batches returns journaled batch summaries, newest first.
func (r *Reader) Batches(ctx context.Context, f journal.Filter) ([]journal.SummaryRecord, error) {
	if r.journal == nil {
		return nil, ErrNoJournal
	}
	out, err := journal.Summaries(ctx, r.journal, f)
	if out == nil && err == nil {
		out = []journal.SummaryRecord{}
	}
	return out, err
}
