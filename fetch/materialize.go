package fetch

import (
	"errors"
	"io/fs"
	"os"

	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/types"
)

// dirPerm is the mode of created destination directories.
const dirPerm = 0o755

// errLostRace marks a no-replace rename that found the destination taken.
var errLostRace = errors.New("destination appeared while fetching")

// checkStaging refuses to reuse a staging file left behind by an earlier
// run. Its provenance is unknown, so neither the client nor the rename may
// touch it.
func checkStaging(staging string) error {
	_, err := os.Lstat(staging)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return types.NewMaterializationError("stage", staging, err)
	default:
		return &types.MaterializationError{Kind: types.ErrStaleStaging, Op: "stage", Path: staging}
	}
}

// stagedSize returns the size of the produced staging file.
func stagedSize(staging string) (int64, error) {
	info, err := os.Lstat(staging)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return 0, &types.MissingArtifactError{Staging: staging}
	case err != nil:
		return 0, types.NewMaterializationError("stat", staging, err)
	case !info.Mode().IsRegular():
		return 0, &types.MaterializationError{Kind: types.ErrNotRegularFile, Op: "stat", Path: staging}
	}
	return info.Size(), nil
}

// materialize moves staging to final inside dir.
//
// With overwrite the rename replaces any existing file. Without it the
// rename refuses to replace, and returns errLostRace when a concurrent
// writer got there first; the staging file is discarded in that case.
// On any other failure the staging file is removed so a rerun can proceed.
func materialize(staging, dir, final string, overwrite bool) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		_ = iox.RemoveIfExists(staging)
		return types.NewMaterializationError("mkdir", dir, err)
	}

	var err error
	if overwrite {
		err = os.Rename(staging, final)
	} else {
		err = renameNoReplace(staging, final)
	}
	switch {
	case err == nil:
	case !overwrite && errors.Is(err, fs.ErrExist):
		_ = iox.RemoveIfExists(staging)
		return errLostRace
	default:
		_ = iox.RemoveIfExists(staging)
		return types.NewMaterializationError("rename", final, err)
	}

	// Best-effort: the file is already in place.
	_ = syncDir(dir)
	return nil
}
