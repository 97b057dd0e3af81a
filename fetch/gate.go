package fetch

import (
	"errors"
	"io/fs"
	"os"

	"github.com/justapithecus/strata/types"
)

// Decision is the existence gate verdict.
type Decision int

const (
	// Proceed means the request must be fetched.
	Proceed Decision = iota
	// Skip means the final file already exists and must not be replaced.
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "proceed"
}

// Gate decides whether a request needs fetching.
//
// Existence of the final path is the sole idempotency signal: a file that
// shares the name is trusted regardless of its content. A path that exists
// but is not a regular file fails with a *types.MaterializationError.
func Gate(path string, overwrite bool) (Decision, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Proceed, nil
	case err != nil:
		return Proceed, types.NewMaterializationError("stat", path, err)
	case !info.Mode().IsRegular():
		return Proceed, &types.MaterializationError{Kind: types.ErrNotRegularFile, Op: "stat", Path: path}
	case overwrite:
		return Proceed, nil
	default:
		return Skip, nil
	}
}
