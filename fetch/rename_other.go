//go:build !linux

package fetch

import (
	"os"

	"github.com/justapithecus/strata/iox"
)

func renameNoReplace(oldpath, newpath string) error {
	if err := os.Link(oldpath, newpath); err != nil {
		return err
	}
	return iox.RemoveIfExists(oldpath)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(f)
	return f.Sync()
}
