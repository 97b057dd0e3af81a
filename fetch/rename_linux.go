//go:build linux

package fetch

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/justapithecus/strata/iox"
)

// renameNoReplace moves oldpath to newpath, failing with an fs.ErrExist
// compatible error if newpath already exists.
//
// Filesystems without renameat2 support fall back to link+unlink, which
// keeps the no-replace guarantee at the cost of a brief second name.
func renameNoReplace(oldpath, newpath string) error {
	err := unix.Renameat2(unix.AT_FDCWD, oldpath, unix.AT_FDCWD, newpath, unix.RENAME_NOREPLACE)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.ENOSYS) && !errors.Is(err, unix.EINVAL) {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	if err := os.Link(oldpath, newpath); err != nil {
		return err
	}
	return iox.RemoveIfExists(oldpath)
}

// syncDir flushes directory metadata so a completed rename survives a crash.
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer func() { _ = unix.Close(fd) }()
	return unix.Fsync(fd)
}
