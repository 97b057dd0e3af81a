// Package iox holds small cleanup helpers.
package iox

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// DiscardClose closes c, ignoring the error. For defers on readers and
// response bodies where a close failure changes nothing.
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc adapts c for t.Cleanup.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// RemoveIfExists removes path. A missing file is not an error, so staging
// cleanup can run unconditionally.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
