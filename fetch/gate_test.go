package fetch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/strata/types"
)

func TestGate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.grb")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "absent.grb")

	tests := []struct {
		name      string
		path      string
		overwrite bool
		want      Decision
	}{
		{"absent", missing, false, Proceed},
		{"absent overwrite", missing, true, Proceed},
		{"present", file, false, Skip},
		{"present overwrite", file, true, Proceed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Gate(tt.path, tt.overwrite)
			if err != nil {
				t.Fatalf("Gate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Gate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGate_Directory(t *testing.T) {
	dir := t.TempDir()
	for _, overwrite := range []bool{false, true} {
		_, err := Gate(dir, overwrite)
		if !errors.Is(err, types.ErrNotRegularFile) {
			t.Errorf("overwrite=%v: err = %v, want ErrNotRegularFile", overwrite, err)
		}
	}
}

func TestRenameNoReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	if err := os.WriteFile(src, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := renameNoReplace(src, dst); err != nil {
		t.Fatalf("renameNoReplace: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("src still present")
	}

	if err := os.WriteFile(src, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := renameNoReplace(src, dst)
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("second rename err = %v, want ErrExist", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "a" {
		t.Errorf("dst replaced: %q", data)
	}
	if err := syncDir(dir); err != nil {
		t.Errorf("syncDir: %v", err)
	}
}
