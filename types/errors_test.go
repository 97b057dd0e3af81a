package types //nolint:revive // types is a valid package name

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&UnknownParameterError{Param: "bogus"}, KindUnknownParameter},
		{&InvalidLevelError{Tag: "ml"}, KindInvalidLevel},
		{&InvalidRequestError{Field: "year"}, KindInvalidRequest},
		{&ArchiveClientError{Err: errors.New("boom")}, KindArchiveClient},
		{&MissingArtifactError{Staging: "data/temp_x"}, KindMissingArtifact},
		{NewMaterializationError("rename", "x", syscall.ENOSPC), KindMaterialization},
		{fmt.Errorf("wrapped: %w", &UnknownParameterError{Param: "x"}), KindUnknownParameter},
		{&ArchiveClientError{Err: context.Canceled}, KindCanceled},
		{errors.New("other"), KindUnknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestMaterializationError_Classification(t *testing.T) {
	tests := []struct {
		cause error
		want  error
	}{
		{syscall.ENOSPC, ErrDiskFull},
		{fs.ErrPermission, ErrPermissionDenied},
		{&fs.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}, ErrNotFound},
		{&fs.PathError{Op: "rename", Path: "x", Err: syscall.EXDEV}, ErrCrossDevice},
		{errors.New("odd"), ErrFilesystem},
	}
	for _, tt := range tests {
		err := NewMaterializationError("rename", "data/x", tt.cause)
		if !errors.Is(err, tt.want) {
			t.Errorf("cause %v: errors.Is(%v) = false", tt.cause, tt.want)
		}
		if !errors.Is(err, tt.cause) {
			t.Errorf("cause %v lost from the chain", tt.cause)
		}
	}

	if NewMaterializationError("rename", "x", nil) != nil {
		t.Error("nil cause should produce nil error")
	}
}
