package types

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorKind names a failure class for logs, journal records and metrics.
type ErrorKind string

// Failure classes. A request that fails always maps to exactly one kind.
const (
	KindUnknownParameter ErrorKind = "unknown_parameter"
	KindInvalidLevel     ErrorKind = "invalid_level"
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindArchiveClient    ErrorKind = "archive_client"
	KindMissingArtifact  ErrorKind = "missing_artifact"
	KindMaterialization  ErrorKind = "materialization"
	KindCanceled         ErrorKind = "canceled"
	KindUnknown          ErrorKind = "unknown"
)

// UnknownParameterError is returned when a parameter is absent from the catalog.
type UnknownParameterError struct {
	Param string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q", e.Param)
}

// InvalidLevelError is returned for a level tag that is neither surface
// nor a pressure level.
type InvalidLevelError struct {
	Tag    string
	Reason string
}

func (e *InvalidLevelError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid level %q: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("invalid level %q: must be sfc or pl<hPa>", e.Tag)
}

// InvalidRequestError is returned for a malformed year, step, area or format.
type InvalidRequestError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ArchiveClientError wraps a failure reported by the external archive client.
type ArchiveClientError struct {
	// Request is a printable rendition of the request, for diagnosis.
	Request string
	Err     error
}

func (e *ArchiveClientError) Error() string {
	return fmt.Sprintf("archive retrieval failed (%s): %v", e.Request, e.Err)
}

func (e *ArchiveClientError) Unwrap() error { return e.Err }

// MissingArtifactError is returned when the client reported success but the
// staging file does not exist.
type MissingArtifactError struct {
	Staging string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("archive client reported success but produced no file at %s", e.Staging)
}

// Sentinel causes of a MaterializationError. Match with errors.Is.
var (
	ErrDiskFull         = errors.New("no space left on device")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrCrossDevice      = errors.New("staging and destination are on different filesystems")
	ErrStaleStaging     = errors.New("staging file from a previous run is in the way")
	ErrNotRegularFile   = errors.New("destination exists and is not a regular file")
	ErrFilesystem       = errors.New("filesystem error")
)

// MaterializationError wraps a failure while creating the destination
// directory or moving the staging file into place.
type MaterializationError struct {
	// Kind is one of the sentinels above.
	Kind error
	// Op is the failing step: "stat", "stage", "mkdir", "rename".
	Op   string
	Path string
	Err  error
}

func (e *MaterializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// Is matches the classification sentinel as well as the wrapped cause.
func (e *MaterializationError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewMaterializationError classifies err and wraps it.
// Returns nil if err is nil.
func NewMaterializationError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &MaterializationError{Kind: ClassifyFSError(err), Op: op, Path: path, Err: err}
}

// ClassifyFSError maps a filesystem error onto a sentinel cause.
func ClassifyFSError(err error) error {
	switch {
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return ErrDiskFull
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, syscall.EXDEV):
		return ErrCrossDevice
	default:
		return ErrFilesystem
	}
}

// KindOf returns the failure class of err.
func KindOf(err error) ErrorKind {
	var (
		unknownParam *UnknownParameterError
		badLevel     *InvalidLevelError
		badRequest   *InvalidRequestError
		clientErr    *ArchiveClientError
		missing      *MissingArtifactError
		matErr       *MaterializationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &unknownParam):
		return KindUnknownParameter
	case errors.As(err, &badLevel):
		return KindInvalidLevel
	case errors.As(err, &badRequest):
		return KindInvalidRequest
	case errors.As(err, &missing):
		return KindMissingArtifact
	case errors.As(err, &matErr):
		return KindMaterialization
	case errors.As(err, &clientErr):
		return KindArchiveClient
	default:
		return KindUnknown
	}
}
