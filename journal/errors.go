package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
)

// Storage failure kinds. Match with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrDiskFull         = errors.New("no space left on device")
	ErrTimeout          = errors.New("operation timed out")
	ErrThrottled        = errors.New("rate limited")
	// ErrAuth is missing or rejected credentials; ErrAccessDenied is valid
	// credentials without permission.
	ErrAuth         = errors.New("authentication failed")
	ErrAccessDenied = errors.New("access denied")
	ErrNetwork      = errors.New("network error")
	ErrStorage      = errors.New("storage error")
)

// StorageError is a journal or mirror failure with its kind.
type StorageError struct {
	Kind error
	// Op is init, write, read or mirror.
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("journal %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("journal %s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches the kind sentinel.
func (e *StorageError) Is(target error) bool { return e.Kind == target }

// wrapError classifies err for op. Returns nil if err is nil.
func wrapError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: op, Path: path, Err: err}
}

// s3Codes maps S3 API error codes to kinds.
var s3Codes = map[string]error{
	"AccessDenied":          ErrAccessDenied,
	"AllAccessDisabled":     ErrAccessDenied,
	"NoSuchBucket":          ErrNotFound,
	"NoSuchKey":             ErrNotFound,
	"NotFound":              ErrNotFound,
	"SlowDown":              ErrThrottled,
	"Throttling":            ErrThrottled,
	"RequestTimeout":        ErrTimeout,
	"InvalidAccessKeyId":    ErrAuth,
	"SignatureDoesNotMatch": ErrAuth,
	"ExpiredToken":          ErrAuth,
}

// messageRules classify errors that carry no usable type. First match wins.
var messageRules = []struct {
	kind     error
	patterns []string
}{
	{ErrPermissionDenied, []string{"permission denied", "eacces"}},
	{ErrAccessDenied, []string{"accessdenied", "access denied", "forbidden", "403"}},
	{ErrNotFound, []string{"no such file", "does not exist", "not found", "nosuchkey", "nosuchbucket", "404"}},
	{ErrDiskFull, []string{"no space left", "disk full", "quota exceeded"}},
	{ErrTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrThrottled, []string{"slowdown", "rate exceeded", "throttl", "429", "toomanyrequests"}},
	{ErrAuth, []string{"nocredentialproviders", "credentials", "invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"}},
	{ErrNetwork, []string{"connection refused", "no route to host", "network unreachable", "no such host", "dial tcp"}},
}

func classifyError(err error) error {
	var timeout interface{ Timeout() bool }
	var api smithy.APIError
	switch {
	case errors.As(err, &timeout) && timeout.Timeout():
		return ErrTimeout
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return ErrDiskFull
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.As(err, &api):
		if kind, ok := s3Codes[api.ErrorCode()]; ok {
			return kind
		}
	}

	msg := strings.ToLower(err.Error())
	for _, r := range messageRules {
		for _, p := range r.patterns {
			if strings.Contains(msg, p) {
				return r.kind
			}
		}
	}
	return ErrStorage
}
