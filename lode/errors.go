package lode

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel storage failure kinds. Match with errors.Is.
var (
	// ErrPermissionDenied indicates a local permission failure (EACCES).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound indicates the target path or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDiskFull indicates storage is out of space.
	ErrDiskFull = errors.New("no space left on device")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrThrottled indicates rate limiting (429, SlowDown).
	ErrThrottled = errors.New("rate limited")

	// ErrAuth indicates missing or rejected credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrAccessDenied indicates valid credentials without permission (403).
	ErrAccessDenied = errors.New("access denied")

	// ErrNetwork indicates a network-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")

	// ErrStorage is the kind of failures no other kind matches.
	ErrStorage = errors.New("storage error")
)

// StorageError is a classified storage failure. The original error stays
// in the chain for errors.As.
type StorageError struct {
	// Kind is the sentinel for classification (e.g. ErrThrottled).
	Kind error
	// Op is the operation that failed ("write", "read", "init").
	Op string
	// Path is the storage path or dataset involved, if any.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error's kind matches target.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewStorageError creates a classified storage error.
func NewStorageError(kind error, op, path string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Path: path, Err: err}
}

// WrapWriteError classifies a write failure. Returns nil if err is nil.
func WrapWriteError(err error, path string) error {
	return wrap(err, "write", path)
}

// WrapReadError classifies a read failure. Returns nil if err is nil.
func WrapReadError(err error, path string) error {
	return wrap(err, "read", path)
}

// WrapInitError classifies a client initialization failure.
// Returns nil if err is nil.
func WrapInitError(err error, dataset string) error {
	return wrap(err, "init", dataset)
}

func wrap(err error, op, path string) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return NewStorageError(classifyError(err), op, path, err)
}

// classification rules, checked in order after typed timeouts.
var classes = []struct {
	kind     error
	patterns []string
}{
	{ErrAccessDenied, []string{"accessdenied", "forbidden", "403"}},
	{ErrPermissionDenied, []string{"permission denied", "eacces"}},
	{ErrNotFound, []string{"no such file", "does not exist", "not found", "enoent", "404", "nosuchkey", "nosuchbucket"}},
	{ErrDiskFull, []string{"no space left", "disk full", "enospc", "quota exceeded"}},
	{ErrTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrThrottled, []string{"slowdown", "rate exceeded", "throttl", "429", "toomanyrequests"}},
	{ErrAuth, []string{"nocredentialproviders", "credentials", "invalidaccesskeyid", "signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"}},
	{ErrNetwork, []string{"connection refused", "no route to host", "network unreachable", "dns", "dial tcp"}},
}

// classifyError picks the sentinel kind for err from its type and message.
func classifyError(err error) error {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, c := range classes {
		for _, p := range c.patterns {
			if strings.Contains(msg, p) {
				return c.kind
			}
		}
	}
	return ErrStorage
}
