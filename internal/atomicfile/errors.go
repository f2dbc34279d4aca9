package atomicfile

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTarget       = errors.New("atomicfile: invalid target")
	ErrWriteFailed         = errors.New("atomicfile: write failed")
	ErrReplaceFailed       = errors.New("atomicfile: replace failed")
	ErrBackupCleanupFailed = errors.New("atomicfile: backup cleanup failed")
)

// Error describes a failed replace. It matches both its Kind sentinel and
// the underlying cause with errors.Is.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
