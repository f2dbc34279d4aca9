package repostore

import (
	"github.com/aweris/repostore/internal/atomicfile"
	"github.com/aweris/repostore/internal/codec"
	"github.com/aweris/repostore/internal/location"
	"github.com/aweris/repostore/internal/store"
)

var (
	ErrInvalidTarget       = atomicfile.ErrInvalidTarget
	ErrWriteFailed         = atomicfile.ErrWriteFailed
	ErrReplaceFailed       = atomicfile.ErrReplaceFailed
	ErrBackupCleanupFailed = atomicfile.ErrBackupCleanupFailed

	ErrLocationNotFound = location.ErrLocationNotFound
	ErrInvalidLocation  = location.ErrInvalidLocation

	ErrEncodeFailed = codec.ErrEncodeFailed
	ErrDecodeFailed = codec.ErrDecodeFailed

	ErrReadOnly      = store.ErrReadOnly
	ErrInvalidID     = store.ErrInvalidID
	ErrAlreadyExists = store.ErrAlreadyExists
)

// ReplaceError is the error returned by failed file replacements. It matches
// both its kind sentinel and the underlying cause with errors.Is.
type ReplaceError = atomicfile.Error
