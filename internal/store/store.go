// Package store implements the file-backed stores.
//
// Three store kinds share one engine:
//   - ConfigStore keeps a single value in one file.
//   - DataStore keeps values in one file per id.
//   - BlobStore keeps raw byte streams in one file per id.
//
// Value writes go through an atomicfile.Replacer and are serialized per
// entry. Decoded values are served from a shared EntryCache keyed by
// absolute file path. Values returned from a store may be shared with the
// cache and other callers; treat them as read-only.
package store

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/aweris/repostore/internal/atomicfile"
	"github.com/aweris/repostore/internal/codec"
	"github.com/aweris/repostore/internal/compression"
	"github.com/aweris/repostore/internal/keygen"
)

var (
	ErrReadOnly      = errors.New("store: read-only store")
	ErrInvalidID     = errors.New("store: invalid entry id")
	ErrAlreadyExists = errors.New("store: entry already exists")
)

// ConfigStore holds one value.
type ConfigStore[T any] interface {
	// Get returns the stored value. A missing value is not an error.
	Get() (T, bool, error)

	// Set commits v and then notifies change listeners.
	Set(v T) error

	// OnChange registers fn to run after every successful Set.
	OnChange(fn func(T))
}

// DataStore holds values addressed by id.
type DataStore[T any] interface {
	// Put commits v under id.
	Put(id string, v T) error

	// Add commits v under a freshly generated id.
	Add(v T) (string, error)

	// Get returns the value for id. A missing entry is not an error.
	Get(id string) (T, bool, error)

	// GetAll decodes every entry of the store.
	GetAll() (map[string]T, error)

	// Remove deletes id. Removing a missing entry is a no-op.
	Remove(id string) error

	// Clear removes every entry, reporting all failures at once.
	Clear() error

	// OnChange registers fn to run after every successful Put or Remove.
	OnChange(fn func(id string, v T, removed bool))
}

// BlobStore holds raw byte streams addressed by id.
type BlobStore interface {
	// Create creates an empty blob with a generated id.
	Create() (Blob, error)

	// CreateWithID creates an empty blob. It fails with ErrAlreadyExists if
	// the id is taken.
	CreateWithID(id string) (Blob, error)

	Get(id string) (Blob, bool, error)
	GetAll() ([]Blob, error)
	Remove(id string) error
	Clear() error
}

// Blob is a handle to one stored stream.
type Blob interface {
	ID() string

	// OutputStream replaces the blob content with what is written until
	// Close.
	OutputStream() (io.WriteCloser, error)

	InputStream() (io.ReadCloser, error)

	// Size reports the number of bytes on disk.
	Size() (int64, error)
}

// Deps are the collaborators shared by every store built by one factory.
type Deps struct {
	Replacer   *atomicfile.Replacer
	Codec      codec.Codec
	Cache      *EntryCache
	Keys       keygen.Generator
	Compressor *compression.Compressor
	Logger     *zap.Logger

	// AtomicBlobs stages blob writes and commits them with Replacer on
	// Close. Without it blob streams write straight to the blob file.
	AtomicBlobs bool

	// Concurrency bounds parallel file operations in GetAll and Clear.
	Concurrency int
}

const defaultConcurrency = 8

func (d Deps) withDefaults() Deps {
	if d.Replacer == nil {
		d.Replacer = atomicfile.New()
	}
	if d.Codec == nil {
		d.Codec = codec.XML{}
	}
	if d.Cache == nil {
		d.Cache = NewEntryCache(false, nil)
	}
	if d.Keys == nil {
		d.Keys = keygen.UUID{}
	}
	if d.Compressor == nil {
		d.Compressor = compression.NewCompressor(0, false)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Concurrency <= 0 {
		d.Concurrency = defaultConcurrency
	}
	return d
}
