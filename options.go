package repostore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/aweris/repostore/internal/codec"
	"github.com/aweris/repostore/internal/keygen"
	"github.com/aweris/repostore/internal/location"
)

// DefaultConcurrency bounds parallel file operations of GetAll and Clear.
const DefaultConcurrency = 8

// Options configures a Factory.
type Options struct {
	Logger        *zap.Logger
	Locator       RepositoryLocator
	Codec         Codec
	Keys          KeyGenerator
	EntryCache    bool
	InstanceCache bool
	// Compression is the zstd level (1-4) for blob output streams. Zero
	// disables compression.
	Compression int
	AtomicBlobs bool
	Registerer  prometheus.Registerer
	Concurrency int
}

// Option is a functional option for configuring New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Logger:        zap.NewNop(),
		Codec:         codec.XML{},
		Keys:          keygen.UUID{},
		EntryCache:    true,
		InstanceCache: true,
		Concurrency:   DefaultConcurrency,
	}
}

// WithLogger sets the logger used by stores and the file replacer.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithRepositoryLocator enables repository owned stores.
func WithRepositoryLocator(l RepositoryLocator) Option {
	return func(o *Options) { o.Locator = l }
}

// WithRepositoriesDir locates repositories as subdirectories of dir.
func WithRepositoriesDir(dir string) Option {
	return func(o *Options) { o.Locator = location.DirLocator{Root: expandPath(dir)} }
}

// WithCodec replaces the XML codec for config and data stores. File names
// keep the .xml suffix whatever the codec, so the on-disk layout stays the
// same; only the file content changes.
func WithCodec(c Codec) Option {
	return func(o *Options) {
		if c != nil {
			o.Codec = c
		}
	}
}

// WithKeyGenerator sets the generator for Add and Create.
func WithKeyGenerator(k KeyGenerator) Option {
	return func(o *Options) {
		if k != nil {
			o.Keys = k
		}
	}
}

// WithEntryCache toggles the shared entry cache.
func WithEntryCache(enabled bool) Option {
	return func(o *Options) { o.EntryCache = enabled }
}

// WithInstanceCache toggles store instance memoization.
func WithInstanceCache(enabled bool) Option {
	return func(o *Options) { o.InstanceCache = enabled }
}

// WithBlobCompression compresses blob output streams with zstd at level 1
// (fastest) to 4 (best). Level 0 turns compression off.
func WithBlobCompression(level int) Option {
	return func(o *Options) {
		if level >= 0 {
			o.Compression = level
		}
	}
}

// WithAtomicBlobs commits blob output streams with an atomic replace on
// Close instead of writing the blob file in place.
func WithAtomicBlobs() Option {
	return func(o *Options) { o.AtomicBlobs = true }
}

// WithMetrics registers Prometheus metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Options) { o.Registerer = reg }
}

// WithConcurrency sets the number of parallel file operations.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// StoreOptions selects one store of a Factory.
type StoreOptions struct {
	Repository string
	ReadOnly   bool
}

// StoreOption is a functional option for Config, Data and Blobs.
type StoreOption func(*StoreOptions)

// ForRepository opens the store owned by repository id instead of the
// global one.
func ForRepository(id string) StoreOption {
	return func(o *StoreOptions) { o.Repository = id }
}

// ReadOnly opens a store that rejects modifications.
func ReadOnly() StoreOption {
	return func(o *StoreOptions) { o.ReadOnly = true }
}

func storeOptions(opts []StoreOption) StoreOptions {
	var o StoreOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DefaultBaseDir returns the XDG data directory for global stores.
func DefaultBaseDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "repostore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "repostore")
	}
	return ".repostore"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
