package repostore

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/aweris/repostore/internal/atomicfile"
	"github.com/aweris/repostore/internal/compression"
	"github.com/aweris/repostore/internal/location"
	"github.com/aweris/repostore/internal/metrics"
	"github.com/aweris/repostore/internal/store"
)

// Factory opens stores. All stores of a factory share one entry cache and
// one instance cache, so a Factory is normally created once per process.
type Factory struct {
	resolver  *location.Resolver
	entries   *store.EntryCache
	instances *store.InstanceCache
	deps      store.Deps
	logger    *zap.Logger
}

// New creates a factory for global stores rooted at baseDir. An empty baseDir
// selects DefaultBaseDir.
func New(baseDir string, opts ...Option) (*Factory, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if baseDir == "" {
		baseDir = DefaultBaseDir()
	}
	baseDir = expandPath(baseDir)

	var collector *metrics.Collector
	if options.Registerer != nil {
		var err error
		collector, err = metrics.NewCollector(options.Registerer)
		if err != nil {
			return nil, err
		}
	}

	replacer := atomicfile.New(
		atomicfile.WithLogger(options.Logger),
		atomicfile.WithObserver(func(o atomicfile.Outcome) { collector.Replace(string(o)) }),
	)
	entries := store.NewEntryCache(options.EntryCache, collector)

	return &Factory{
		resolver:  location.NewResolver(baseDir, options.Locator),
		entries:   entries,
		instances: store.NewInstanceCache(options.InstanceCache, collector),
		logger:    options.Logger,
		deps: store.Deps{
			Replacer:    replacer,
			Codec:       options.Codec,
			Cache:       entries,
			Keys:        options.Keys,
			Compressor:  compression.NewCompressor(options.Compression, options.Compression > 0),
			Logger:      options.Logger,
			AtomicBlobs: options.AtomicBlobs,
			Concurrency: options.Concurrency,
		},
	}, nil
}

// BaseDir returns the directory global stores live under.
func (f *Factory) BaseDir() string { return f.resolver.Base() }

// Locate returns the directory of a store, creating it if needed. For config
// stores it returns the store file. Stores of unknown repositories fail with
// ErrLocationNotFound.
func (f *Factory) Locate(loc Location) (string, error) {
	if loc.Kind == location.Config {
		return f.resolver.File(loc)
	}
	return f.resolver.Directory(loc)
}

// LookupLocation is Locate for callers that skip stores of repositories that
// no longer exist: found is false and err is nil in that case.
func (f *Factory) LookupLocation(loc Location) (path string, found bool, err error) {
	if loc.Kind != location.Config {
		return f.resolver.LookupDirectory(loc)
	}
	path, err = f.resolver.File(loc)
	if errors.Is(err, location.ErrLocationNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// InvalidateCache drops every cached entry. Stores read from disk again on
// their next Get.
func (f *Factory) InvalidateCache() {
	f.entries.Clear()
}

// Config opens the configuration store name holding a T.
func Config[T any](f *Factory, name string, opts ...StoreOption) (ConfigStore[T], error) {
	o := storeOptions(opts)
	loc := Location{Kind: location.Config, Name: name, Owner: o.Repository}
	return store.Instance(f.instances, f.key(loc, reflect.TypeFor[T](), o.ReadOnly), func() (ConfigStore[T], error) {
		file, err := f.resolver.File(loc)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", loc, err)
		}
		f.logger.Debug("opened store", zap.Stringer("location", loc), zap.String("path", file))
		return store.NewConfigStore[T](file, o.ReadOnly, f.deps), nil
	})
}

// Data opens the data store name holding T values.
func Data[T any](f *Factory, name string, opts ...StoreOption) (DataStore[T], error) {
	o := storeOptions(opts)
	loc := Location{Kind: location.Data, Name: name, Owner: o.Repository}
	return store.Instance(f.instances, f.key(loc, reflect.TypeFor[T](), o.ReadOnly), func() (DataStore[T], error) {
		dir, err := f.resolver.Directory(loc)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", loc, err)
		}
		f.logger.Debug("opened store", zap.Stringer("location", loc), zap.String("path", dir))
		return store.NewDataStore[T](dir, loc.Kind.Suffix(), o.ReadOnly, f.deps), nil
	})
}

// Blobs opens the blob store name.
func Blobs(f *Factory, name string, opts ...StoreOption) (BlobStore, error) {
	o := storeOptions(opts)
	loc := Location{Kind: location.Blob, Name: name, Owner: o.Repository}
	return store.Instance(f.instances, f.key(loc, nil, o.ReadOnly), func() (BlobStore, error) {
		dir, err := f.resolver.Directory(loc)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", loc, err)
		}
		f.logger.Debug("opened store", zap.Stringer("location", loc), zap.String("path", dir))
		return store.NewBlobStore(dir, loc.Kind.Suffix(), o.ReadOnly, f.deps), nil
	})
}

func (f *Factory) key(loc Location, typ reflect.Type, readOnly bool) store.InstanceKey {
	return store.InstanceKey{
		Kind:     loc.Kind,
		Type:     typ,
		Name:     loc.Name,
		Owner:    loc.Owner,
		ReadOnly: readOnly,
	}
}
