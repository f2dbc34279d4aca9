package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// FileDataStore stores one file per entry in a directory.
type FileDataStore[T any] struct {
	dir      string
	suffix   string
	readOnly bool
	deps     Deps
	cache    *TypedCache[T]
	locks    *entryLocks
	remove   func(string) error

	lmu       sync.RWMutex
	listeners []func(id string, v T, removed bool)
}

// NewDataStore creates a store over dir, which must exist. Entries are named
// id + suffix.
func NewDataStore[T any](dir, suffix string, readOnly bool, deps Deps) *FileDataStore[T] {
	deps = deps.withDefaults()
	return &FileDataStore[T]{
		dir:      dir,
		suffix:   suffix,
		readOnly: readOnly,
		deps:     deps,
		cache:    Typed[T](deps.Cache),
		locks:    newEntryLocks(),
		remove:   os.Remove,
	}
}

// Dir returns the store directory.
func (s *FileDataStore[T]) Dir() string { return s.dir }

func (s *FileDataStore[T]) Put(id string, v T) error {
	if s.readOnly {
		return fmt.Errorf("put %s: %w", id, ErrReadOnly)
	}
	if err := validateID(id); err != nil {
		return err
	}
	path := entryPath(s.dir, id, s.suffix)

	data, err := s.deps.Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	unlock := s.locks.Lock(id)
	err = s.deps.Replacer.WriteFile(path, data)
	if committed(err) {
		s.cache.Put(path, v)
	}
	unlock()

	if err != nil {
		err = fmt.Errorf("store %s: %w", path, err)
		if !committed(err) {
			return err
		}
	}
	s.notify(id, v, false)
	return err
}

func (s *FileDataStore[T]) Add(v T) (string, error) {
	id := s.deps.Keys.CreateKey()
	if err := s.Put(id, v); err != nil {
		return id, err
	}
	return id, nil
}

func (s *FileDataStore[T]) Get(id string) (T, bool, error) {
	if err := validateID(id); err != nil {
		var zero T
		return zero, false, err
	}
	path := entryPath(s.dir, id, s.suffix)
	return s.cache.Get(path, func() (T, bool, error) {
		return readDecoded[T](s.deps.Codec, path)
	})
}

type keyedValue[T any] struct {
	id    string
	value T
	found bool
}

func (s *FileDataStore[T]) GetAll() (map[string]T, error) {
	ids, err := listIDs(s.dir, s.suffix)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[keyedValue[T]]().
		WithErrors().
		WithMaxGoroutines(s.deps.Concurrency)
	for _, id := range ids {
		p.Go(func() (keyedValue[T], error) {
			v, found, err := s.Get(id)
			return keyedValue[T]{id: id, value: v, found: found}, err
		})
	}
	values, err := p.Wait()
	if err != nil {
		return nil, err
	}

	all := make(map[string]T, len(values))
	for _, kv := range values {
		// removed between listing and reading
		if !kv.found {
			continue
		}
		all[kv.id] = kv.value
	}
	return all, nil
}

func (s *FileDataStore[T]) Remove(id string) error {
	if s.readOnly {
		return fmt.Errorf("remove %s: %w", id, ErrReadOnly)
	}
	if err := validateID(id); err != nil {
		return err
	}
	path := entryPath(s.dir, id, s.suffix)

	unlock := s.locks.Lock(id)
	err := removeFile(s.remove, path)
	s.cache.Remove(path)
	unlock()

	if err != nil {
		return err
	}
	var zero T
	s.notify(id, zero, true)
	return nil
}

func (s *FileDataStore[T]) Clear() error {
	if s.readOnly {
		return fmt.Errorf("clear %s: %w", s.dir, ErrReadOnly)
	}
	ids, err := listIDs(s.dir, s.suffix)
	if err != nil {
		return err
	}

	p := pool.New().WithErrors().WithMaxGoroutines(s.deps.Concurrency)
	for _, id := range ids {
		p.Go(func() error { return s.Remove(id) })
	}
	if err := p.Wait(); err != nil {
		s.deps.Logger.Warn("clear left entries behind", zap.String("dir", s.dir), zap.Error(err))
		return fmt.Errorf("clear %s: %w", s.dir, err)
	}
	return nil
}

func (s *FileDataStore[T]) OnChange(fn func(id string, v T, removed bool)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *FileDataStore[T]) notify(id string, v T, removed bool) {
	s.lmu.RLock()
	listeners := append([]func(string, T, bool){}, s.listeners...)
	s.lmu.RUnlock()
	for _, fn := range listeners {
		fn(id, v, removed)
	}
}

var _ DataStore[struct{}] = (*FileDataStore[struct{}])(nil)
