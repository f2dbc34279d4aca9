package store

import (
	"fmt"
	"sync"
)

// FileConfigStore stores a single value in one file.
type FileConfigStore[T any] struct {
	file     string
	readOnly bool
	deps     Deps
	cache    *TypedCache[T]

	// serializes Set
	mu sync.Mutex

	lmu       sync.RWMutex
	listeners []func(T)
}

// NewConfigStore creates a store backed by file. The parent directory must
// exist.
func NewConfigStore[T any](file string, readOnly bool, deps Deps) *FileConfigStore[T] {
	deps = deps.withDefaults()
	return &FileConfigStore[T]{
		file:     file,
		readOnly: readOnly,
		deps:     deps,
		cache:    Typed[T](deps.Cache),
	}
}

// Path returns the backing file.
func (s *FileConfigStore[T]) Path() string { return s.file }

func (s *FileConfigStore[T]) Get() (T, bool, error) {
	return s.cache.Get(s.file, func() (T, bool, error) {
		return readDecoded[T](s.deps.Codec, s.file)
	})
}

func (s *FileConfigStore[T]) Set(v T) error {
	if s.readOnly {
		return fmt.Errorf("set %s: %w", s.file, ErrReadOnly)
	}
	data, err := s.deps.Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.file, err)
	}

	s.mu.Lock()
	err = s.deps.Replacer.WriteFile(s.file, data)
	if committed(err) {
		s.cache.Put(s.file, v)
	}
	s.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("store %s: %w", s.file, err)
		if !committed(err) {
			return err
		}
	}
	s.notify(v)
	return err
}

func (s *FileConfigStore[T]) OnChange(fn func(T)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *FileConfigStore[T]) notify(v T) {
	s.lmu.RLock()
	listeners := append([]func(T){}, s.listeners...)
	s.lmu.RUnlock()
	for _, fn := range listeners {
		fn(v)
	}
}

var _ ConfigStore[struct{}] = (*FileConfigStore[struct{}])(nil)
