package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const blobFileMode = 0o644

// FileBlobStore stores one raw file per blob. Blob content never passes
// through the codec or the entry cache.
//
// By default output streams write directly to the blob file, so a crash
// mid-write can leave a truncated blob. With Deps.AtomicBlobs the stream is
// staged next to the blob and committed with the Replacer on Close, at the
// cost of holding two copies on disk while writing.
type FileBlobStore struct {
	dir      string
	suffix   string
	readOnly bool
	deps     Deps
	locks    *entryLocks
	remove   func(string) error
}

// NewBlobStore creates a store over dir, which must exist.
func NewBlobStore(dir, suffix string, readOnly bool, deps Deps) *FileBlobStore {
	return &FileBlobStore{
		dir:      dir,
		suffix:   suffix,
		readOnly: readOnly,
		deps:     deps.withDefaults(),
		locks:    newEntryLocks(),
		remove:   os.Remove,
	}
}

// Dir returns the store directory.
func (s *FileBlobStore) Dir() string { return s.dir }

func (s *FileBlobStore) Create() (Blob, error) {
	return s.CreateWithID(s.deps.Keys.CreateKey())
}

func (s *FileBlobStore) CreateWithID(id string) (Blob, error) {
	if s.readOnly {
		return nil, fmt.Errorf("create %s: %w", id, ErrReadOnly)
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	path := entryPath(s.dir, id, s.suffix)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, blobFileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create %s: %w", id, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return s.blob(id), nil
}

func (s *FileBlobStore) Get(id string) (Blob, bool, error) {
	if err := validateID(id); err != nil {
		return nil, false, err
	}
	info, err := os.Stat(entryPath(s.dir, id, s.suffix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat blob %s: %w", id, err)
	}
	if !info.Mode().IsRegular() {
		return nil, false, nil
	}
	return s.blob(id), true, nil
}

func (s *FileBlobStore) GetAll() ([]Blob, error) {
	ids, err := listIDs(s.dir, s.suffix)
	if err != nil {
		return nil, err
	}
	blobs := make([]Blob, 0, len(ids))
	for _, id := range ids {
		blobs = append(blobs, s.blob(id))
	}
	return blobs, nil
}

func (s *FileBlobStore) Remove(id string) error {
	if s.readOnly {
		return fmt.Errorf("remove %s: %w", id, ErrReadOnly)
	}
	if err := validateID(id); err != nil {
		return err
	}
	unlock := s.locks.Lock(id)
	defer unlock()
	return removeFile(s.remove, entryPath(s.dir, id, s.suffix))
}

func (s *FileBlobStore) Clear() error {
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
		s.deps.Logger.Warn("clear left blobs behind", zap.String("dir", s.dir), zap.Error(err))
		return fmt.Errorf("clear %s: %w", s.dir, err)
	}
	return nil
}

func (s *FileBlobStore) blob(id string) *fileBlob {
	return &fileBlob{store: s, id: id, path: entryPath(s.dir, id, s.suffix)}
}

type fileBlob struct {
	store *FileBlobStore
	id    string
	path  string
}

func (b *fileBlob) ID() string { return b.id }

func (b *fileBlob) Size() (int64, error) {
	info, err := os.Stat(b.path)
	if err != nil {
		return 0, fmt.Errorf("stat blob %s: %w", b.id, err)
	}
	return info.Size(), nil
}

func (b *fileBlob) InputStream() (io.ReadCloser, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", b.id, err)
	}
	r, err := b.store.deps.Compressor.Reader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open blob %s: %w", b.id, err)
	}
	return r, nil
}

func (b *fileBlob) OutputStream() (io.WriteCloser, error) {
	s := b.store
	if s.readOnly {
		return nil, fmt.Errorf("write blob %s: %w", b.id, ErrReadOnly)
	}
	if s.deps.AtomicBlobs {
		return b.stagedStream()
	}

	f, err := os.OpenFile(b.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, blobFileMode)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", b.id, err)
	}
	w, err := s.deps.Compressor.Writer(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open blob %s: %w", b.id, err)
	}
	return w, nil
}

// stagedStream writes to a hidden temp file that Close commits onto the blob.
func (b *fileBlob) stagedStream() (io.WriteCloser, error) {
	s := b.store
	f, err := os.CreateTemp(s.dir, "."+b.id+s.suffix+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("stage blob %s: %w", b.id, err)
	}
	if err := f.Chmod(blobFileMode); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("stage blob %s: %w", b.id, err)
	}
	w, err := s.deps.Compressor.Writer(f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("stage blob %s: %w", b.id, err)
	}
	return &stagedWriter{WriteCloser: w, blob: b, staged: f.Name()}, nil
}

type stagedWriter struct {
	io.WriteCloser
	blob   *fileBlob
	staged string
	closed bool
}

func (w *stagedWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.WriteCloser.Close(); err != nil {
		_ = os.Remove(w.staged)
		return fmt.Errorf("write blob %s: %w", w.blob.id, err)
	}

	s := w.blob.store
	unlock := s.locks.Lock(w.blob.id)
	defer unlock()

	err := s.deps.Replacer.Replace(w.blob.path, func(tmp string) error {
		return os.Rename(w.staged, tmp)
	})
	if err != nil {
		_ = os.Remove(w.staged)
		return fmt.Errorf("commit blob %s: %w", w.blob.id, err)
	}
	return nil
}

var _ BlobStore = (*FileBlobStore)(nil)
