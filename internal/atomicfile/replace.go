// Package atomicfile implements crash-safe replacement of a single file.
//
// A replace stages the new content in a temporary file next to the target,
// moves the current target aside to a backup, renames the staged file onto
// the target and finally drops the backup:
//
//	dir/
//	  .name.xml.<rand>.tmp   (staged content, step 1-3)
//	  .name.xml.<rand>.bak   (previous content, step 4-7)
//	  name.xml               (target)
//
// Both helper files live in the target's directory so every rename stays on
// one filesystem. A process killed at any point leaves the target holding
// either its old or its new content.
//
// Replacer does not serialize callers. Concurrent replaces of the same target
// must be coordinated above this package.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const defaultFileMode fs.FileMode = 0o644

// Outcome classifies the result of one Replace call.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeInvalidTarget Outcome = "invalid_target"
	OutcomeWriteFailed   Outcome = "write_failed"
	OutcomeReplaceFailed Outcome = "replace_failed"
	OutcomeCleanupFailed Outcome = "cleanup_failed"
)

// Observer is notified once per Replace call.
type Observer func(Outcome)

// Replacer performs atomic file replacement.
type Replacer struct {
	logger  *zap.Logger
	observe Observer

	// filesystem primitives, swapped in tests to simulate failures
	rename func(oldpath, newpath string) error
	remove func(name string) error
}

// Option configures a Replacer.
type Option func(*Replacer)

// WithLogger sets the logger used to report recovery actions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Replacer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers a callback invoked with the outcome of every call.
func WithObserver(o Observer) Option {
	return func(r *Replacer) { r.observe = o }
}

// New creates a Replacer.
func New(opts ...Option) *Replacer {
	r := &Replacer{
		logger: zap.NewNop(),
		rename: os.Rename,
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WriteFile replaces target with data. The staged file is synced before it
// is renamed into place.
func (r *Replacer) WriteFile(target string, data []byte) error {
	return r.Replace(target, func(tmp string) error {
		return writeSynced(tmp, data)
	})
}

// Replace makes target hold exactly what write stores at the path it is
// given, or leaves target untouched.
//
// A returned error matching ErrBackupCleanupFailed means the new content is
// live and only a stale backup file is left behind.
func (r *Replacer) Replace(target string, write func(tmp string) error) (err error) {
	defer func() { r.report(err) }()

	dir, mode, err := r.checkTarget(target)
	if err != nil {
		return err
	}

	tmp, err := reserve(dir, filepath.Base(target), ".tmp", mode)
	if err != nil {
		return &Error{Kind: ErrWriteFailed, Path: target, Err: err}
	}

	if err := write(tmp); err != nil {
		r.discard(tmp)
		return &Error{Kind: ErrWriteFailed, Path: target, Err: err}
	}

	backup, err := r.moveAside(dir, target)
	if err != nil {
		r.discard(tmp)
		return &Error{Kind: ErrReplaceFailed, Path: target, Err: err}
	}

	if err := r.rename(tmp, target); err != nil {
		r.discard(tmp)
		return &Error{Kind: ErrReplaceFailed, Path: target, Err: r.restore(target, backup, err)}
	}

	if backup != "" {
		if err := r.remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("stale backup left behind",
				zap.String("path", target), zap.String("backup", backup), zap.Error(err))
			return &Error{Kind: ErrBackupCleanupFailed, Path: target, Err: err}
		}
	}
	return nil
}

// checkTarget validates target before anything is written and returns the
// parent directory together with the mode new content should carry.
func (r *Replacer) checkTarget(target string) (string, fs.FileMode, error) {
	if target == "" {
		return "", 0, &Error{Kind: ErrInvalidTarget, Path: target, Err: errors.New("empty path")}
	}
	dir := filepath.Dir(target)
	if filepath.Clean(target) == dir {
		return "", 0, &Error{Kind: ErrInvalidTarget, Path: target, Err: errors.New("no parent directory")}
	}

	parent, err := os.Stat(dir)
	if err != nil {
		return "", 0, &Error{Kind: ErrInvalidTarget, Path: target, Err: err}
	}
	if !parent.IsDir() {
		return "", 0, &Error{Kind: ErrInvalidTarget, Path: target, Err: fmt.Errorf("parent %s is not a directory", dir)}
	}

	mode := defaultFileMode
	info, err := os.Lstat(target)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return "", 0, &Error{Kind: ErrInvalidTarget, Path: target, Err: errors.New("not a regular file")}
	case err == nil:
		mode = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return "", 0, &Error{Kind: ErrInvalidTarget, Path: target, Err: err}
	}
	return dir, mode, nil
}

// moveAside renames an existing target to a fresh backup name. It returns an
// empty name when there is nothing to back up.
func (r *Replacer) moveAside(dir, target string) (string, error) {
	if _, err := os.Lstat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	backup, err := reserve(dir, filepath.Base(target), ".bak", defaultFileMode)
	if err != nil {
		return "", fmt.Errorf("reserve backup: %w", err)
	}
	if err := r.rename(target, backup); err != nil {
		r.discard(backup)
		return "", fmt.Errorf("move target aside: %w", err)
	}
	return backup, nil
}

// restore puts the backup back after a failed rename. The returned error
// carries both the rename cause and a restore failure, if any.
func (r *Replacer) restore(target, backup string, cause error) error {
	if backup == "" {
		return cause
	}
	if err := r.rename(backup, target); err != nil {
		r.logger.Error("restore from backup failed",
			zap.String("path", target), zap.String("backup", backup), zap.Error(err))
		return errors.Join(cause, fmt.Errorf("restore %s from %s: %w", target, backup, err))
	}
	r.logger.Warn("replace failed, previous content restored",
		zap.String("path", target), zap.String("backup", backup), zap.Error(cause))
	return cause
}

func (r *Replacer) discard(name string) {
	if err := r.remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("remove helper file", zap.String("file", name), zap.Error(err))
	}
}

func (r *Replacer) report(err error) {
	if r.observe == nil {
		return
	}
	r.observe(outcomeOf(err))
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidTarget):
		return OutcomeInvalidTarget
	case errors.Is(err, ErrWriteFailed):
		return OutcomeWriteFailed
	case errors.Is(err, ErrBackupCleanupFailed):
		return OutcomeCleanupFailed
	default:
		return OutcomeReplaceFailed
	}
}

// reserve creates an empty, uniquely named hidden file in dir.
func reserve(dir, base, suffix string, mode fs.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, "."+base+".*"+suffix)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// IsTemporary reports whether name looks like a helper file created by a
// Replacer. Directory listings use it to skip staged or backup files.
func IsTemporary(name string) bool {
	if len(name) == 0 || name[0] != '.' {
		return false
	}
	ext := filepath.Ext(name)
	return ext == ".tmp" || ext == ".bak"
}
