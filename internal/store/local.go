package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aweris/repostore/internal/atomicfile"
	"github.com/aweris/repostore/internal/codec"
	"github.com/aweris/repostore/internal/location"
)

// Entry files are named id + suffix inside the store directory:
//
//	<dir>/
//	  42.xml
//	  .42.xml.<rand>.tmp  (in-flight replace, ignored)

func validateID(id string) error {
	if err := location.ValidateSegment(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q must not start with a dot", ErrInvalidID, id)
	}
	return nil
}

func entryPath(dir, id, suffix string) string {
	return filepath.Join(dir, id+suffix)
}

// idOf returns the id encoded in an entry file name.
func idOf(name, suffix string) (string, bool) {
	if len(name) <= len(suffix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	if atomicfile.IsTemporary(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

// listIDs returns the sorted ids of all entries in dir. A missing directory
// holds no entries.
func listIDs(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if id, ok := idOf(e.Name(), suffix); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// readDecoded decodes the file at path into a new T. A missing file yields
// found == false.
func readDecoded[T any](c codec.Codec, path string) (T, bool, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := c.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, true, nil
}

// removeFile deletes path with remove, treating a missing file as success.
func removeFile(remove func(string) error, path string) error {
	if err := remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// committed reports whether a replace error still left the new content live.
func committed(err error) bool {
	return err == nil || errors.Is(err, atomicfile.ErrBackupCleanupFailed)
}
