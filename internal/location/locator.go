package location

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirLocator locates repositories as direct subdirectories of Root, named by
// repository id.
type DirLocator struct {
	Root string
}

func (l DirLocator) Locate(repositoryID string) (string, error) {
	if err := ValidateSegment(repositoryID); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrLocationNotFound, repositoryID, err)
	}
	dir := filepath.Join(l.Root, repositoryID)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrLocationNotFound, repositoryID)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrLocationNotFound, dir)
	}
	return dir, nil
}

// LocatorFunc adapts a function to RepositoryLocator.
type LocatorFunc func(repositoryID string) (string, error)

func (f LocatorFunc) Locate(repositoryID string) (string, error) { return f(repositoryID) }
