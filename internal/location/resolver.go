package location

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const dirMode = 0o755

// RepositoryLocator finds the root directory of a repository. Unknown ids
// must produce an error matching ErrLocationNotFound.
type RepositoryLocator interface {
	Locate(repositoryID string) (string, error)
}

// template describes where one store kind lives. For single-file kinds the
// store name becomes the file stem inside the kind directory instead of a
// subdirectory.
type template struct {
	global     []string
	repository []string
	singleFile bool
}

var templates = map[Kind]template{
	Config: {global: []string{"config"}, repository: []string{"store", "config"}, singleFile: true},
	Data:   {global: []string{"var", "data"}, repository: []string{"store", "data"}},
	Blob:   {global: []string{"var", "blob"}, repository: []string{"store", "blob"}},
}

// Resolver computes and creates store directories.
type Resolver struct {
	base    string
	locator RepositoryLocator
}

// NewResolver creates a resolver for global stores under base. locator may be
// nil when only global stores are used.
func NewResolver(base string, locator RepositoryLocator) *Resolver {
	return &Resolver{base: base, locator: locator}
}

// Base returns the directory global stores are rooted at.
func (r *Resolver) Base() string { return r.base }

// GlobalDirectory returns the directory of a global store.
func (r *Resolver) GlobalDirectory(kind Kind, name string) (string, error) {
	return r.Directory(Location{Kind: kind, Name: name})
}

// RepositoryDirectory returns the directory of a repository store. It fails
// with ErrLocationNotFound for unknown repositories.
func (r *Resolver) RepositoryDirectory(kind Kind, name, repositoryID string) (string, error) {
	return r.Directory(Location{Kind: kind, Name: name, Owner: repositoryID})
}

// Directory resolves loc and creates the directory if needed. For config
// stores this is the directory holding the store file.
func (r *Resolver) Directory(loc Location) (string, error) {
	dir, err := r.path(loc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return dir, nil
}

// LookupDirectory is Directory for callers that skip stores of repositories
// that no longer exist. A missing repository yields found == false and a nil
// error; every other failure is returned.
func (r *Resolver) LookupDirectory(loc Location) (dir string, found bool, err error) {
	dir, err = r.Directory(loc)
	if errors.Is(err, ErrLocationNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}

// File returns the path of the single file backing a config store.
func (r *Resolver) File(loc Location) (string, error) {
	if !templates[loc.Kind].singleFile {
		return "", fmt.Errorf("%w: %s stores are not single-file", ErrInvalidLocation, loc.Kind)
	}
	dir, err := r.Directory(loc)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, loc.Name+loc.Kind.Suffix()), nil
}

// path computes the directory for loc without touching the filesystem.
func (r *Resolver) path(loc Location) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	tpl := templates[loc.Kind]

	var root string
	var segments []string
	if loc.Owner == "" {
		root, segments = r.base, tpl.global
	} else {
		if r.locator == nil {
			return "", fmt.Errorf("%w: %s (no repository locator)", ErrLocationNotFound, loc.Owner)
		}
		repo, err := r.locator.Locate(loc.Owner)
		if err != nil {
			return "", fmt.Errorf("locate repository %s: %w", loc.Owner, err)
		}
		root, segments = repo, tpl.repository
	}

	parts := append([]string{root}, segments...)
	if !tpl.singleFile && loc.Name != "" {
		parts = append(parts, loc.Name)
	}
	return filepath.Join(parts...), nil
}
