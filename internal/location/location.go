// Package location maps logical stores to directories on disk.
//
// Layout (kept bit-compatible with existing installations):
//
//	<base>/config/<name>.xml                 global configuration store
//	<base>/var/data/<name>/<id>.xml          global data store
//	<base>/var/blob/<name>/<id>.blob         global blob store
//	<repo>/store/config/<name>.xml           repository configuration store
//	<repo>/store/data/<name>/<id>.xml        repository data store
//	<repo>/store/blob/<name>/<id>.blob       repository blob store
//
// <repo> is supplied by a RepositoryLocator.
package location

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the type of a store.
type Kind int

const (
	Config Kind = iota + 1
	Data
	Blob
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Data:
		return "data"
	case Blob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts the lower case kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "config":
		return Config, nil
	case "data":
		return Data, nil
	case "blob":
		return Blob, nil
	}
	return 0, fmt.Errorf("unknown store kind %q", s)
}

// Suffix returns the file name suffix of entries of this kind.
func (k Kind) Suffix() string {
	if k == Blob {
		return ".blob"
	}
	return ".xml"
}

// Location identifies a logical store. An empty Owner denotes a global store.
type Location struct {
	Kind  Kind
	Name  string
	Owner string
}

func (l Location) String() string {
	if l.Owner == "" {
		return fmt.Sprintf("%s:%s", l.Kind, l.Name)
	}
	return fmt.Sprintf("%s:%s@%s", l.Kind, l.Name, l.Owner)
}

// Validate checks that the location can be mapped to a path.
func (l Location) Validate() error {
	if _, ok := templates[l.Kind]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidLocation, l.Kind)
	}
	if l.Kind == Config && l.Name == "" {
		return fmt.Errorf("%w: configuration store requires a name", ErrInvalidLocation)
	}
	if l.Name != "" {
		if err := ValidateSegment(l.Name); err != nil {
			return fmt.Errorf("%w: name: %v", ErrInvalidLocation, err)
		}
	}
	return nil
}

var (
	// ErrLocationNotFound is returned when the owning repository of a store
	// cannot be located.
	ErrLocationNotFound = errors.New("location: repository not found")

	ErrInvalidLocation = errors.New("location: invalid store location")
)

// MaxSegmentLength caps names and ids. Helper files of an atomic replace add
// a dot, a random number and a suffix to the entry file name, and the result
// must stay below the common 255 byte file name limit.
const MaxSegmentLength = 200

// ValidateSegment checks that s is usable as a single path segment.
func ValidateSegment(s string) error {
	switch {
	case s == "":
		return errors.New("empty")
	case len(s) > MaxSegmentLength:
		return fmt.Errorf("%d bytes exceeds the limit of %d", len(s), MaxSegmentLength)
	case s == "." || s == "..":
		return fmt.Errorf("%q is reserved", s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%q must not contain path separators", s)
	case strings.ContainsRune(s, 0):
		return fmt.Errorf("%q contains NUL", s)
	}
	return nil
}
