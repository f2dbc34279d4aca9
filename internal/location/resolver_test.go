package location

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, string, string) {
	t.Helper()
	base := t.TempDir()
	repos := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repos, "r1"), 0o755))
	return NewResolver(base, DirLocator{Root: repos}), base, repos
}

func TestResolver_Layout(t *testing.T) {
	r, base, repos := newTestResolver(t)

	tests := []struct {
		name string
		loc  Location
		want string
	}{
		{"global config", Location{Kind: Config, Name: "settings"}, filepath.Join(base, "config")},
		{"global data", Location{Kind: Data, Name: "users"}, filepath.Join(base, "var", "data", "users")},
		{"global blob", Location{Kind: Blob, Name: "avatars"}, filepath.Join(base, "var", "blob", "avatars")},
		{"global unnamed data", Location{Kind: Data}, filepath.Join(base, "var", "data")},
		{"repo config", Location{Kind: Config, Name: "hooks", Owner: "r1"}, filepath.Join(repos, "r1", "store", "config")},
		{"repo data", Location{Kind: Data, Name: "pr", Owner: "r1"}, filepath.Join(repos, "r1", "store", "data", "pr")},
		{"repo blob", Location{Kind: Blob, Name: "lfs", Owner: "r1"}, filepath.Join(repos, "r1", "store", "blob", "lfs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := r.Directory(tt.loc)
			require.NoError(t, err)
			require.Equal(t, tt.want, dir)
			require.DirExists(t, dir)

			again, err := r.Directory(tt.loc)
			require.NoError(t, err)
			require.Equal(t, dir, again)
		})
	}
}

func TestResolver_ConfigFile(t *testing.T) {
	r, base, _ := newTestResolver(t)

	file, err := r.File(Location{Kind: Config, Name: "settings"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "config", "settings.xml"), file)

	_, err = r.File(Location{Kind: Data, Name: "users"})
	require.ErrorIs(t, err, ErrInvalidLocation)
}

func TestResolver_KindsNeverCollide(t *testing.T) {
	r, _, _ := newTestResolver(t)

	seen := map[string]Location{}
	for _, owner := range []string{"", "r1"} {
		for _, kind := range []Kind{Data, Blob} {
			for _, name := range []string{"a", "b"} {
				loc := Location{Kind: kind, Name: name, Owner: owner}
				dir, err := r.Directory(loc)
				require.NoError(t, err)
				prev, dup := seen[dir]
				require.False(t, dup, "%v collides with %v", loc, prev)
				seen[dir] = loc
			}
		}
	}
}

func TestResolver_MissingRepository(t *testing.T) {
	r, _, _ := newTestResolver(t)
	loc := Location{Kind: Data, Name: "pr", Owner: "ghost"}

	_, err := r.Directory(loc)
	require.ErrorIs(t, err, ErrLocationNotFound)

	dir, found, err := r.LookupDirectory(loc)
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, dir)

	dir, found, err = r.LookupDirectory(Location{Kind: Data, Name: "pr", Owner: "r1"})
	require.NoError(t, err)
	require.True(t, found)
	require.DirExists(t, dir)
}

func TestResolver_LookupPropagatesOtherErrors(t *testing.T) {
	broken := errors.New("permission denied")
	r := NewResolver(t.TempDir(), LocatorFunc(func(string) (string, error) { return "", broken }))

	_, _, err := r.LookupDirectory(Location{Kind: Data, Name: "pr", Owner: "r1"})
	require.ErrorIs(t, err, broken)
}

func TestResolver_NoLocator(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	_, err := r.RepositoryDirectory(Blob, "lfs", "r1")
	require.ErrorIs(t, err, ErrLocationNotFound)

	dir, err := r.GlobalDirectory(Blob, "lfs")
	require.NoError(t, err)
	require.DirExists(t, dir)
}

func TestLocation_Validate(t *testing.T) {
	require.NoError(t, Location{Kind: Data}.Validate())
	require.ErrorIs(t, Location{Kind: Config}.Validate(), ErrInvalidLocation)
	require.ErrorIs(t, Location{Kind: Data, Name: "../x"}.Validate(), ErrInvalidLocation)
	require.ErrorIs(t, Location{Kind: Data, Name: ".."}.Validate(), ErrInvalidLocation)
	require.ErrorIs(t, Location{Kind: Kind(42), Name: "x"}.Validate(), ErrInvalidLocation)
	require.NoError(t, Location{Kind: Config, Name: strings.Repeat("n", MaxSegmentLength)}.Validate())
	require.ErrorIs(t, Location{Kind: Config, Name: strings.Repeat("n", MaxSegmentLength+1)}.Validate(), ErrInvalidLocation)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Config, Data, Blob} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := ParseKind("queue")
	require.Error(t, err)
}
