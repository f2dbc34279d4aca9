package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/repostore/internal/codec"
	"github.com/aweris/repostore/internal/keygen"
	"github.com/aweris/repostore/internal/location"
)

func newDataStore(t *testing.T, cacheEnabled bool) *FileDataStore[user] {
	t.Helper()
	return NewDataStore[user](t.TempDir(), ".xml", false, Deps{Cache: NewEntryCache(cacheEnabled, nil)})
}

func TestDataStore_RoundTrip(t *testing.T) {
	for _, cached := range []bool{true, false} {
		t.Run(fmt.Sprintf("cache=%v", cached), func(t *testing.T) {
			s := newDataStore(t, cached)
			in := user{Name: "arthur", Age: 42}

			require.NoError(t, s.Put("42", in))
			require.FileExists(t, filepath.Join(s.Dir(), "42.xml"))

			got, found, err := s.Get("42")
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, in.Name, got.Name)
			require.Equal(t, in.Age, got.Age)

			require.NoError(t, s.Remove("42"))
			_, found, err = s.Get("42")
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, s.Remove("42"), "removing a missing entry is a no-op")
		})
	}
}

func TestDataStore_GetAll(t *testing.T) {
	s := newDataStore(t, true)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(id, user{Name: id}))
	}
	// helper files and foreign files are not entries
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".a.xml.123.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "d.xml"), 0o755))

	all, err := s.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, id := range []string{"a", "b", "c"} {
		require.Equal(t, id, all[id].Name)
	}
}

func TestDataStore_GetAllEmpty(t *testing.T) {
	s := NewDataStore[user](filepath.Join(t.TempDir(), "missing"), ".xml", false, Deps{})
	all, err := s.GetAll()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestDataStore_ConcurrentWriters(t *testing.T) {
	s := newDataStore(t, true)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put(fmt.Sprintf("id-%d", i), user{Name: fmt.Sprintf("user-%d", i), Age: i}))
		}()
	}
	wg.Wait()

	all, err := s.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 10)
	for i := range 10 {
		u := all[fmt.Sprintf("id-%d", i)]
		require.Equal(t, fmt.Sprintf("user-%d", i), u.Name)
		require.Equal(t, i, u.Age)
	}
}

func TestDataStore_ConcurrentWritersSameEntry(t *testing.T) {
	s := newDataStore(t, false)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put("shared", user{Name: "writer", Age: i}))
		}()
	}
	wg.Wait()

	got, found, err := s.Get("shared")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "writer", got.Name)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no helper files left behind")
}

func TestDataStore_DecodeFailurePropagates(t *testing.T) {
	s := newDataStore(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bad.xml"), []byte("<user><name>"), 0o644))

	_, found, err := s.Get("bad")
	require.ErrorIs(t, err, codec.ErrDecodeFailed)
	require.False(t, found)

	_, err = s.GetAll()
	require.ErrorIs(t, err, codec.ErrDecodeFailed)
}

func TestDataStore_Add(t *testing.T) {
	n := 0
	keys := keygen.Func(func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	})
	s := NewDataStore[user](t.TempDir(), ".xml", false, Deps{Keys: keys})

	id, err := s.Add(user{Name: "ford"})
	require.NoError(t, err)
	require.Equal(t, "key-1", id)

	got, found, err := s.Get(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ford", got.Name)
}

func TestDataStore_InvalidIDs(t *testing.T) {
	s := newDataStore(t, true)
	for _, id := range []string{"", ".", "..", "a/b", `a\b`, ".hidden"} {
		require.ErrorIs(t, s.Put(id, user{}), ErrInvalidID, id)
		_, _, err := s.Get(id)
		require.ErrorIs(t, err, ErrInvalidID, id)
		require.ErrorIs(t, s.Remove(id), ErrInvalidID, id)
	}
}

func TestDataStore_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	rw := NewDataStore[user](dir, ".xml", false, Deps{})
	require.NoError(t, rw.Put("1", user{Name: "zaphod"}))

	ro := NewDataStore[user](dir, ".xml", true, Deps{})
	require.ErrorIs(t, ro.Put("2", user{}), ErrReadOnly)
	require.ErrorIs(t, ro.Remove("1"), ErrReadOnly)
	require.ErrorIs(t, ro.Clear(), ErrReadOnly)

	got, found, err := ro.Get("1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "zaphod", got.Name)
}

func TestDataStore_Clear(t *testing.T) {
	s := newDataStore(t, true)
	for i := range 25 {
		require.NoError(t, s.Put(fmt.Sprintf("%d", i), user{Age: i}))
	}
	require.NoError(t, s.Clear())

	all, err := s.GetAll()
	require.NoError(t, err)
	require.Empty(t, all)

	_, found, err := s.Get("3")
	require.NoError(t, err)
	require.False(t, found, "cache entries are evicted")
}

func TestDataStore_OnChange(t *testing.T) {
	s := newDataStore(t, true)

	type event struct {
		id      string
		name    string
		removed bool
	}
	var events []event
	s.OnChange(func(id string, v user, removed bool) {
		events = append(events, event{id: id, name: v.Name, removed: removed})
	})

	require.NoError(t, s.Put("1", user{Name: "marvin"}))
	require.NoError(t, s.Remove("1"))
	require.Error(t, s.Put("", user{}))

	require.Equal(t, []event{{id: "1", name: "marvin"}, {id: "1", removed: true}}, events)
}

func TestDataStore_SharesCacheAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ec := NewEntryCache(true, nil)
	a := NewDataStore[user](dir, ".xml", false, Deps{Cache: ec})
	b := NewDataStore[user](dir, ".xml", true, Deps{Cache: ec})

	require.NoError(t, a.Put("1", user{Name: "first"}))
	// an external writer changes the file; the cache still serves the write
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.xml"), []byte("<user><name>external</name></user>"), 0o644))

	got, _, err := b.Get("1")
	require.NoError(t, err)
	require.Equal(t, "first", got.Name)

	require.NoError(t, a.Remove("1"))
	_, found, err := b.Get("1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDataStore_ClearReportsEveryFailure(t *testing.T) {
	s := newDataStore(t, true)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Put(id, user{Name: id}))
	}

	errB := errors.New("b is busy")
	errD := errors.New("d is locked")
	s.remove = func(path string) error {
		switch filepath.Base(path) {
		case "b.xml":
			return errB
		case "d.xml":
			return errD
		}
		return os.Remove(path)
	}

	err := s.Clear()
	require.ErrorIs(t, err, errB)
	require.ErrorIs(t, err, errD)

	ids, err := listIDs(s.Dir(), ".xml")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "d"}, ids)
}

func TestDataStore_GetConcurrentWithPut(t *testing.T) {
	ec := NewEntryCache(true, nil)
	s := NewDataStore[user](t.TempDir(), ".xml", false, Deps{Cache: ec})
	require.NoError(t, s.Put("1", user{Name: "start"}))

	for i := range 300 {
		ec.Clear()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := s.Get("1")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put("1", user{Name: "round", Age: i}))
		}()
		wg.Wait()

		got, found, err := s.Get("1")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, i, got.Age, "round %d", i)
	}
}

func TestDataStore_GetConcurrentWithRemove(t *testing.T) {
	ec := NewEntryCache(true, nil)
	s := NewDataStore[user](t.TempDir(), ".xml", false, Deps{Cache: ec})

	for i := range 300 {
		require.NoError(t, s.Put("1", user{Age: i}))
		ec.Clear()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := s.Get("1")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Remove("1"))
		}()
		wg.Wait()

		_, found, err := s.Get("1")
		require.NoError(t, err)
		require.False(t, found, "round %d", i)
	}
}

func TestDataStore_LongIDs(t *testing.T) {
	s := newDataStore(t, false)

	longest := strings.Repeat("x", location.MaxSegmentLength)
	require.NoError(t, s.Put(longest, user{Name: "deep thought"}))
	require.NoError(t, s.Put(longest, user{Name: "replaced"}))
	got, found, err := s.Get(longest)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "replaced", got.Name)

	require.ErrorIs(t, s.Put(longest+"x", user{}), ErrInvalidID)
}
