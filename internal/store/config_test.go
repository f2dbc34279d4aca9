package store

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/repostore/internal/codec"
)

type settings struct {
	XMLName xml.Name `xml:"settings"`
	Title   string   `xml:"title"`
	Limit   int      `xml:"limit"`
}

func TestConfigStore_GetMissing(t *testing.T) {
	s := NewConfigStore[settings](filepath.Join(t.TempDir(), "settings.xml"), false, Deps{Cache: NewEntryCache(true, nil)})

	v, found, err := s.Get()
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, v.Title)
}

func TestConfigStore_SetGet(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.xml")
	s := NewConfigStore[settings](file, false, Deps{Cache: NewEntryCache(true, nil)})

	require.NoError(t, s.Set(settings{Title: "hitchhiker", Limit: 42}))

	v, found, err := s.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hitchhiker", v.Title)
	require.Equal(t, 42, v.Limit)

	// a fresh store without cache reads the same bytes back
	fresh := NewConfigStore[settings](file, true, Deps{})
	v, found, err = fresh.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 42, v.Limit)
}

func TestConfigStore_ListenersFireAfterCommit(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.xml")
	s := NewConfigStore[settings](file, false, Deps{})

	var seen []string
	s.OnChange(func(v settings) {
		// the new content is already on disk
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		require.Contains(t, string(data), v.Title)
		seen = append(seen, v.Title)
	})

	require.NoError(t, s.Set(settings{Title: "one"}))
	require.NoError(t, s.Set(settings{Title: "two"}))
	require.Equal(t, []string{"one", "two"}, seen)
}

type failingCodec struct{ codec.XML }

func (failingCodec) Marshal(any) ([]byte, error) {
	return nil, fmt.Errorf("%w: nope", codec.ErrEncodeFailed)
}

func TestConfigStore_FailedSetKeepsPriorData(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.xml")
	ec := NewEntryCache(true, nil)
	require.NoError(t, NewConfigStore[settings](file, false, Deps{Cache: ec}).Set(settings{Title: "kept"}))

	s := NewConfigStore[settings](file, false, Deps{Cache: ec, Codec: failingCodec{}})
	fired := false
	s.OnChange(func(settings) { fired = true })

	err := s.Set(settings{Title: "lost"})
	require.ErrorIs(t, err, codec.ErrEncodeFailed)
	require.False(t, fired)

	v, found, err := s.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "kept", v.Title)
}

func TestConfigStore_ReadOnly(t *testing.T) {
	s := NewConfigStore[settings](filepath.Join(t.TempDir(), "settings.xml"), true, Deps{})
	require.ErrorIs(t, s.Set(settings{}), ErrReadOnly)
}

func TestConfigStore_ConcurrentSet(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.xml")
	s := NewConfigStore[settings](file, false, Deps{})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(settings{Title: "writer", Limit: i}))
		}()
	}
	wg.Wait()

	v, found, err := s.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "writer", v.Title)

	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestConfigStore_GetConcurrentWithSet(t *testing.T) {
	ec := NewEntryCache(true, nil)
	s := NewConfigStore[settings](filepath.Join(t.TempDir(), "settings.xml"), false, Deps{Cache: ec})
	require.NoError(t, s.Set(settings{Title: "start"}))

	for i := range 300 {
		ec.Clear()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := s.Get()
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(settings{Title: "round", Limit: i}))
		}()
		wg.Wait()

		v, found, err := s.Get()
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, i, v.Limit, "round %d", i)
	}
}
