package keygen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		k := UUID{}.CreateKey()
		_, err := uuid.Parse(k)
		require.NoError(t, err)
		_, dup := seen[k]
		require.False(t, dup)
		seen[k] = struct{}{}
	}
}
