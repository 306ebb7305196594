package util

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectId(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := Generate()
		require.Len(t, id, 24)

		_, err := hex.DecodeString(id)
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id generated: %s", id)
		seen[id] = struct{}{}
	}
}
