package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testProviderConformance runs the same battery of checks against any
// Provider implementation, so LevelDB, bbolt, and the in-memory
// provider are all held to identical semantics.
func testProviderConformance(t *testing.T, p Provider) {
	t.Helper()

	v, err := p.Get([]byte("missing"))
	require.NoError(t, err)
	require.Nil(t, v)

	has, err := p.Has([]byte("missing"))
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, p.Put([]byte("a"), []byte("1")))
	v, err = p.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	has, err = p.Has([]byte("a"))
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, p.Put([]byte("a"), []byte("2")))
	v, err = p.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)

	require.NoError(t, p.Delete([]byte("a")))
	v, err = p.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, p.Delete([]byte("never-existed")))

	batch := p.Batch()
	batch.Put([]byte("b1"), []byte("x"))
	batch.Put([]byte("b2"), []byte("y"))
	require.NoError(t, batch.Write())

	v, err = p.Get([]byte("b1"))
	require.NoError(t, err)
	require.Equal(t, []byte("x"), v)
	v, err = p.Get([]byte("b2"))
	require.NoError(t, err)
	require.Equal(t, []byte("y"), v)

	batch.Reset()
	batch.Delete([]byte("b1"))
	require.NoError(t, batch.Write())
	v, err = p.Get([]byte("b1"))
	require.NoError(t, err)
	require.Nil(t, v)
	v, err = p.Get([]byte("b2"))
	require.NoError(t, err)
	require.Equal(t, []byte("y"), v)
}
