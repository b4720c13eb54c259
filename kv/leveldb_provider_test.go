package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelDBProvider_Conformance(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLevelDBProvider(dir)
	require.NoError(t, err)
	defer p.Close()

	testProviderConformance(t, p)
}

func TestLevelDBProvider_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLevelDBProvider(dir)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
