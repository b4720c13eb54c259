package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/hashx"
)

func TestJSONCodec_HeaderRoundTrip(t *testing.T) {
	c := NewJSONCodec()
	h := &block.Header{
		Number:     7,
		Hash:       hashx.Hash{1},
		ParentHash: hashx.Hash{2},
		Difficulty: 42,
		// TotalDifficulty is set on purpose: it must not survive the
		// round trip, since it is not part of a header's persisted
		// bytes.
		TotalDifficulty: 999,
	}

	raw, err := c.EncodeHeader(h)
	require.NoError(t, err)

	decoded, err := c.DecodeHeader(raw)
	require.NoError(t, err)
	require.Equal(t, h.Number, decoded.Number)
	require.Equal(t, h.Hash, decoded.Hash)
	require.Equal(t, h.ParentHash, decoded.ParentHash)
	require.Equal(t, h.Difficulty, decoded.Difficulty)
	require.Zero(t, decoded.TotalDifficulty)
}

func TestJSONCodec_BlockRoundTrip(t *testing.T) {
	c := NewJSONCodec()
	h := &block.Header{Number: 3, Hash: hashx.Hash{5}, ParentHash: hashx.Hash{4}, Difficulty: 10}
	body := &block.Body{Transactions: []block.Transaction{
		&rawTransaction{TxHash: hashx.Hash{9}},
		&rawTransaction{TxHash: hashx.Hash{10}},
	}}
	b := block.NewBlock(h, body)

	raw, err := c.EncodeBlock(b)
	require.NoError(t, err)

	decoded, err := c.DecodeBlock(raw)
	require.NoError(t, err)
	require.Equal(t, h.Hash, decoded.Header.Hash)
	require.Len(t, decoded.Body.Transactions, 2)
	require.Equal(t, hashx.Hash{9}, decoded.Body.Transactions[0].Hash())
	require.Equal(t, hashx.Hash{10}, decoded.Body.Transactions[1].Hash())
}

func TestJSONCodec_BlockWithNilBodyRoundTrip(t *testing.T) {
	c := NewJSONCodec()
	h := &block.Header{Number: 0, Hash: hashx.Hash{1}}
	b := block.NewBlock(h, nil)

	raw, err := c.EncodeBlock(b)
	require.NoError(t, err)

	decoded, err := c.DecodeBlock(raw)
	require.NoError(t, err)
	require.Nil(t, decoded.Body)
}

func TestJSONCodec_LevelRoundTrip(t *testing.T) {
	c := NewJSONCodec()
	lvl := &block.LevelInfo{
		HasBlockOnMainChain: true,
		BlockInfos: []block.Info{
			{BlockHash: hashx.Hash{1}, TotalDifficulty: 100, WasProcessed: true},
			{BlockHash: hashx.Hash{2}, TotalDifficulty: 90, WasProcessed: false},
		},
	}

	raw, err := c.EncodeLevel(lvl)
	require.NoError(t, err)

	decoded, err := c.DecodeLevel(raw)
	require.NoError(t, err)
	require.Equal(t, lvl.HasBlockOnMainChain, decoded.HasBlockOnMainChain)
	require.Equal(t, lvl.BlockInfos, decoded.BlockInfos)
}
