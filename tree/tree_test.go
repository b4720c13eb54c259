package tree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/codec"
	"github.com/mezonai/blocktree/hashx"
	"github.com/mezonai/blocktree/kv"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	return New(Config{
		Headers: kv.NewMemoryProvider(),
		Blocks:  kv.NewMemoryProvider(),
		Meta:    kv.NewMemoryProvider(),
		Codec:   codec.NewJSONCodec(),
	})
}

func hashFromByte(b byte) hashx.Hash {
	var h hashx.Hash
	h[0] = b
	return h
}

func header(number uint64, hash, parent byte, difficulty uint64) *block.Header {
	return &block.Header{
		Number:     number,
		Hash:       hashFromByte(hash),
		ParentHash: hashFromByte(parent),
		Difficulty: difficulty,
	}
}

func blk(h *block.Header) *block.Block {
	return block.NewBlock(h, &block.Body{})
}

func TestSuggestHeader_Genesis(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)

	result, err := tr.SuggestBlock(blk(g), true)
	require.NoError(t, err)
	require.Equal(t, Added, result)
	require.Nil(t, tr.Head())
	require.Equal(t, g.Hash, tr.BestSuggested().Hash)

	require.NoError(t, tr.UpdateMainChain([]*block.Block{blk(g)}))
	require.NotNil(t, tr.Head())
	require.Equal(t, g.Hash, tr.Head().Hash)
	require.Equal(t, g.Hash, tr.Genesis().Hash)
}

func TestSuggestHeader_GenesisTwiceIsInvariantViolation(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)

	_, err := tr.SuggestBlock(blk(g), true)
	require.NoError(t, err)

	_, err = tr.SuggestBlock(blk(header(0, 2, 0, 5)), true)
	require.Error(t, err)
	var invErr *InvariantError
	require.ErrorAs(t, err, &invErr)
}

func TestSuggest_UnknownParent(t *testing.T) {
	tr := newTestTree(t)
	b5 := header(5, 5, 4, 1)

	result, err := tr.SuggestHeader(b5)
	require.NoError(t, err)
	require.Equal(t, UnknownParent, result)
}

func TestSuggest_Idempotent(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)

	result, err := tr.SuggestBlock(blk(g), true)
	require.NoError(t, err)
	require.Equal(t, Added, result)

	result, err = tr.SuggestBlock(blk(g), true)
	require.NoError(t, err)
	require.Equal(t, AlreadyKnown, result)
}

// promoteChain suggests and promotes a linear run of blocks starting
// from genesis, returning the full chain for later reference.
func promoteChain(t *testing.T, tr *Tree, headers ...*block.Header) []*block.Block {
	t.Helper()
	var chain []*block.Block
	for _, h := range headers {
		result, err := tr.SuggestBlock(blk(h), true)
		require.NoError(t, err)
		require.Equal(t, Added, result)
		chain = append(chain, blk(h))
	}
	require.NoError(t, tr.UpdateMainChain(chain))
	return chain
}

func TestS2_LinearChain(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)
	b1 := header(1, 2, 1, 5)
	b2 := header(2, 3, 2, 5)
	b3 := header(3, 4, 3, 5)

	promoteChain(t, tr, g, b1, b2, b3)

	found, err := tr.FindBlockByNumber(2)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, b2.Hash, found.Header.Hash)

	require.True(t, tr.IsMainChain(b2.Hash))
	require.Equal(t, uint64(3), tr.BestKnownNumber())
	require.Equal(t, b3.Hash, tr.Head().Hash)
}

func TestS3_ForkPromotion(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)
	b1 := header(1, 2, 1, 5)
	b2 := header(2, 3, 2, 5)
	b3 := header(3, 4, 3, 5)
	promoteChain(t, tr, g, b1, b2, b3)

	b2p := header(2, 0x13, 2, 50) // child of b1, heavier than b2
	b3p := header(3, 0x14, 0x13, 5)

	result, err := tr.SuggestBlock(blk(b2p), true)
	require.NoError(t, err)
	require.Equal(t, Added, result)
	result, err = tr.SuggestBlock(blk(b3p), true)
	require.NoError(t, err)
	require.Equal(t, Added, result)

	require.NoError(t, tr.UpdateMainChain([]*block.Block{blk(b2p), blk(b3p)}))

	require.Equal(t, b3p.Hash, tr.Head().Hash)
	require.True(t, tr.IsMainChain(b2p.Hash))
	require.True(t, tr.IsMainChain(b3p.Hash))
	require.False(t, tr.IsMainChain(b2.Hash))
	require.False(t, tr.IsMainChain(b3.Hash))

	// the displaced blocks are still known, just not main-chain.
	result, err = tr.SuggestBlock(blk(b2), true)
	require.NoError(t, err)
	require.Equal(t, AlreadyKnown, result)
}

func TestS5_InvalidateDescendantChain(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)
	b1 := header(1, 2, 1, 5)
	b2 := header(2, 3, 2, 5)
	b3 := header(3, 4, 3, 5)
	promoteChain(t, tr, g, b1, b2, b3)

	b2p := header(2, 0x13, 2, 50)
	b3p := header(3, 0x14, 0x13, 5)
	_, err := tr.SuggestBlock(blk(b2p), true)
	require.NoError(t, err)
	_, err = tr.SuggestBlock(blk(b3p), true)
	require.NoError(t, err)
	require.NoError(t, tr.UpdateMainChain([]*block.Block{blk(b2p), blk(b3p)}))

	require.NoError(t, tr.DeleteInvalidBlock(b2p))

	h, err := tr.FindHeaderByHash(b2p.Hash, false)
	require.NoError(t, err)
	require.Nil(t, h)
	h, err = tr.FindHeaderByHash(b3p.Hash, false)
	require.NoError(t, err)
	require.Nil(t, h)

	// re-suggesting the invalidated block is rejected outright.
	result, err := tr.SuggestBlock(blk(b2p), true)
	require.NoError(t, err)
	require.Equal(t, InvalidBlock, result)

	// the previous chain's BlockInfos survived and are recoverable.
	result, err = tr.SuggestBlock(blk(b2), true)
	require.NoError(t, err)
	require.Equal(t, AlreadyKnown, result)
	result, err = tr.SuggestBlock(blk(b3), true)
	require.NoError(t, err)
	require.Equal(t, AlreadyKnown, result)

	require.True(t, tr.CanAcceptNewBlocks())
}

func TestS6_CrashResumeCleanup(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)
	b1 := header(1, 2, 1, 5)
	b2 := header(2, 3, 2, 5)
	b3 := header(3, 4, 3, 5)
	promoteChain(t, tr, g, b1, b2, b3)

	b2p := header(2, 0x13, 2, 50)
	b3p := header(3, 0x14, 0x13, 5)
	_, err := tr.SuggestBlock(blk(b2p), true)
	require.NoError(t, err)
	_, err = tr.SuggestBlock(blk(b3p), true)
	require.NoError(t, err)
	require.NoError(t, tr.UpdateMainChain([]*block.Block{blk(b2p), blk(b3p)}))

	// simulate a crash mid-sweep: b2p already removed, b3p's removal
	// was recorded as the pending resume point but never applied.
	require.NoError(t, tr.headers.Delete(b2p.Hash.Bytes()))
	require.NoError(t, tr.blocks.Delete(b2p.Hash.Bytes()))
	require.NoError(t, tr.meta.Put(kv.DeletePointerKey, b3p.Hash.Bytes()))

	ptr, pending, err := tr.PendingDeletePointer()
	require.NoError(t, err)
	require.True(t, pending)
	require.Equal(t, b3p.Hash, ptr)

	require.NoError(t, tr.CleanInvalidBlocks(ptr))

	h, err := tr.FindHeaderByHash(b3p.Hash, false)
	require.NoError(t, err)
	require.Nil(t, h)

	_, pending, err = tr.PendingDeletePointer()
	require.NoError(t, err)
	require.False(t, pending)
}
