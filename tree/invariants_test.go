package tree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/kv"
)

// buildForkedTree promotes a linear chain G,b1,b2,b3 then suggests and
// promotes a heavier fork b2p,b3p off b1, leaving b2/b3 as displaced
// siblings at their levels. Returns the tree and every header involved
// so invariant tests can walk the full known set, not just the main
// chain.
func buildForkedTree(t *testing.T) (tr *Tree, mainChain []*block.Header, displaced []*block.Header) {
	t.Helper()
	tr = newTestTree(t)
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

	return tr, []*block.Header{g, b1, b2p, b3p}, []*block.Header{b2, b3}
}

// TestInvariant_TDMonotonicityOnMainChain asserts spec.md §8 invariant
// 1: total difficulty strictly increases along the main chain.
func TestInvariant_TDMonotonicityOnMainChain(t *testing.T) {
	tr, _, _ := buildForkedTree(t)

	head := tr.Head()
	require.NotNil(t, head)

	var prevTD uint64
	for n := uint64(0); n <= head.Number; n++ {
		h, err := tr.FindHeaderByNumber(n)
		require.NoError(t, err)
		require.NotNil(t, h)
		if n > 0 {
			require.Greater(t, h.TotalDifficulty, prevTD, "height %d", n)
		}
		prevTD = h.TotalDifficulty
	}
}

// TestInvariant_TDAccumulation asserts spec.md §8 invariant 2 across
// every stored header, main chain and displaced forks alike:
// TD(h) == TD(parent(h)) + h.Difficulty.
func TestInvariant_TDAccumulation(t *testing.T) {
	tr, mainChain, displaced := buildForkedTree(t)

	for _, h := range append(append([]*block.Header{}, mainChain...), displaced...) {
		stored, err := tr.FindHeaderByHash(h.Hash, false)
		require.NoError(t, err)
		require.NotNil(t, stored)

		if stored.IsGenesis() {
			require.Equal(t, stored.Difficulty, stored.TotalDifficulty)
			continue
		}
		parent, err := tr.FindHeaderByHash(stored.ParentHash, false)
		require.NoError(t, err)
		require.NotNil(t, parent)
		require.Equal(t, parent.TotalDifficulty+stored.Difficulty, stored.TotalDifficulty)
	}
}

// TestInvariant_HeadDominance asserts spec.md §8 invariant 3: Head has
// at least the TD of any main-chain block, and BestSuggested has at
// least the TD of any known header (main chain or fork).
func TestInvariant_HeadDominance(t *testing.T) {
	tr, mainChain, displaced := buildForkedTree(t)

	head := tr.Head()
	best := tr.BestSuggested()
	require.NotNil(t, head)
	require.NotNil(t, best)

	for _, h := range mainChain {
		stored, err := tr.FindHeaderByHash(h.Hash, false)
		require.NoError(t, err)
		require.GreaterOrEqual(t, head.TotalDifficulty, stored.TotalDifficulty)
	}
	for _, h := range append(append([]*block.Header{}, mainChain...), displaced...) {
		stored, err := tr.FindHeaderByHash(h.Hash, false)
		require.NoError(t, err)
		require.GreaterOrEqual(t, best.TotalDifficulty, stored.TotalDifficulty)
	}
}

// TestInvariant_MainChainContiguity asserts spec.md §8 invariant 4:
// the set of heights with a main-chain block is exactly [0, Head.Number],
// no gaps, nothing beyond Head.
func TestInvariant_MainChainContiguity(t *testing.T) {
	tr, _, _ := buildForkedTree(t)

	head := tr.Head()
	require.NotNil(t, head)

	for n := uint64(0); n <= head.Number; n++ {
		lvl, ok := tr.LevelAt(n)
		require.True(t, ok, "height %d should have a level", n)
		require.True(t, lvl.HasBlockOnMainChain, "height %d should be on the main chain", n)
	}
}

// TestInvariant_MainPlacement asserts spec.md §8 invariant 5: whenever
// a level has a main-chain block, it sits at BlockInfos[0] and its hash
// matches the header FindHeaderByNumber returns for that height.
func TestInvariant_MainPlacement(t *testing.T) {
	tr, _, _ := buildForkedTree(t)

	head := tr.Head()
	require.NotNil(t, head)

	for n := uint64(0); n <= head.Number; n++ {
		lvl, ok := tr.LevelAt(n)
		require.True(t, ok)
		require.True(t, lvl.HasBlockOnMainChain)
		require.NotEmpty(t, lvl.BlockInfos)

		byNumber, err := tr.FindHeaderByNumber(n)
		require.NoError(t, err)
		require.NotNil(t, byNumber)
		require.Equal(t, byNumber.Hash, lvl.BlockInfos[0].BlockHash)

		for _, bi := range lvl.BlockInfos[1:] {
			require.NotEqual(t, byNumber.Hash, bi.BlockHash)
		}
	}
}

// TestInvariant_SuggestIdempotence asserts spec.md §8 invariant 6 as a
// standalone property: suggesting the same block twice returns Added
// then AlreadyKnown, and observable tree state is unchanged by the
// second call.
func TestInvariant_SuggestIdempotence(t *testing.T) {
	tr := newTestTree(t)
	b := blk(header(0, 1, 0, 10))

	result, err := tr.SuggestBlock(b, true)
	require.NoError(t, err)
	require.Equal(t, Added, result)

	bestBefore := tr.BestSuggested()
	knownBefore := tr.BestKnownNumber()

	result, err = tr.SuggestBlock(b, true)
	require.NoError(t, err)
	require.Equal(t, AlreadyKnown, result)

	require.Equal(t, bestBefore.Hash, tr.BestSuggested().Hash)
	require.Equal(t, knownBefore, tr.BestKnownNumber())
}

// TestInvariant_InvalidationClosure asserts spec.md §8 invariant 7: an
// invalidated block and every descendant become unfindable by hash or
// number, and BestKnownNumber shrinks when the removed chain was the
// frontier (no surviving sibling at its levels).
func TestInvariant_InvalidationClosure(t *testing.T) {
	tr := newTestTree(t)
	g := header(0, 1, 0, 10)
	b1 := header(1, 2, 1, 5)
	b2 := header(2, 3, 2, 5)
	promoteChain(t, tr, g, b1, b2)
	require.Equal(t, uint64(2), tr.BestKnownNumber())

	require.NoError(t, tr.DeleteInvalidBlock(b2))

	h, err := tr.FindHeaderByHash(b2.Hash, false)
	require.NoError(t, err)
	require.Nil(t, h)

	byNumber, err := tr.FindHeaderByNumber(2)
	require.NoError(t, err)
	require.Nil(t, byNumber)

	require.Equal(t, uint64(1), tr.BestKnownNumber())
	require.Equal(t, b1.Hash, tr.Head().Hash)
}

// TestInvariant_CrashRecoveryCompletesSameCleanup asserts spec.md §8
// invariant 8 as a property: resuming from a recorded delete pointer
// produces the same end state (nothing findable, pointer cleared) as
// an uninterrupted DeleteInvalidBlock call on an equivalent tree.
func TestInvariant_CrashRecoveryCompletesSameCleanup(t *testing.T) {
	uninterrupted := newTestTree(t)
	g := header(0, 1, 0, 10)
	b1 := header(1, 2, 1, 5)
	b2 := header(2, 3, 2, 5)
	promoteChain(t, uninterrupted, g, b1, b2)
	require.NoError(t, uninterrupted.DeleteInvalidBlock(b1))

	resumed := newTestTree(t)
	promoteChain(t, resumed, g, b1, b2)
	require.NoError(t, resumed.meta.Put(kv.DeletePointerKey, b1.Hash.Bytes()))
	ptr, pending, err := resumed.PendingDeletePointer()
	require.NoError(t, err)
	require.True(t, pending)
	require.NoError(t, resumed.CleanInvalidBlocks(ptr))

	for _, h := range []*block.Header{b1, b2} {
		a, err := uninterrupted.FindHeaderByHash(h.Hash, false)
		require.NoError(t, err)
		require.Nil(t, a)
		b, err := resumed.FindHeaderByHash(h.Hash, false)
		require.NoError(t, err)
		require.Nil(t, b)
	}
	require.Equal(t, uninterrupted.BestKnownNumber(), resumed.BestKnownNumber())

	_, pending, err = resumed.PendingDeletePointer()
	require.NoError(t, err)
	require.False(t, pending)
}
