package tree

import (
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/hashx"
)

// IsKnownBlock reports whether a block at number with hash is known to
// the tree, via the fast paths spec.md lays out before falling back to
// a level scan.
func (t *Tree) IsKnownBlock(number uint64, hash hashx.Hash) bool {
	if number > t.BestKnownNumber() {
		return false
	}
	if head := t.Head(); head != nil && head.Hash == hash {
		return true
	}
	if _, ok := t.caches.Headers.Get(hash); ok {
		return true
	}
	lvl, ok := t.loadLevel(number, false)
	if !ok {
		return false
	}
	return lvl.FindIndex(hash) >= 0
}

// IsMainChain reports whether hash is the main-chain block at its
// height.
func (t *Tree) IsMainChain(hash hashx.Hash) bool {
	h, err := t.FindHeaderByHash(hash, false)
	if err != nil || h == nil {
		return false
	}
	lvl, ok := t.loadLevel(h.Number, false)
	if !ok {
		return false
	}
	return lvl.HasBlockOnMainChain && len(lvl.BlockInfos) > 0 && lvl.BlockInfos[0].BlockHash == hash
}

// WasProcessed reports whether the block at (number, hash) has been
// processed, per its BlockInfo.
func (t *Tree) WasProcessed(number uint64, hash hashx.Hash) bool {
	lvl, ok := t.loadLevel(number, false)
	if !ok {
		return false
	}
	idx := lvl.FindIndex(hash)
	if idx < 0 {
		return false
	}
	return lvl.BlockInfos[idx].WasProcessed
}

// FindHeaderByHash looks up a header by hash, cache-then-store. If
// mainChainOnly is set, the header must additionally be the main-chain
// block at its height.
func (t *Tree) FindHeaderByHash(hash hashx.Hash, mainChainOnly bool) (*block.Header, error) {
	h, err := t.loadHeader(hash)
	if err != nil || h == nil {
		return nil, err
	}
	if mainChainOnly && !t.isMainAt(h.Number, hash) {
		return nil, nil
	}
	return h, nil
}

// FindBlockByHash looks up a full block by hash, cache-then-store.
func (t *Tree) FindBlockByHash(hash hashx.Hash, mainChainOnly bool) (*block.Block, error) {
	h, err := t.loadHeader(hash)
	if err != nil || h == nil {
		return nil, err
	}
	if mainChainOnly && !t.isMainAt(h.Number, hash) {
		return nil, nil
	}
	b, err := t.loadBlockBody(hash, h)
	if err != nil || b == nil {
		return nil, err
	}
	return b, nil
}

func (t *Tree) isMainAt(number uint64, hash hashx.Hash) bool {
	lvl, ok := t.loadLevel(number, false)
	if !ok {
		return false
	}
	return lvl.HasBlockOnMainChain && len(lvl.BlockInfos) > 0 && lvl.BlockInfos[0].BlockHash == hash
}

// loadHeader fetches a header from cache or the header store and
// attaches its TotalDifficulty from the level's BlockInfo — the
// canonical source, per spec.md §3. If the header exists but no
// BlockInfo does (a crash between the header write and the level
// write in suggest()), it lazily repairs by computing TD from
// ancestors and synthesizing the BlockInfo.
func (t *Tree) loadHeader(hash hashx.Hash) (*block.Header, error) {
	if h, ok := t.caches.Headers.Get(hash); ok {
		return h, nil
	}
	h, err := t.loadHeaderRaw(hash)
	if err != nil || h == nil {
		return nil, err
	}
	td, ok := t.blockInfoTD(h.Number, hash)
	if !ok {
		td, err = t.repairBlockInfo(h)
		if err != nil {
			return nil, err
		}
	}
	h.TotalDifficulty = td
	if t.caches.ShouldCache(h.Number, t.Head()) {
		t.caches.Headers.Add(hash, h)
	}
	return h, nil
}

// loadHeaderRaw decodes a header's stored bytes without attaching TD.
func (t *Tree) loadHeaderRaw(hash hashx.Hash) (*block.Header, error) {
	raw, err := t.headers.Get(hash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load header %s: %w", hash, err)
	}
	if raw == nil {
		return nil, nil
	}
	h, err := t.codec.DecodeHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("decode header %s: %w", hash, err)
	}
	return h, nil
}

// blockInfoTD returns the TotalDifficulty recorded in hash's BlockInfo
// at number, if one exists. It reads the level with forceLoad=true so
// a BlockInfo above a not-yet-reconstructed BestKnownNumber is still
// found rather than repaired into a duplicate.
func (t *Tree) blockInfoTD(number uint64, hash hashx.Hash) (uint64, bool) {
	lvl, ok := t.loadLevel(number, true)
	if !ok {
		return 0, false
	}
	idx := lvl.FindIndex(hash)
	if idx < 0 {
		return 0, false
	}
	return lvl.BlockInfos[idx].TotalDifficulty, true
}

// repairBlockInfo computes h's total difficulty by walking to its
// parent (repairing the parent first if needed) and synthesizes a
// BlockInfo for h. It does not hold blockInfoLock across the parent
// recursion — only around the final updateOrCreateLevel call — so
// repairing a multi-generation orphan chain cannot deadlock on itself.
func (t *Tree) repairBlockInfo(h *block.Header) (uint64, error) {
	var td uint64
	if h.IsGenesis() {
		td = h.Difficulty
	} else {
		parent, err := t.loadHeaderRaw(h.ParentHash)
		if err != nil {
			return 0, err
		}
		if parent == nil {
			return 0, invariantf("repairBlockInfo", "orphan header %s at number %d: parent %s missing", h.Hash, h.Number, h.ParentHash)
		}
		parentTD, ok := t.blockInfoTD(parent.Number, parent.Hash)
		if !ok {
			parentTD, err = t.repairBlockInfo(parent)
			if err != nil {
				return 0, err
			}
		}
		td = parentTD + h.Difficulty
	}

	t.blockInfoLock.Lock()
	_, err := t.updateOrCreateLevel(h.Number, block.Info{
		BlockHash:       h.Hash,
		TotalDifficulty: td,
		WasProcessed:    false,
	})
	t.blockInfoLock.Unlock()
	return td, err
}

func (t *Tree) loadBlockBody(hash hashx.Hash, h *block.Header) (*block.Block, error) {
	if b, ok := t.caches.Blocks.Get(hash); ok {
		return b, nil
	}
	raw, err := t.blocks.Get(hash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load block %s: %w", hash, err)
	}
	if raw == nil {
		return nil, nil
	}
	b, err := t.codec.DecodeBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("decode block %s: %w", hash, err)
	}
	b.Header = h
	return b, nil
}

// FindHeaderByNumber resolves the unambiguous header at a height: the
// main-chain block if the level has one, or the sole entry if the
// level is unforked. A forked, not-yet-promoted level cannot be
// resolved by number.
func (t *Tree) FindHeaderByNumber(number uint64) (*block.Header, error) {
	hash, ok, err := t.hashOnMainOrOnlyHash(number)
	if err != nil || !ok {
		return nil, err
	}
	return t.loadHeader(hash)
}

// FindBlockByNumber is FindHeaderByNumber plus body.
func (t *Tree) FindBlockByNumber(number uint64) (*block.Block, error) {
	hash, ok, err := t.hashOnMainOrOnlyHash(number)
	if err != nil || !ok {
		return nil, err
	}
	h, err := t.loadHeader(hash)
	if err != nil || h == nil {
		return nil, err
	}
	return t.loadBlockBody(hash, h)
}

func (t *Tree) hashOnMainOrOnlyHash(number uint64) (hashx.Hash, bool, error) {
	lvl, ok := t.loadLevel(number, false)
	if !ok {
		return hashx.Hash{}, false, nil
	}
	if lvl.HasBlockOnMainChain {
		return lvl.BlockInfos[0].BlockHash, true, nil
	}
	if len(lvl.BlockInfos) == 1 {
		return lvl.BlockInfos[0].BlockHash, true, nil
	}
	return hashx.Hash{}, false, invariantf("FindByNumber", "level %d has %d forks with no main chain block: cannot disambiguate by number", number, len(lvl.BlockInfos))
}

// FindHeaders walks headers by number starting at startHash, with
// stride skip+1, returning a pre-sized, sparse slice of length count:
// positions past the end of the chain (or below height 0) are nil.
func (t *Tree) FindHeaders(startHash hashx.Hash, count, skip int, reverse bool) ([]*block.Header, error) {
	start, err := t.FindHeaderByHash(startHash, false)
	if err != nil {
		return nil, err
	}
	out := make([]*block.Header, count)
	if start == nil {
		return out, nil
	}
	stride := int64(skip + 1)
	if reverse {
		stride = -stride
	}
	n := int64(start.Number)
	for i := 0; i < count; i++ {
		if n < 0 {
			n += stride
			continue
		}
		h, err := t.FindHeaderByNumber(uint64(n))
		if err != nil {
			return nil, err
		}
		out[i] = h
		n += stride
	}
	return out, nil
}

// FindBlocks is FindHeaders plus bodies.
func (t *Tree) FindBlocks(startHash hashx.Hash, count, skip int, reverse bool) ([]*block.Block, error) {
	start, err := t.FindBlockByHash(startHash, false)
	if err != nil {
		return nil, err
	}
	out := make([]*block.Block, count)
	if start == nil {
		return out, nil
	}
	stride := int64(skip + 1)
	if reverse {
		stride = -stride
	}
	n := int64(start.Header.Number)
	for i := 0; i < count; i++ {
		if n < 0 {
			n += stride
			continue
		}
		b, err := t.FindBlockByNumber(uint64(n))
		if err != nil {
			return nil, err
		}
		out[i] = b
		n += stride
	}
	return out, nil
}
