package tree

import (
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/events"
	"github.com/mezonai/blocktree/hashx"
	"github.com/mezonai/blocktree/internal/logx"
	"github.com/mezonai/blocktree/kv"
)

// The methods in this file exist for the loader package's
// LoadBlocksFromDb, which needs to reach into tree state the way
// spec.md's bootstrap step does, without the tree package exposing
// its locks or storage handles directly.

// SetAcceptingNewBlocks flips the acceptance gate. LoadBlocksFromDb is
// its caller; DeleteInvalidBlock flips the same gate directly.
func (t *Tree) SetAcceptingNewBlocks(accepting bool) {
	t.canAcceptNewBlocks.Store(accepting)
}

// PendingDeletePointer reports whether an invalidation sweep was
// interrupted mid-run, and the descendant hash it should resume from.
func (t *Tree) PendingDeletePointer() (hashx.Hash, bool, error) {
	raw, err := t.meta.Get(kv.DeletePointerKey)
	if err != nil {
		return hashx.Hash{}, false, err
	}
	if raw == nil {
		return hashx.Hash{}, false, nil
	}
	h, ok := hashx.FromBytes(raw)
	return h, ok, nil
}

// ResetHeadTo sets Head directly without running block promotion —
// used only to seed Head from an explicit LoadBlocksFromDb startNumber
// (spec.md §4.5 step 3: "set Head to the header at startNumber-1").
func (t *Tree) ResetHeadTo(h *block.Header) {
	t.setHead(h)
}

// LevelAt exposes a level read that ignores the in-memory
// BestKnownNumber bound (cache first, then meta store) for the loader's
// highest-total-difficulty selection at each height.
func (t *Tree) LevelAt(number uint64) (*block.LevelInfo, bool) {
	return t.loadLevel(number, true)
}

// DropLevelAndClampBestKnown removes a level that has neither a header
// nor a body reachable (spec.md §4.5 step 5, "neither present") and
// clamps BestKnownNumber below it.
func (t *Tree) DropLevelAndClampBestKnown(number uint64) error {
	t.blockInfoLock.Lock()
	defer t.blockInfoLock.Unlock()

	if err := t.dropLevel(number); err != nil {
		return err
	}
	if number == 0 {
		t.bestKnownNumber.Store(0)
		return nil
	}
	if number-1 < t.bestKnownNumber.Load() {
		t.bestKnownNumber.Store(number - 1)
	}
	return nil
}

// SuggestBestFromFullBlock advances BestSuggested and
// BestSuggestedFullBlock to a block loaded from disk and emits
// NewBestSuggestedBlock, mirroring the non-header-only path of
// spec.md §4.5 step 5.
func (t *Tree) SuggestBestFromFullBlock(h *block.Header) {
	t.setBestSuggested(h)
	t.setBestSuggestedFull(h)
	t.bus.Publish(events.Event{Kind: events.NewBestSuggestedBlock, Header: h})
	logx.Infof("LOADER", "best suggested from db load | number=%d | hash=%s", h.Number, h.Hash)
}

// SuggestBestFromHeaderOnly advances only BestSuggested, for a
// fast-sync header found without its body. No event is emitted, per
// spec.md §4.5 step 5.
func (t *Tree) SuggestBestFromHeaderOnly(h *block.Header) {
	t.setBestSuggested(h)
}

// HeaderByHashRaw exposes an unrepaired, cache-bypassing header lookup:
// the stored header as decoded, without TotalDifficulty attached.
func (t *Tree) HeaderByHashRaw(hash hashx.Hash) (*block.Header, error) {
	return t.loadHeaderRaw(hash)
}

// LoadPersistedHead reads the head pointer a prior process wrote to
// meta and sets Head (and Genesis, if the pointed-to header is the
// genesis block) before LoadBlocksFromDb resolves its start height.
// A process that never promoted a block has no head record — that is
// not an error, the tree simply starts empty. A head record pointing
// at a header the store no longer has is unrecoverable: the header and
// level stores are supposed to be consistent by construction, and this
// means they are not.
func (t *Tree) LoadPersistedHead() error {
	raw, err := t.meta.Get(kv.HeadKey)
	if err != nil {
		return fmt.Errorf("load head pointer: %w", err)
	}
	if raw == nil {
		return nil
	}
	hash, ok := hashx.FromBytes(raw)
	if !ok {
		return corruptionf("LoadPersistedHead", "head pointer is %d bytes, want 32", len(raw))
	}
	h, err := t.loadHeader(hash)
	if err != nil {
		return fmt.Errorf("load head header %s: %w", hash, err)
	}
	if h == nil {
		return corruptionf("LoadPersistedHead", "head pointer references missing header %s", hash)
	}
	if h.IsGenesis() {
		t.setGenesis(h)
	}
	t.setHead(h)
	t.setBestSuggested(h)
	t.setBestSuggestedFull(h)
	return nil
}
