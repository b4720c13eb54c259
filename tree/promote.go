package tree

import (
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/events"
	"github.com/mezonai/blocktree/internal/logx"
	"github.com/mezonai/blocktree/kv"
)

// UpdateMainChain promotes a contiguous, strictly ascending or
// strictly descending run of processed blocks to the main chain. The
// processor calls this after external validation; the tree does not
// re-validate.
func (t *Tree) UpdateMainChain(processedBlocks []*block.Block) error {
	if len(processedBlocks) == 0 {
		return nil
	}

	lastNumber := processedBlocks[0].Header.Number
	for _, b := range processedBlocks[1:] {
		if b.Header.Number > lastNumber {
			lastNumber = b.Header.Number
		}
	}

	t.blockInfoLock.Lock()
	defer t.blockInfoLock.Unlock()

	previousHeadNumber := uint64(0)
	if head := t.Head(); head != nil {
		previousHeadNumber = head.Number
	}

	if previousHeadNumber > lastNumber {
		for n := lastNumber + 1; n <= previousHeadNumber; n++ {
			lvl, ok := t.loadLevel(n, true)
			if !ok {
				continue
			}
			lvl.HasBlockOnMainChain = false
			if err := t.persistLevel(n, lvl); err != nil {
				return err
			}
		}
	}

	for _, b := range processedBlocks {
		if t.caches.ShouldCache(b.Header.Number, t.Head()) {
			t.caches.Headers.Add(b.Header.Hash, b.Header)
			t.caches.Blocks.Add(b.Header.Hash, b)
		}
		if err := t.moveToMainLocked(b); err != nil {
			return err
		}
	}
	return nil
}

// MoveToMain promotes a single block to main-chain status at its
// height: its BlockInfo is marked processed, swapped into
// blockInfos[0], and the level's HasBlockOnMainChain flag is set.
// Exported so a caller that already holds its own ordering guarantees
// can promote one block at a time; UpdateMainChain calls the
// lock-held variant internally.
func (t *Tree) MoveToMain(b *block.Block) error {
	t.blockInfoLock.Lock()
	defer t.blockInfoLock.Unlock()
	return t.moveToMainLocked(b)
}

func (t *Tree) moveToMainLocked(b *block.Block) error {
	h := b.Header
	lvl, ok := t.loadLevel(h.Number, true)
	if !ok {
		return invariantf("MoveToMain", "no level at number %d for block %s", h.Number, h.Hash)
	}
	idx := lvl.FindIndex(h.Hash)
	if idx < 0 {
		return invariantf("MoveToMain", "block %s not found in level %d", h.Hash, h.Number)
	}

	lvl.BlockInfos[idx].WasProcessed = true
	if idx != 0 {
		lvl.BlockInfos[0], lvl.BlockInfos[idx] = lvl.BlockInfos[idx], lvl.BlockInfos[0]
	}
	lvl.HasBlockOnMainChain = true

	if err := t.persistLevel(h.Number, lvl); err != nil {
		return err
	}

	t.bus.Publish(events.Event{Kind: events.BlockAddedToMain, Header: h})
	logx.Infof("TREE", "block added to main chain | number=%d | hash=%s", h.Number, h.Hash)

	head := t.Head()
	if h.IsGenesis() || h.TotalDifficulty > bestTD(head) {
		if err := t.updateHeadBlockLocked(b); err != nil {
			return err
		}
	}

	if b.Body != nil {
		for _, tx := range b.Body.Transactions {
			t.pool.RemoveTransaction(tx.Hash())
		}
	}
	return nil
}

// UpdateHeadBlock advances Head to block, updates Genesis if it is the
// genesis block, persists the head pointer, and emits NewHeadBlock.
func (t *Tree) UpdateHeadBlock(b *block.Block) error {
	t.blockInfoLock.Lock()
	defer t.blockInfoLock.Unlock()
	return t.updateHeadBlockLocked(b)
}

func (t *Tree) updateHeadBlockLocked(b *block.Block) error {
	h := b.Header
	if h.IsGenesis() {
		t.setGenesis(h)
	}
	t.setHead(h)

	if err := t.meta.Put(kv.HeadKey, h.Hash.Bytes()); err != nil {
		return fmt.Errorf("persist head %s: %w", h.Hash, err)
	}

	t.bus.Publish(events.Event{Kind: events.NewHeadBlock, Header: h})
	logx.Infof("TREE", "new head | number=%d | hash=%s | td=%d", h.Number, h.Hash, h.TotalDifficulty)

	t.completeLoadBatchIfDue(h.Number)
	return nil
}
