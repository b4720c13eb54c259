package tree

import (
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/hashx"
	"github.com/mezonai/blocktree/internal/logx"
	"github.com/mezonai/blocktree/kv"
)

// DeleteInvalidBlock marks a block the processor rejected, along with
// every descendant, for removal. It resets BestSuggested and
// BestSuggestedFullBlock back to Head so the sync/processing pipeline
// is forced to re-propose, and pauses acceptance of new blocks for the
// duration of the cleanup sweep.
func (t *Tree) DeleteInvalidBlock(b *block.Header) error {
	t.markInvalid(b.Number, b.Hash)

	head := t.Head()
	t.setBestSuggested(head)
	t.setBestSuggestedFull(head)

	t.canAcceptNewBlocks.Store(false)
	defer t.canAcceptNewBlocks.Store(true)

	return t.CleanInvalidBlocks(b.Hash)
}

// CleanInvalidBlocks walks from startHash toward higher numbers along
// parent pointers, removing the invalid block and every descendant
// from all four stores (headers, blocks, levels, caches). It records
// DELETE_POINTER_KEY before each removal so a crash mid-sweep can
// resume from where it left off.
func (t *Tree) CleanInvalidBlocks(startHash hashx.Hash) error {
	currentHash := startHash
	currentHeader, err := t.loadHeaderRaw(currentHash)
	if err != nil {
		return err
	}
	if currentHeader == nil {
		// Already removed by a prior, interrupted sweep; nothing left
		// to do but clear the resume pointer.
		return t.meta.Delete(kv.DeletePointerKey)
	}
	currentNumber := currentHeader.Number

	for {
		nextHash, hasNext, err := t.cleanOneLevel(currentNumber, currentHash)
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}
		currentHash = nextHash
		currentNumber++
	}
}

func (t *Tree) cleanOneLevel(currentNumber uint64, currentHash hashx.Hash) (hashx.Hash, bool, error) {
	t.blockInfoLock.Lock()
	defer t.blockInfoLock.Unlock()

	currentLevel, ok := t.loadLevel(currentNumber, true)
	if !ok {
		return hashx.Hash{}, false, invariantf("CleanInvalidBlocks", "no level at number %d for %s", currentNumber, currentHash)
	}

	removeLevel := len(currentLevel.BlockInfos) == 1
	if !removeLevel {
		filtered := currentLevel.BlockInfos[:0:0]
		for _, bi := range currentLevel.BlockInfos {
			if bi.BlockHash != currentHash {
				filtered = append(filtered, bi)
			}
		}
		currentLevel.BlockInfos = filtered
	}

	nextHash, hasNext, err := t.findDescendant(currentNumber+1, currentHash)
	if err != nil {
		return hashx.Hash{}, false, err
	}

	if hasNext {
		if err := t.meta.Put(kv.DeletePointerKey, nextHash.Bytes()); err != nil {
			return hashx.Hash{}, false, fmt.Errorf("record delete pointer: %w", err)
		}
	} else {
		if err := t.meta.Delete(kv.DeletePointerKey); err != nil {
			return hashx.Hash{}, false, fmt.Errorf("clear delete pointer: %w", err)
		}
	}

	if removeLevel {
		if err := t.dropLevel(currentNumber); err != nil {
			return hashx.Hash{}, false, err
		}
		if currentNumber == 0 {
			t.bestKnownNumber.Store(0)
		} else if currentNumber-1 < t.bestKnownNumber.Load() {
			t.bestKnownNumber.Store(currentNumber - 1)
		}
	} else {
		if err := t.persistLevel(currentNumber, currentLevel); err != nil {
			return hashx.Hash{}, false, err
		}
	}

	t.caches.Headers.Remove(currentHash)
	t.caches.Blocks.Remove(currentHash)
	if err := t.headers.Delete(currentHash.Bytes()); err != nil {
		return hashx.Hash{}, false, fmt.Errorf("delete header %s: %w", currentHash, err)
	}
	if err := t.blocks.Delete(currentHash.Bytes()); err != nil {
		return hashx.Hash{}, false, fmt.Errorf("delete block %s: %w", currentHash, err)
	}

	logx.Infof("TREE", "removed invalid block | number=%d | hash=%s", currentNumber, currentHash)
	return nextHash, hasNext, nil
}

// findDescendant locates the single child of parentHash at nextNumber:
// the sole entry if the level is unforked, or a scan for the header
// whose ParentHash matches otherwise.
func (t *Tree) findDescendant(nextNumber uint64, parentHash hashx.Hash) (hashx.Hash, bool, error) {
	nextLevel, ok := t.loadLevel(nextNumber, true)
	if !ok {
		return hashx.Hash{}, false, nil
	}
	if len(nextLevel.BlockInfos) == 1 {
		return nextLevel.BlockInfos[0].BlockHash, true, nil
	}
	for _, bi := range nextLevel.BlockInfos {
		h, err := t.loadHeaderRaw(bi.BlockHash)
		if err != nil {
			return hashx.Hash{}, false, err
		}
		if h != nil && h.ParentHash == parentHash {
			return bi.BlockHash, true, nil
		}
	}
	return hashx.Hash{}, false, nil
}
