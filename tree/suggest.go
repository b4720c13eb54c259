package tree

import (
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/events"
	"github.com/mezonai/blocktree/hashx"
	"github.com/mezonai/blocktree/internal/logx"
)

// AddBlockResult is the outcome of SuggestHeader/SuggestBlock.
type AddBlockResult int

const (
	Added AddBlockResult = iota
	AlreadyKnown
	UnknownParent
	InvalidBlock
	CannotAccept
)

func (r AddBlockResult) String() string {
	switch r {
	case Added:
		return "Added"
	case AlreadyKnown:
		return "AlreadyKnown"
	case UnknownParent:
		return "UnknownParent"
	case InvalidBlock:
		return "InvalidBlock"
	case CannotAccept:
		return "CannotAccept"
	default:
		return "Unknown"
	}
}

// SuggestHeader suggests a header-only block (a fast-sync artifact).
func (t *Tree) SuggestHeader(h *block.Header) (AddBlockResult, error) {
	return t.suggest(h, nil, false)
}

// SuggestBlock suggests a full block. If shouldProcess is true and the
// block becomes the new best suggestion, BestSuggestedFullBlock
// advances alongside BestSuggested.
func (t *Tree) SuggestBlock(b *block.Block, shouldProcess bool) (AddBlockResult, error) {
	return t.suggest(b.Header, b, shouldProcess)
}

func (t *Tree) suggest(h *block.Header, b *block.Block, shouldProcess bool) (AddBlockResult, error) {
	if !t.CanAcceptNewBlocks() {
		return CannotAccept, nil
	}

	if t.isInvalid(h.Number, h.Hash) {
		return InvalidBlock, nil
	}

	if h.Number == 0 {
		if t.BestSuggested() != nil {
			return Added, invariantf("SuggestHeader", "genesis suggested more than once")
		}
	} else if t.IsKnownBlock(h.Number, h.Hash) {
		return AlreadyKnown, nil
	} else if !t.IsKnownBlock(h.Number-1, h.ParentHash) {
		return UnknownParent, nil
	}

	td, err := t.computeTotalDifficulty(h)
	if err != nil {
		return Added, err
	}
	h.TotalDifficulty = td

	if b != nil {
		raw, err := t.codec.EncodeBlock(b)
		if err != nil {
			return Added, fmt.Errorf("encode block %s: %w", h.Hash, err)
		}
		if err := t.blocks.Put(h.Hash.Bytes(), raw); err != nil {
			return Added, fmt.Errorf("write block %s: %w", h.Hash, err)
		}
	}
	rawHeader, err := t.codec.EncodeHeader(h)
	if err != nil {
		return Added, fmt.Errorf("encode header %s: %w", h.Hash, err)
	}
	if err := t.headers.Put(h.Hash.Bytes(), rawHeader); err != nil {
		return Added, fmt.Errorf("write header %s: %w", h.Hash, err)
	}

	t.blockInfoLock.Lock()
	_, err = t.updateOrCreateLevel(h.Number, block.Info{
		BlockHash:       h.Hash,
		TotalDifficulty: td,
		WasProcessed:    false,
	})
	t.blockInfoLock.Unlock()
	if err != nil {
		return Added, err
	}

	if t.caches.ShouldCache(h.Number, t.Head()) {
		t.caches.Headers.Add(h.Hash, h)
		if b != nil {
			t.caches.Blocks.Add(h.Hash, b)
		}
	}

	if h.IsGenesis() || td > bestTD(t.BestSuggested()) {
		t.setBestSuggested(h)
		if b != nil && shouldProcess {
			t.setBestSuggestedFull(h)
		}
		t.bus.Publish(events.Event{Kind: events.NewBestSuggestedBlock, Header: h})
		logx.Infof("TREE", "new best suggested | number=%d | hash=%s | td=%d", h.Number, h.Hash, td)
	}

	return Added, nil
}

func bestTD(h *block.Header) uint64 {
	if h == nil {
		return 0
	}
	return h.TotalDifficulty
}

// computeTotalDifficulty returns TD(genesis) = genesis.Difficulty, or
// parent.TotalDifficulty + h.Difficulty otherwise. The parent is
// guaranteed known by the caller's preceding IsKnownBlock check.
func (t *Tree) computeTotalDifficulty(h *block.Header) (uint64, error) {
	if h.IsGenesis() {
		return h.Difficulty, nil
	}
	parent, ok := t.findHeaderAtNumber(h.Number-1, h.ParentHash)
	if !ok {
		return 0, invariantf("computeTotalDifficulty", "orphan header %s at number %d: parent %s not found", h.Hash, h.Number, h.ParentHash)
	}
	return parent.TotalDifficulty + h.Difficulty, nil
}

// findHeaderAtNumber loads a header by hash, trusting that it belongs
// at number (the caller has already confirmed this via IsKnownBlock).
func (t *Tree) findHeaderAtNumber(number uint64, hash hashx.Hash) (*block.Header, bool) {
	h, err := t.FindHeaderByHash(hash, false)
	if err != nil || h == nil {
		return nil, false
	}
	return h, true
}

func (t *Tree) isInvalid(number uint64, hash hashx.Hash) bool {
	_, ok := t.invalidSet.Load(invalidKey{number: number, hash: hash})
	return ok
}

func (t *Tree) markInvalid(number uint64, hash hashx.Hash) {
	t.invalidSet.Store(invalidKey{number: number, hash: hash}, struct{}{})
}
