// Package loader implements the block tree's DB bootstrap step:
// replaying persisted levels on startup, reconstructing BestSuggested
// and Head, and handing blocks to the processor (via the tree's event
// bus) in batches with backpressure.
package loader

import (
	"context"
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/internal/logx"
	"github.com/mezonai/blocktree/tree"
)

// DefaultBatchSize matches spec.md §4.5's default.
const DefaultBatchSize = 1000

// fastSyncHeaderMargin is the spec.md §4.5 constant guarding the
// headers-only fast-forward: no skip is taken once 1024 or fewer heights
// of the target remain, since those are assumed to still need a real
// processor pass once bodies arrive.
const fastSyncHeaderMargin = 1024

// Options configures a LoadBlocksFromDb run.
type Options struct {
	// StartNumber overrides the default start height (Head.Number, or
	// 0 with no head). When set, Head is reset to the header at
	// StartNumber-1 (or nil at 0) before loading begins.
	StartNumber *uint64

	// BatchSize is the backpressure window; 0 uses DefaultBatchSize.
	BatchSize uint64

	// MaxToLoad caps the number of heights loaded; 0 means unbounded
	// (load through BestKnownNumber).
	MaxToLoad uint64
}

// LoadBlocksFromDb replays persisted levels from Options.StartNumber
// (or Head, by default) up through BestKnownNumber, advancing
// BestSuggested/BestSuggestedFullBlock as it goes. It resumes any
// invalidation sweep interrupted by a prior crash before doing
// anything else. CanAcceptNewBlocks is false for the duration of the
// call and is always restored on exit, success or failure.
func LoadBlocksFromDb(ctx context.Context, t *tree.Tree, opts Options) error {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	t.SetAcceptingNewBlocks(false)
	defer t.SetAcceptingNewBlocks(true)

	if err := resumeInterruptedCleanup(t); err != nil {
		return err
	}

	if err := t.LoadPersistedHead(); err != nil {
		return fmt.Errorf("load persisted head: %w", err)
	}

	// BestKnownNumber lives only in memory; a freshly constructed Tree
	// starts it at zero regardless of what a prior process persisted,
	// so bootstrap must reconstruct it from the level store before
	// trusting it to size the replay.
	best, err := t.ReconstructBestKnownNumber(ctx)
	if err != nil {
		return fmt.Errorf("reconstruct best known number: %w", err)
	}

	startNumber, err := resolveStartNumber(t, opts.StartNumber)
	if err != nil {
		return err
	}

	headNumber := uint64(0)
	if head := t.Head(); head != nil {
		headNumber = head.Number
	}
	var blocksToLoad uint64
	if best > headNumber {
		blocksToLoad = best - headNumber
	}
	if opts.MaxToLoad > 0 && opts.MaxToLoad < blocksToLoad {
		blocksToLoad = opts.MaxToLoad
	}

	loaded := uint64(0)
	for n := startNumber; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.MaxToLoad > 0 && n-startNumber >= opts.MaxToLoad {
			return nil
		}

		lvl, ok := t.LevelAt(n)
		if !ok {
			logx.Infof("LOADER", "no level at height %d, stopping load", n)
			return nil
		}

		info := highestTotalDifficulty(lvl)

		blk, err := t.FindBlockByHash(info.BlockHash, false)
		if err != nil {
			return fmt.Errorf("load block %s at height %d: %w", info.BlockHash, n, err)
		}
		if blk != nil {
			t.SuggestBestFromFullBlock(blk.Header)
			loaded++
			if err := awaitBackpressure(ctx, t, n, loaded, batchSize); err != nil {
				return err
			}
			continue
		}

		hdr, err := t.FindHeaderByHash(info.BlockHash, false)
		if err != nil {
			return fmt.Errorf("load header %s at height %d: %w", info.BlockHash, n, err)
		}
		if hdr != nil {
			t.SuggestBestFromHeaderOnly(hdr)
			if blocksToLoad > fastSyncHeaderMargin+1 {
				remaining := blocksToLoad - (n - startNumber)
				if remaining > fastSyncHeaderMargin {
					n += blocksToLoad - fastSyncHeaderMargin - 1
				}
			}
			continue
		}

		logx.Infof("LOADER", "neither header nor body present at height %d, truncating", n)
		return t.DropLevelAndClampBestKnown(n)
	}
}

func resumeInterruptedCleanup(t *tree.Tree) error {
	ptr, pending, err := t.PendingDeletePointer()
	if err != nil {
		return fmt.Errorf("check delete pointer: %w", err)
	}
	if !pending {
		return nil
	}
	logx.Infof("LOADER", "resuming interrupted invalidation sweep | pointer=%s", ptr)
	return t.CleanInvalidBlocks(ptr)
}

func resolveStartNumber(t *tree.Tree, explicit *uint64) (uint64, error) {
	if explicit == nil {
		if head := t.Head(); head != nil {
			return head.Number, nil
		}
		return 0, nil
	}
	start := *explicit
	if start == 0 {
		t.ResetHeadTo(nil)
		return 0, nil
	}
	h, err := t.FindHeaderByNumber(start - 1)
	if err != nil {
		return 0, err
	}
	if h == nil {
		return 0, fmt.Errorf("loader: no header at number %d to seed head for explicit start %d", start-1, start)
	}
	t.ResetHeadTo(h)
	return start, nil
}

// highestTotalDifficulty picks the BlockInfo with the highest TD at a
// level; a tie keeps the first entry seen, matching iteration order.
func highestTotalDifficulty(lvl *block.LevelInfo) block.Info {
	best := lvl.BlockInfos[0]
	for _, bi := range lvl.BlockInfos[1:] {
		if bi.TotalDifficulty > best.TotalDifficulty {
			best = bi
		}
	}
	return best
}

// awaitBackpressure arms the batch-completion rendezvous every
// batchSize blocks loaded, once the processor has fallen more than
// batchSize heights behind the loader's current position, and blocks
// until UpdateHeadBlock reaches that height or the context is
// cancelled.
func awaitBackpressure(ctx context.Context, t *tree.Tree, blockNumber, loaded, batchSize uint64) error {
	if batchSize == 0 || loaded%batchSize != 0 {
		return nil
	}
	headNumber := uint64(0)
	if head := t.Head(); head != nil {
		headNumber = head.Number
	}
	if blockNumber <= headNumber || blockNumber-headNumber <= batchSize {
		return nil
	}

	batchEnd := blockNumber - batchSize
	done := t.ArmLoadBatch(batchEnd)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.CancelLoadBatch()
		return ctx.Err()
	}
}
