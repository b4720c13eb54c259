package tree

import (
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/kv"
)

// loadLevel loads the level at number n. If forceLoad is false and n
// is beyond the in-memory bestKnownNumber, it returns absent without
// touching cache or store — callers that must see levels beyond that
// bound (the startup search for BestKnownNumber) pass forceLoad=true.
// Either way the level cache is consulted before the meta store.
//
// loadLevel does not take blockInfoLock: per the concurrency model,
// level reads go cache-then-store and stale reads are acceptable since
// persisted bytes are immutable modulo explicit writes. Callers that
// need a consistent read-modify-write take the lock themselves around
// loadLevel+persistLevel.
func (t *Tree) loadLevel(n uint64, forceLoad bool) (*block.LevelInfo, bool) {
	if !forceLoad && n > t.BestKnownNumber() {
		return nil, false
	}
	if lvl, ok := t.caches.Levels.Get(n); ok {
		return lvl, true
	}
	raw, err := t.meta.Get(kv.LevelKey(n))
	if err != nil || raw == nil {
		return nil, false
	}
	lvl, err := t.codec.DecodeLevel(raw)
	if err != nil {
		return nil, false
	}
	return lvl, true
}

// persistLevel writes lvl through to the meta store and, if it falls
// within the caching window, the level cache. Callers must hold
// blockInfoLock for write.
func (t *Tree) persistLevel(n uint64, lvl *block.LevelInfo) error {
	raw, err := t.codec.EncodeLevel(lvl)
	if err != nil {
		return fmt.Errorf("encode level %d: %w", n, err)
	}
	if err := t.meta.Put(kv.LevelKey(n), raw); err != nil {
		return fmt.Errorf("persist level %d: %w", n, err)
	}
	t.cacheLevelIfNear(n, lvl)
	return nil
}

func (t *Tree) cacheLevelIfNear(n uint64, lvl *block.LevelInfo) {
	if t.caches.ShouldCache(n, t.Head()) {
		t.caches.Levels.Add(n, lvl)
	}
}

// dropLevel removes a level from both cache and meta store. Callers
// must hold blockInfoLock for write.
func (t *Tree) dropLevel(n uint64) error {
	t.caches.Levels.Remove(n)
	if err := t.meta.Delete(kv.LevelKey(n)); err != nil {
		return fmt.Errorf("drop level %d: %w", n, err)
	}
	return nil
}

// updateOrCreateLevel appends info to the level at n, creating the
// level if absent. The caller guarantees via IsKnownBlock that info's
// hash isn't already present — duplicate hashes must never be
// appended, which also keeps lazy repair idempotent. Callers must hold
// blockInfoLock for write.
func (t *Tree) updateOrCreateLevel(n uint64, info block.Info) (*block.LevelInfo, error) {
	lvl, ok := t.loadLevel(n, true)
	if ok {
		lvl.BlockInfos = append(lvl.BlockInfos, info)
	} else {
		lvl = &block.LevelInfo{
			HasBlockOnMainChain: false,
			BlockInfos:          []block.Info{info},
		}
		if n > t.bestKnownNumber.Load() {
			t.bestKnownNumber.Store(n)
		}
	}
	if err := t.persistLevel(n, lvl); err != nil {
		return nil, err
	}
	return lvl, nil
}
