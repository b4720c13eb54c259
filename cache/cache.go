// Package cache provides the tree's three bounded LRU caches (headers,
// blocks, levels) and the "near the head" admission policy that
// decides what's worth keeping warm.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/hashx"
)

// Capacity is the default size of each LRU. The cache is advisory — the
// KV store is ground truth — so 64 is plenty to absorb head-adjacent
// churn without masking a correctness bug behind a deep cache.
const Capacity = 64

// Caches bundles the three independent LRUs the tree consults before
// falling back to a KV read.
type Caches struct {
	Headers *lru.Cache[hashx.Hash, *block.Header]
	Blocks  *lru.Cache[hashx.Hash, *block.Block]
	Levels  *lru.Cache[uint64, *block.LevelInfo]

	// capacity is the window ShouldCache admits around the head; it
	// matches whatever size the three LRUs above were built with.
	capacity uint64
}

// New constructs the three caches at the given capacity. A capacity of
// 0 uses the package default, Capacity.
func New(capacity int) *Caches {
	if capacity <= 0 {
		capacity = Capacity
	}
	headers, _ := lru.New[hashx.Hash, *block.Header](capacity)
	blocks, _ := lru.New[hashx.Hash, *block.Block](capacity)
	levels, _ := lru.New[uint64, *block.LevelInfo](capacity)
	return &Caches{Headers: headers, Blocks: blocks, Levels: levels, capacity: uint64(capacity)}
}

// ShouldCache reports whether a level/header/block at number is worth
// keeping in memory given the current head: genesis is always kept,
// and otherwise only the window around the head (head-capacity, head+1] —
// plus the case of no head yet, where everything is near the head by
// definition.
func (c *Caches) ShouldCache(number uint64, head *block.Header) bool {
	if number == 0 || head == nil {
		return true
	}
	if number > head.Number+1 {
		return false
	}
	// head.Number - capacity < number, rearranged to avoid unsigned
	// underflow when head.Number < capacity.
	return head.Number < number+c.capacity
}
