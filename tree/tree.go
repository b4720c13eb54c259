// Package tree implements the block tree index: the authoritative
// in-process structure tracking every known header and body, organized
// by height into levels that fan out across competing forks, and the
// fork-choice protocol that promotes a chain of headers to be the
// main chain by cumulative proof-of-work difficulty.
//
// It generalizes the teacher's flat slot-keyed BlockStore
// (blockstore/blockstore.go) to the height-indexed, fork-aware
// ChainLevelInfo structure this index needs, keeping the teacher's
// mutex-guarded read-modify-write shape.
package tree

import (
	"sync"
	"sync/atomic"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/cache"
	"github.com/mezonai/blocktree/chainspec"
	"github.com/mezonai/blocktree/codec"
	"github.com/mezonai/blocktree/events"
	"github.com/mezonai/blocktree/hashx"
	"github.com/mezonai/blocktree/kv"
	"github.com/mezonai/blocktree/txpool"
)

// Tree is the block tree index. It is safe for concurrent use: reads
// go cache-then-store, and every read-modify-write of the level store
// is serialized by blockInfoLock.
type Tree struct {
	headers kv.Provider
	blocks  kv.Provider
	meta    kv.Provider
	codec   codec.Codec

	caches *cache.Caches

	spec chainspec.Provider
	pool txpool.Pool
	bus  *events.Bus

	// blockInfoLock guards the read-modify-write of the level store,
	// per spec.md's single reader-writer lock. bestKnownNumber is an
	// atomic rather than a plain field guarded by the same lock so
	// that loadLevel's forceLoad=false fast path can read it without
	// re-entering blockInfoLock from a goroutine that already holds
	// it for write.
	blockInfoLock   sync.RWMutex
	bestKnownNumber atomic.Uint64

	// stateMu guards the small set of top-level pointers below; reads
	// of Head/BestSuggested elsewhere in the codebase take a snapshot
	// under this lock rather than relying on atomics per field. Each
	// accessor locks for a single field, so two fields read one after
	// the other are not a combined snapshot.
	stateMu             sync.RWMutex
	genesis             *block.Header
	head                *block.Header
	bestSuggested       *block.Header
	bestSuggestedFull   *block.Header

	canAcceptNewBlocks atomic.Bool

	// invalidSet is a concurrent set of (number, hash) keys the
	// processor has rejected. sync.Map rather than a mutex-guarded map
	// since isInvalid is on the hot suggest() path and markInvalid
	// happens far less often.
	invalidSet sync.Map

	// dbLoadBatch, when non-nil, is the in-flight bootstrap batch
	// awaiting a head advance to batchEnd before LoadBlocksFromDb
	// resumes. Single-producer (the loader), single-consumer
	// (UpdateHeadBlock) by construction: the loader is single
	// threaded, so double-arming cannot happen.
	loadBatchMu sync.Mutex
	dbLoadBatch *loadBatch
}

type loadBatch struct {
	end uint64
	done chan struct{}
	cancelled bool
}

type invalidKey struct {
	number uint64
	hash   hashx.Hash
}

// Config bundles the collaborators a Tree is constructed with.
type Config struct {
	Headers kv.Provider
	Blocks  kv.Provider
	Meta    kv.Provider
	Codec   codec.Codec
	Spec    chainspec.Provider
	Pool    txpool.Pool
	Bus     *events.Bus

	// CacheCapacity sizes the three LRUs (cache.New); 0 uses
	// cache.Capacity.
	CacheCapacity int
}

// New constructs a Tree over the given stores. It does not load any
// persisted state; call LoadBlocksFromDb (loader package) to replay a
// prior run. A fresh tree starts empty until a genesis is suggested.
func New(cfg Config) *Tree {
	if cfg.Codec == nil {
		cfg.Codec = codec.NewJSONCodec()
	}
	if cfg.Pool == nil {
		cfg.Pool = txpool.Noop{}
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewBus()
	}
	t := &Tree{
		headers:    cfg.Headers,
		blocks:     cfg.Blocks,
		meta:       cfg.Meta,
		codec:      cfg.Codec,
		caches:     cache.New(cfg.CacheCapacity),
		spec:       cfg.Spec,
		pool:       cfg.Pool,
		bus:        cfg.Bus,
	}
	t.canAcceptNewBlocks.Store(true)
	return t
}

// Events returns the tree's event bus for subscription.
func (t *Tree) Events() *events.Bus { return t.bus }

// ChainID proxies the configured chain spec provider, per spec.md §6.
func (t *Tree) ChainID() uint64 {
	if t.spec == nil {
		return 0
	}
	return t.spec.ChainID()
}

// Genesis returns the genesis header, or nil if none has been set yet.
func (t *Tree) Genesis() *block.Header {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.genesis
}

// Head returns the processed block terminating the current main chain,
// or nil if no block has been promoted yet.
func (t *Tree) Head() *block.Header {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.head
}

// BestSuggested returns the known header (any branch) with the
// highest total difficulty.
func (t *Tree) BestSuggested() *block.Header {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.bestSuggested
}

// BestSuggestedFullBlock returns the highest-TD header for which a
// full block (not just a header) has been suggested with processing
// requested.
func (t *Tree) BestSuggestedFullBlock() *block.Header {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.bestSuggestedFull
}

// BestKnownNumber returns the maximum height for which a level exists.
func (t *Tree) BestKnownNumber() uint64 {
	return t.bestKnownNumber.Load()
}

// CanAcceptNewBlocks reports whether Suggest* will currently accept
// new blocks. It is false during LoadBlocksFromDb and
// DeleteInvalidBlock.
func (t *Tree) CanAcceptNewBlocks() bool {
	return t.canAcceptNewBlocks.Load()
}

func (t *Tree) setHead(h *block.Header) {
	t.stateMu.Lock()
	t.head = h
	t.stateMu.Unlock()
}

func (t *Tree) setGenesis(h *block.Header) {
	t.stateMu.Lock()
	t.genesis = h
	t.stateMu.Unlock()
}

func (t *Tree) setBestSuggested(h *block.Header) {
	t.stateMu.Lock()
	t.bestSuggested = h
	t.stateMu.Unlock()
}

func (t *Tree) setBestSuggestedFull(h *block.Header) {
	t.stateMu.Lock()
	t.bestSuggestedFull = h
	t.stateMu.Unlock()
}
