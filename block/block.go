// Package block defines the header, body, and per-level bookkeeping
// types the block tree index operates on. The tree treats headers and
// bodies as opaque beyond the fields it needs for fork-choice.
package block

import "github.com/mezonai/blocktree/hashx"

// Header is a block header. Everything beyond Number, Hash,
// ParentHash, and Difficulty is opaque to the tree.
type Header struct {
	Number          uint64
	Hash            hashx.Hash
	ParentHash      hashx.Hash
	Difficulty      uint64
	TotalDifficulty uint64 // populated by the tree on suggest/load, never by the caller
}

// IsGenesis reports whether this header sits at height 0.
func (h *Header) IsGenesis() bool {
	return h.Number == 0
}

// Transaction is the minimal view the tree needs of a transaction: its
// hash, so a promoted block can evict its transactions from the pool.
type Transaction interface {
	Hash() hashx.Hash
}

// Body is the opaque payload accompanying a Header.
type Body struct {
	Transactions []Transaction
}

// Block is a Header plus its Body. A block may exist as header-only
// (fast-sync artifact, Body == nil) before its body arrives.
type Block struct {
	Header *Header
	Body   *Body
}

// NewBlock pairs a header with a body.
func NewBlock(h *Header, b *Body) *Block {
	return &Block{Header: h, Body: b}
}

// Info is the per-block bookkeeping record stored inside a
// ChainLevelInfo: the hash, its accumulated difficulty, and whether
// the block processor has validated it yet.
type Info struct {
	BlockHash       hashx.Hash
	TotalDifficulty uint64
	WasProcessed    bool
}

// LevelInfo is the per-height index of every known block at that
// height. blockInfos[0] is the main-chain block whenever
// HasBlockOnMainChain is true; the rest are fork siblings.
type LevelInfo struct {
	HasBlockOnMainChain bool
	BlockInfos          []Info
}

// FindIndex returns the position of hash within the level's
// BlockInfos, or -1 if absent. Levels are expected small (1-3 entries
// even during a fork), so a linear scan is the right tool.
func (l *LevelInfo) FindIndex(hash hashx.Hash) int {
	for i := range l.BlockInfos {
		if l.BlockInfos[i].BlockHash == hash {
			return i
		}
	}
	return -1
}
