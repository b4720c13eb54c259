// Package txpool declares the transaction pool collaborator interface
// the tree depends on. The pool implementation itself is out of scope
// (spec.md Non-goals); only the interface the tree calls lives here,
// grounded on the teacher's TransactionTrackerInterface.
package txpool

import "github.com/mezonai/blocktree/hashx"

// Pool is the subset of a transaction pool the tree needs: when a
// block is promoted to the main chain, MoveToMain removes each of its
// transactions from the pool by hash.
type Pool interface {
	RemoveTransaction(hash hashx.Hash)
}

// Noop is a Pool that discards removals, useful for tests and for
// embedders that don't run a pool.
type Noop struct{}

func (Noop) RemoveTransaction(hashx.Hash) {}
