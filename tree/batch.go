package tree

// ArmLoadBatch arms the bootstrap loader's backpressure rendezvous:
// the returned channel closes once UpdateHeadBlock observes a head at
// batchEnd, or immediately if the tree already sits there. The loader
// is single-threaded, so a second Arm before the first completes would
// be a bug in the caller, not a concurrency hazard to defend against.
func (t *Tree) ArmLoadBatch(batchEnd uint64) <-chan struct{} {
	t.loadBatchMu.Lock()
	defer t.loadBatchMu.Unlock()

	done := make(chan struct{})
	if head := t.Head(); head != nil && head.Number >= batchEnd {
		close(done)
		return done
	}
	t.dbLoadBatch = &loadBatch{end: batchEnd, done: done}
	return done
}

// CancelLoadBatch releases a waiting ArmLoadBatch caller without
// waiting for the head to actually reach batchEnd, for cooperative
// cancellation of LoadBlocksFromDb.
func (t *Tree) CancelLoadBatch() {
	t.loadBatchMu.Lock()
	defer t.loadBatchMu.Unlock()

	if t.dbLoadBatch == nil {
		return
	}
	t.dbLoadBatch.cancelled = true
	close(t.dbLoadBatch.done)
	t.dbLoadBatch = nil
}

// completeLoadBatchIfDue fulfills the armed batch handle once the head
// reaches its target height.
func (t *Tree) completeLoadBatchIfDue(headNumber uint64) {
	t.loadBatchMu.Lock()
	defer t.loadBatchMu.Unlock()

	if t.dbLoadBatch == nil || headNumber != t.dbLoadBatch.end {
		return
	}
	close(t.dbLoadBatch.done)
	t.dbLoadBatch = nil
}
