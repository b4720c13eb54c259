package tree

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// reconstructFanout bounds how many candidate heights
// ReconstructBestKnownNumber probes concurrently per round.
const reconstructFanout = 8

// reconstructMaxProbe is the outer bound on how far past the head
// ReconstructBestKnownNumber will search, per spec.md §9.
const reconstructMaxProbe = 10_000_000

// ReconstructBestKnownNumber recomputes BestKnownNumber at startup by
// probing the level store for the largest stored height — the
// in-memory counter starts at zero on every process restart, so this
// must run before LoadBlocksFromDb trusts it. It probes batches of
// candidate heights concurrently via errgroup, bounded by
// reconstructFanout, rather than walking one height at a time, then
// narrows the bracket with a plain binary search once one is found.
// Every probe is forceLoad=true, so it is not cut off by the in-memory
// BestKnownNumber; a probe still checks the level cache before the store.
func (t *Tree) ReconstructBestKnownNumber(ctx context.Context) (uint64, error) {
	head := t.Head()
	var headNumber uint64
	if head != nil {
		headNumber = head.Number
	}
	if !t.probeLevelExists(headNumber) {
		return headNumber, nil
	}

	lo := headNumber
	hiAbsent := headNumber + reconstructMaxProbe
	step := uint64(1)

	for lo < hiAbsent {
		upper := lo + step*reconstructFanout
		if upper > hiAbsent {
			upper = hiAbsent
		}
		var candidates []uint64
		for c := lo + step; c <= upper; c += step {
			candidates = append(candidates, c)
		}
		if len(candidates) == 0 {
			break
		}

		found := make([]bool, len(candidates))
		eg, egCtx := errgroup.WithContext(ctx)
		for i, c := range candidates {
			i, c := i, c
			eg.Go(func() error {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				found[i] = t.probeLevelExists(c)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return lo, err
		}

		advanced := false
		for i := len(found) - 1; i >= 0; i-- {
			if found[i] {
				lo = candidates[i]
				advanced = true
				break
			}
		}
		if !advanced {
			hiAbsent = candidates[0]
			break
		}
		step *= reconstructFanout
	}

	for lo+1 < hiAbsent {
		mid := lo + (hiAbsent-lo)/2
		if t.probeLevelExists(mid) {
			lo = mid
		} else {
			hiAbsent = mid
		}
	}

	t.blockInfoLock.Lock()
	if lo > t.bestKnownNumber.Load() {
		t.bestKnownNumber.Store(lo)
	}
	t.blockInfoLock.Unlock()
	return lo, nil
}

func (t *Tree) probeLevelExists(n uint64) bool {
	_, ok := t.loadLevel(n, true)
	return ok
}
