/*
bps.go - Integer basis-point arithmetic

PURPOSE:
  All percentage math in the allocator is done on integer basis points
  (1 bp = 0.01%). Proportional splits of integers never sum exactly, so
  every helper here assigns rounding remainders deterministically:
  largest weight wins, ties broken by sort order. The same inputs always
  produce the same outputs, across calls and across implementations.
*/
package allocation

// FullShare is 100% expressed in basis points.
const FullShare = 10000

// SumBps returns the total basis points across buckets.
func SumBps(buckets []Bucket) int {
	total := 0
	for _, b := range buckets {
		total += b.PercentBps
	}
	return total
}

// ClampShare bounds a share to the representable [0, 10000] range.
// Degenerate edit inputs are coerced, not rejected.
func ClampShare(v int) int {
	if v < 0 {
		return 0
	}
	if v > FullShare {
		return FullShare
	}
	return v
}

// rankedIndexes returns bucket indexes ordered for deterministic remainder
// assignment: descending weight, then ascending sort order, then ascending
// original position.
func rankedIndexes(buckets []Bucket, weightOf func(Bucket) int) []int {
	idx := make([]int, len(buckets))
	for i := range idx {
		idx[i] = i
	}
	// Insertion sort: n <= 8, stability by original position.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0; j-- {
			a, b := idx[j-1], idx[j]
			wa, wb := weightOf(buckets[a]), weightOf(buckets[b])
			if wa > wb || (wa == wb && buckets[a].SortOrder <= buckets[b].SortOrder) {
				break
			}
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
	return idx
}

// splitProportional divides amount across the buckets at the given indexes
// proportionally to their current shares. Each target gets the floored
// proportional share; the remainder (at most len(targets)-1 bps) goes to the
// largest target. When every target weight is zero the amount is split
// equally, remainder to the first by sort order.
//
// The returned slice is parallel to targets and sums exactly to amount.
func splitProportional(buckets []Bucket, targets []int, amount int) []int {
	shares := make([]int, len(targets))
	if len(targets) == 0 || amount == 0 {
		return shares
	}

	total := 0
	for _, ti := range targets {
		total += buckets[ti].PercentBps
	}

	assigned := 0
	if total == 0 {
		each := amount / len(targets)
		for i := range targets {
			shares[i] = each
			assigned += each
		}
	} else {
		for i, ti := range targets {
			shares[i] = buckets[ti].PercentBps * amount / total
			assigned += shares[i]
		}
	}

	if rem := amount - assigned; rem != 0 {
		sub := make([]Bucket, len(targets))
		for i, ti := range targets {
			sub[i] = buckets[ti]
		}
		ranked := rankedIndexes(sub, func(b Bucket) int { return b.PercentBps })
		shares[ranked[0]] += rem
	}
	return shares
}

// absorb removes `need` basis points from the buckets at the given indexes,
// proportionally to their current shares, clamping each at zero. Returns the
// per-target amounts taken (parallel to targets) and any unabsorbed
// remainder the targets could not cover.
func absorb(buckets []Bucket, targets []int, need int) (taken []int, unabsorbed int) {
	taken = make([]int, len(targets))
	if len(targets) == 0 || need <= 0 {
		return taken, need
	}

	capacity := 0
	for _, ti := range targets {
		capacity += buckets[ti].PercentBps
	}

	// Targets cannot cover the delta: drain them all.
	if capacity <= need {
		for i, ti := range targets {
			taken[i] = buckets[ti].PercentBps
		}
		return taken, need - capacity
	}

	// Proportional floor shares. floor(w*need/capacity) <= w since
	// need < capacity, so no clamping is required here.
	assigned := 0
	for i, ti := range targets {
		taken[i] = buckets[ti].PercentBps * need / capacity
		assigned += taken[i]
	}

	// Distribute the rounding remainder one bp at a time, largest target
	// first, skipping any target already drained.
	sub := make([]Bucket, len(targets))
	for i, ti := range targets {
		sub[i] = buckets[ti]
	}
	ranked := rankedIndexes(sub, func(b Bucket) int { return b.PercentBps })
	rem := need - assigned
	for rem > 0 {
		progressed := false
		for _, ri := range ranked {
			if rem == 0 {
				break
			}
			if taken[ri] < buckets[targets[ri]].PercentBps {
				taken[ri]++
				rem--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return taken, rem
}
