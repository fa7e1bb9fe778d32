/*
allocator.go - Distribution edit operations

PURPOSE:
  Validates and rebalances a set of buckets under edit operations. Every
  operation is pure: it returns a new bucket slice and never touches
  storage. Callers persist the result in a single atomic write so a
  concurrent reader never observes a distribution that does not sum to
  10000 bps.

OPERATIONS:
  ValidateSum:       Sum == 10000 check
  Normalize:         Proportional rescale to exactly 10000, idempotent
  AutoBalanceOnEdit: Set one bucket, absorb the delta into the others
  AddBucket:         Append a zero-share bucket (max 8)
  RemoveBucket:      Drop a bucket (min 2), renormalize in auto mode

FAILURE CONDITIONS:
  Out-of-range bucket count and manual-mode sum mismatches are validation
  errors reported to the caller; they block persistence and are never
  silently coerced. Out-of-range percentage edits, by contrast, are
  clamped rather than rejected.

SEE ALSO:
  - bps.go: The integer split/absorb primitives
  - metrics/computer.go: Consumes committed distribution state
*/
package allocation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrTooManyBuckets  = fmt.Errorf("%w: distribution holds at most %d buckets", ledger.ErrValidation, MaxBuckets)
	ErrTooFewBuckets   = fmt.Errorf("%w: distribution holds at least %d buckets", ledger.ErrValidation, MinBuckets)
	ErrSumMismatch     = fmt.Errorf("%w: bucket percentages must sum to %d bps", ledger.ErrValidation, FullShare)
	ErrShareOutOfRange = fmt.Errorf("%w: bucket share must lie within [0, %d] bps", ledger.ErrValidation, FullShare)
	ErrBucketNotFound  = errors.New("bucket not found")
)

// SumMismatchError reports the actual sum alongside the invariant.
type SumMismatchError struct {
	Sum int
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("bucket percentages sum to %d bps, want %d", e.Sum, FullShare)
}

func (e *SumMismatchError) Unwrap() error { return ErrSumMismatch }

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateSum reports whether bucket percentages sum to exactly 10000 bps.
func ValidateSum(buckets []Bucket) bool {
	return SumBps(buckets) == FullShare
}

// Validate checks a distribution against the persistence invariants:
// bucket count within [2, 8], every share within [0, 10000] and, for
// manual mode, an exact 10000 sum. Auto mode restores the sum itself, so
// only the count and range are enforced there.
func Validate(d Distribution) error {
	if len(d.Buckets) < MinBuckets {
		return ErrTooFewBuckets
	}
	if len(d.Buckets) > MaxBuckets {
		return ErrTooManyBuckets
	}
	for _, b := range d.Buckets {
		if b.PercentBps < 0 || b.PercentBps > FullShare {
			return fmt.Errorf("%w: %q holds %d bps", ErrShareOutOfRange, b.Name, b.PercentBps)
		}
	}
	if d.Mode == ModeManual && !ValidateSum(d.Buckets) {
		return &SumMismatchError{Sum: SumBps(d.Buckets)}
	}
	return nil
}

// =============================================================================
// NORMALIZE
// =============================================================================

// Normalize rescales every bucket proportionally to its current share so
// the new sum is exactly 10000 bps. The integer rounding remainder
// (bounded by len(buckets)-1 in either direction) is applied to the single
// largest bucket, deterministically, which makes the operation idempotent
// on an already-normalized set.
//
// A degenerate all-zero set is split equally, remainder to the first
// bucket by sort order.
func Normalize(buckets []Bucket) []Bucket {
	out := cloneBuckets(buckets)
	if len(out) == 0 {
		return out
	}

	sum := SumBps(out)
	if sum == 0 {
		all := make([]int, len(out))
		for i := range all {
			all[i] = i
		}
		shares := splitProportional(out, all, FullShare)
		for i := range out {
			out[i].PercentBps = shares[i]
		}
		return out
	}

	total := 0
	for i := range out {
		// Round half up so an already-exact set maps to itself.
		out[i].PercentBps = (buckets[i].PercentBps*FullShare + sum/2) / sum
		total += out[i].PercentBps
	}

	if rem := FullShare - total; rem != 0 {
		ranked := rankedIndexes(out, func(b Bucket) int { return b.PercentBps })
		out[ranked[0]].PercentBps += rem
	}
	return out
}

// =============================================================================
// AUTO-BALANCE EDIT
// =============================================================================

// AutoBalanceOnEdit sets the edited bucket to newValue (clamped to
// [0, 10000]) and absorbs the delta into the remaining buckets:
//
//   - StrategyFlexible: only buckets flagged flexible absorb, split
//     proportionally to their current shares among themselves. If the
//     flexible set has zero total share the delta is split equally.
//   - StrategyProportional: all other buckets absorb proportionally.
//
// Absorbing buckets are clamped at zero; any delta they cannot cover is
// left on the edited bucket, so the edit is capped rather than pushing a
// neighbor negative. When the pre-call sum is 10000 the post-call sum is
// exactly 10000. IsFlexible flags are never mutated.
func AutoBalanceOnEdit(buckets []Bucket, editedID uuid.UUID, newValue int, strategy Strategy) ([]Bucket, error) {
	out := cloneBuckets(buckets)

	edited := -1
	for i := range out {
		if out[i].ID == editedID {
			edited = i
			break
		}
	}
	if edited < 0 {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, editedID)
	}

	oldValue := out[edited].PercentBps
	newValue = ClampShare(newValue)
	delta := oldValue - newValue

	var targets []int
	for i := range out {
		if i == edited {
			continue
		}
		if strategy == StrategyFlexible && !out[i].IsFlexible {
			continue
		}
		targets = append(targets, i)
	}

	switch {
	case delta == 0:
		out[edited].PercentBps = newValue

	case delta > 0:
		// Edited bucket shrank: hand the freed share to the targets.
		shares := splitProportional(out, targets, delta)
		for i, ti := range targets {
			out[ti].PercentBps += shares[i]
		}
		out[edited].PercentBps = newValue
		if len(targets) == 0 {
			// Nobody to absorb: the edit is capped at its old value.
			out[edited].PercentBps = oldValue
		}

	default:
		// Edited bucket grew: take the difference from the targets,
		// clamped at zero each. Whatever they cannot cover stays on the
		// edited bucket.
		taken, unabsorbed := absorb(out, targets, -delta)
		for i, ti := range targets {
			out[ti].PercentBps -= taken[i]
		}
		out[edited].PercentBps = newValue - unabsorbed
	}

	return out, nil
}

// =============================================================================
// ADD / REMOVE
// =============================================================================

// AddBucket appends a new bucket starting at 0 bps. Rejected when the
// distribution already holds the maximum of 8 buckets.
func AddBucket(buckets []Bucket, name string, flexible bool) ([]Bucket, error) {
	if len(buckets) >= MaxBuckets {
		return nil, ErrTooManyBuckets
	}
	out := cloneBuckets(buckets)

	order := 0
	for _, b := range out {
		if b.SortOrder >= order {
			order = b.SortOrder + 1
		}
	}
	out = append(out, Bucket{
		ID:         uuid.New(),
		Name:       name,
		PercentBps: 0,
		IsFlexible: flexible,
		SortOrder:  order,
	})
	return out, nil
}

// RemoveBucket drops the bucket with the given id. Rejected when the
// distribution is at the floor of 2 buckets. In auto mode the result is
// renormalized; in manual mode the caller must re-balance explicitly
// before the set will validate.
func RemoveBucket(buckets []Bucket, id uuid.UUID, mode Mode) ([]Bucket, error) {
	if len(buckets) <= MinBuckets {
		return nil, ErrTooFewBuckets
	}

	out := make([]Bucket, 0, len(buckets)-1)
	found := false
	for _, b := range buckets {
		if b.ID == id {
			found = true
			continue
		}
		out = append(out, b)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, id)
	}

	if mode == ModeAuto {
		out = Normalize(out)
	}
	return out, nil
}

func cloneBuckets(buckets []Bucket) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	return out
}
