package allocation_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/allocation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func bucket(name string, bps int, flexible bool, order int) allocation.Bucket {
	return allocation.Bucket{
		ID:         uuid.New(),
		Name:       name,
		PercentBps: bps,
		IsFlexible: flexible,
		SortOrder:  order,
	}
}

// fiftyThirtyTwenty is the classic default: Needs fixed, Wants and Goals
// flexible.
func fiftyThirtyTwenty() []allocation.Bucket {
	return []allocation.Bucket{
		bucket("Needs", 5000, false, 0),
		bucket("Wants", 3000, true, 1),
		bucket("Goals", 2000, true, 2),
	}
}

func bpsOf(buckets []allocation.Bucket) []int {
	out := make([]int, len(buckets))
	for i, b := range buckets {
		out[i] = b.PercentBps
	}
	return out
}

func assertSumFull(t *testing.T, buckets []allocation.Bucket) {
	t.Helper()
	if sum := allocation.SumBps(buckets); sum != allocation.FullShare {
		t.Errorf("expected sum %d bps, got %d (%v)", allocation.FullShare, sum, bpsOf(buckets))
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_ManualMode_SumMismatchRejected(t *testing.T) {
	// GIVEN: Manual-mode distribution summing to 9000 bps
	// WHEN: Validating
	// THEN: Rejected with a sum-mismatch error carrying the actual sum

	d := allocation.Distribution{
		Mode: allocation.ModeManual,
		Buckets: []allocation.Bucket{
			bucket("Needs", 5000, false, 0),
			bucket("Wants", 4000, true, 1),
		},
	}
	err := allocation.Validate(d)
	if !errors.Is(err, allocation.ErrSumMismatch) {
		t.Fatalf("expected sum mismatch, got %v", err)
	}

	var mismatch *allocation.SumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SumMismatchError, got %T", err)
	}
	if mismatch.Sum != 9000 {
		t.Errorf("expected reported sum 9000, got %d", mismatch.Sum)
	}
}

func TestValidate_AutoMode_SumMismatchTolerated(t *testing.T) {
	// GIVEN: Auto-mode distribution summing to 9000 bps
	// WHEN: Validating
	// THEN: Accepted (auto mode restores the sum itself)

	d := allocation.Distribution{
		Mode: allocation.ModeAuto,
		Buckets: []allocation.Bucket{
			bucket("Needs", 5000, false, 0),
			bucket("Wants", 4000, true, 1),
		},
	}
	if err := allocation.Validate(d); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_SharesOutsideRangeRejected(t *testing.T) {
	// GIVEN: Manual-mode distribution whose shares cancel to exactly
	//        10000 bps through a negative bucket
	// WHEN: Validating
	// THEN: Rejected on the per-bucket range, not saved by the sum

	d := allocation.Distribution{
		Mode: allocation.ModeManual,
		Buckets: []allocation.Bucket{
			bucket("Needs", -1000, false, 0),
			bucket("Wants", 11000, true, 1),
		},
	}
	err := allocation.Validate(d)
	if !errors.Is(err, allocation.ErrShareOutOfRange) {
		t.Fatalf("expected share out of range, got %v", err)
	}

	// Auto mode enforces the same range.
	d.Mode = allocation.ModeAuto
	if err := allocation.Validate(d); !errors.Is(err, allocation.ErrShareOutOfRange) {
		t.Errorf("expected share out of range in auto mode, got %v", err)
	}
}

func TestValidate_BucketCountBounds(t *testing.T) {
	// GIVEN: Distributions with 1 and 9 buckets
	// WHEN: Validating
	// THEN: Both rejected, below the floor and above the ceiling

	one := allocation.Distribution{
		Mode:    allocation.ModeAuto,
		Buckets: []allocation.Bucket{bucket("Only", 10000, true, 0)},
	}
	if err := allocation.Validate(one); !errors.Is(err, allocation.ErrTooFewBuckets) {
		t.Errorf("expected too-few error, got %v", err)
	}

	var many []allocation.Bucket
	for i := 0; i < 9; i++ {
		many = append(many, bucket("b", 0, true, i))
	}
	nine := allocation.Distribution{Mode: allocation.ModeAuto, Buckets: many}
	if err := allocation.Validate(nine); !errors.Is(err, allocation.ErrTooManyBuckets) {
		t.Errorf("expected too-many error, got %v", err)
	}
}

// =============================================================================
// NORMALIZE TESTS
// =============================================================================

func TestNormalize_RescalesToFullShare(t *testing.T) {
	// GIVEN: Buckets summing to 9000 bps
	// WHEN: Normalizing
	// THEN: Result sums to exactly 10000, proportions preserved

	buckets := []allocation.Bucket{
		bucket("Needs", 4500, false, 0),
		bucket("Wants", 2700, true, 1),
		bucket("Goals", 1800, true, 2),
	}
	got := allocation.Normalize(buckets)
	assertSumFull(t, got)

	want := []int{5000, 3000, 2000}
	for i, b := range got {
		if b.PercentBps != want[i] {
			t.Errorf("bucket %d: expected %d bps, got %d", i, want[i], b.PercentBps)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	// GIVEN: An already-normalized set
	// WHEN: Normalizing again
	// THEN: Unchanged

	buckets := fiftyThirtyTwenty()
	got := allocation.Normalize(buckets)
	for i, b := range got {
		if b.PercentBps != buckets[i].PercentBps {
			t.Errorf("bucket %d changed: %d -> %d", i, buckets[i].PercentBps, b.PercentBps)
		}
	}
}

func TestNormalize_RoundingRemainderToLargest(t *testing.T) {
	// GIVEN: Three equal buckets summing to 9999 (cannot rescale exactly)
	// WHEN: Normalizing
	// THEN: Sum is restored to 10000, the extra bp lands deterministically

	buckets := []allocation.Bucket{
		bucket("A", 3333, true, 0),
		bucket("B", 3333, true, 1),
		bucket("C", 3333, true, 2),
	}
	got := allocation.Normalize(buckets)
	assertSumFull(t, got)

	// Equal weights: the tie breaks by sort order, so A takes the spare bp.
	if got[0].PercentBps != 3334 || got[1].PercentBps != 3333 || got[2].PercentBps != 3333 {
		t.Errorf("unexpected split: %v", bpsOf(got))
	}
}

func TestNormalize_AllZero_EqualSplit(t *testing.T) {
	// GIVEN: Every bucket at zero
	// WHEN: Normalizing
	// THEN: Equal split, remainder to the first by sort order

	buckets := []allocation.Bucket{
		bucket("A", 0, true, 0),
		bucket("B", 0, true, 1),
		bucket("C", 0, true, 2),
	}
	got := allocation.Normalize(buckets)
	assertSumFull(t, got)
	if got[0].PercentBps < got[1].PercentBps || got[0].PercentBps < got[2].PercentBps {
		t.Errorf("expected remainder on first bucket, got %v", bpsOf(got))
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	// GIVEN: Buckets summing to 9000
	// WHEN: Normalizing
	// THEN: The input slice is untouched

	buckets := []allocation.Bucket{
		bucket("A", 4500, true, 0),
		bucket("B", 4500, true, 1),
	}
	allocation.Normalize(buckets)
	if buckets[0].PercentBps != 4500 || buckets[1].PercentBps != 4500 {
		t.Errorf("input mutated: %v", bpsOf(buckets))
	}
}

// =============================================================================
// AUTO-BALANCE EDIT TESTS
// =============================================================================

func TestAutoBalanceOnEdit_FlexibleStrategy_SparesFixedBuckets(t *testing.T) {
	// GIVEN: 50/30/20 with Needs fixed, Wants and Goals flexible
	// WHEN: Raising Needs from 5000 to 6000 with the flexible strategy
	// THEN: The 1000bp delta is taken from Wants/Goals proportionally
	//       (60/40 of their shares), the sum stays at 10000

	buckets := fiftyThirtyTwenty()
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[0].ID, 6000, allocation.StrategyFlexible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)

	if got[0].PercentBps != 6000 {
		t.Errorf("edited bucket: expected 6000, got %d", got[0].PercentBps)
	}
	if got[1].PercentBps != 2400 {
		t.Errorf("Wants: expected 2400, got %d", got[1].PercentBps)
	}
	if got[2].PercentBps != 1600 {
		t.Errorf("Goals: expected 1600, got %d", got[2].PercentBps)
	}
}

func TestAutoBalanceOnEdit_FlexibleStrategy_ShrinkGivesToFlexible(t *testing.T) {
	// GIVEN: 50/30/20
	// WHEN: Lowering Needs from 5000 to 4000 with the flexible strategy
	// THEN: The freed 1000bp lands on Wants/Goals proportionally

	buckets := fiftyThirtyTwenty()
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[0].ID, 4000, allocation.StrategyFlexible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)

	if got[0].PercentBps != 4000 || got[1].PercentBps != 3600 || got[2].PercentBps != 2400 {
		t.Errorf("unexpected split: %v", bpsOf(got))
	}
}

func TestAutoBalanceOnEdit_ProportionalStrategy_AllAbsorb(t *testing.T) {
	// GIVEN: 50/30/20
	// WHEN: Raising Wants from 3000 to 4000 with the proportional strategy
	// THEN: Needs and Goals both shrink, proportionally to their shares

	buckets := fiftyThirtyTwenty()
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[1].ID, 4000, allocation.StrategyProportional)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)

	// Needs/Goals hold 5000/2000 of the 7000 absorbing: they give
	// floor(5000*1000/7000)=714 and floor(2000*1000/7000)=285, with the
	// spare bp taken from the larger bucket.
	if got[1].PercentBps != 4000 {
		t.Errorf("edited bucket: expected 4000, got %d", got[1].PercentBps)
	}
	if got[0].PercentBps != 4285 {
		t.Errorf("Needs: expected 4285, got %d", got[0].PercentBps)
	}
	if got[2].PercentBps != 1715 {
		t.Errorf("Goals: expected 1715, got %d", got[2].PercentBps)
	}
}

func TestAutoBalanceOnEdit_AbsorbersClampAtZero(t *testing.T) {
	// GIVEN: Buckets at 9000/500/500, the small ones flexible
	// WHEN: Raising the big one to 10000 with the flexible strategy
	// THEN: Absorbers drain to zero, never negative; sum holds

	buckets := []allocation.Bucket{
		bucket("Big", 9000, false, 0),
		bucket("S1", 500, true, 1),
		bucket("S2", 500, true, 2),
	}
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[0].ID, 10000, allocation.StrategyFlexible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)

	if got[1].PercentBps != 0 || got[2].PercentBps != 0 {
		t.Errorf("expected absorbers drained, got %v", bpsOf(got))
	}
	if got[0].PercentBps != 10000 {
		t.Errorf("expected edited bucket at 10000, got %d", got[0].PercentBps)
	}
}

func TestAutoBalanceOnEdit_UnabsorbedDeltaCapsEdit(t *testing.T) {
	// GIVEN: Buckets at 4000/500/5500, only the 500 bucket flexible
	// WHEN: Raising the first to 6000 with the flexible strategy
	// THEN: The flexible bucket can cover only 500 of the 2000 delta, so
	//       the edit is capped at 4500 and the fixed bucket is untouched

	buckets := []allocation.Bucket{
		bucket("Edited", 4000, false, 0),
		bucket("Flex", 500, true, 1),
		bucket("Fixed", 5500, false, 2),
	}
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[0].ID, 6000, allocation.StrategyFlexible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)

	if got[0].PercentBps != 4500 {
		t.Errorf("expected edit capped at 4500, got %d", got[0].PercentBps)
	}
	if got[1].PercentBps != 0 {
		t.Errorf("expected flexible bucket drained, got %d", got[1].PercentBps)
	}
	if got[2].PercentBps != 5500 {
		t.Errorf("expected fixed bucket untouched, got %d", got[2].PercentBps)
	}
}

func TestAutoBalanceOnEdit_ClampsOutOfRangeValue(t *testing.T) {
	// GIVEN: 50/30/20
	// WHEN: Editing Needs to -500 (proportional strategy)
	// THEN: The value is clamped to 0, not rejected; sum holds

	buckets := fiftyThirtyTwenty()
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[0].ID, -500, allocation.StrategyProportional)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)
	if got[0].PercentBps != 0 {
		t.Errorf("expected clamp to 0, got %d", got[0].PercentBps)
	}
}

func TestAutoBalanceOnEdit_UnknownBucket(t *testing.T) {
	// GIVEN: 50/30/20
	// WHEN: Editing a bucket id that is not in the set
	// THEN: ErrBucketNotFound

	buckets := fiftyThirtyTwenty()
	_, err := allocation.AutoBalanceOnEdit(buckets, uuid.New(), 5000, allocation.StrategyProportional)
	if !errors.Is(err, allocation.ErrBucketNotFound) {
		t.Errorf("expected bucket-not-found, got %v", err)
	}
}

func TestAutoBalanceOnEdit_PreservesFlexibleFlags(t *testing.T) {
	// GIVEN: 50/30/20
	// WHEN: Any edit
	// THEN: IsFlexible flags are unchanged

	buckets := fiftyThirtyTwenty()
	got, err := allocation.AutoBalanceOnEdit(buckets, buckets[0].ID, 6000, allocation.StrategyFlexible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range got {
		if got[i].IsFlexible != buckets[i].IsFlexible {
			t.Errorf("bucket %d flexible flag changed", i)
		}
	}
}

// =============================================================================
// ADD / REMOVE TESTS
// =============================================================================

func TestAddBucket_StartsAtZero(t *testing.T) {
	// GIVEN: 50/30/20
	// WHEN: Adding a bucket
	// THEN: It starts at 0 bps with the next sort order; sum unchanged

	buckets := fiftyThirtyTwenty()
	got, err := allocation.AddBucket(buckets, "Travel", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSumFull(t, got)

	added := got[len(got)-1]
	if added.PercentBps != 0 {
		t.Errorf("expected new bucket at 0 bps, got %d", added.PercentBps)
	}
	if added.SortOrder != 3 {
		t.Errorf("expected sort order 3, got %d", added.SortOrder)
	}
}

func TestAddBucket_RejectedAtCeiling(t *testing.T) {
	// GIVEN: A distribution already at 8 buckets
	// WHEN: Adding a ninth
	// THEN: Rejected

	var buckets []allocation.Bucket
	for i := 0; i < allocation.MaxBuckets; i++ {
		buckets = append(buckets, bucket("b", 1250, true, i))
	}
	_, err := allocation.AddBucket(buckets, "Ninth", true)
	if !errors.Is(err, allocation.ErrTooManyBuckets) {
		t.Errorf("expected too-many error, got %v", err)
	}
}

func TestRemoveBucket_AutoModeRenormalizes(t *testing.T) {
	// GIVEN: 50/30/20 in auto mode
	// WHEN: Removing Goals (2000 bps)
	// THEN: Needs and Wants are rescaled to sum 10000

	buckets := fiftyThirtyTwenty()
	got, err := allocation.RemoveBucket(buckets, buckets[2].ID, allocation.ModeAuto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	assertSumFull(t, got)

	// 5000/8000 and 3000/8000 of the full share.
	if got[0].PercentBps != 6250 || got[1].PercentBps != 3750 {
		t.Errorf("unexpected rescale: %v", bpsOf(got))
	}
}

func TestRemoveBucket_ManualModeLeavesSumAlone(t *testing.T) {
	// GIVEN: 50/30/20 in manual mode
	// WHEN: Removing Goals
	// THEN: Remaining buckets are untouched; re-balancing is the caller's job

	buckets := fiftyThirtyTwenty()
	got, err := allocation.RemoveBucket(buckets, buckets[2].ID, allocation.ModeManual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].PercentBps != 5000 || got[1].PercentBps != 3000 {
		t.Errorf("unexpected change: %v", bpsOf(got))
	}
}

func TestRemoveBucket_RejectedAtFloor(t *testing.T) {
	// GIVEN: A distribution at the 2-bucket floor
	// WHEN: Removing one
	// THEN: Rejected

	buckets := []allocation.Bucket{
		bucket("A", 5000, true, 0),
		bucket("B", 5000, true, 1),
	}
	_, err := allocation.RemoveBucket(buckets, buckets[0].ID, allocation.ModeAuto)
	if !errors.Is(err, allocation.ErrTooFewBuckets) {
		t.Errorf("expected too-few error, got %v", err)
	}
}
