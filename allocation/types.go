/*
Package allocation provides the budget distribution engine.

PURPOSE:
  This package splits a recurring income stream into named percentage
  "buckets" under strict arithmetic invariants. Percentages are stored as
  integer basis points (0-10000) so results are exact and reproducible;
  no floating point is involved in rebalancing.

KEY CONCEPTS IN THIS FILE (types.go):
  - Bucket: A named share of income with a target percentage
  - Distribution: The full set of buckets for one organization
  - Mode/Strategy/BaseIncomeMode: The configuration surface callers pass in

CRITICAL INVARIANT:
  Within one distribution, bucket percentages sum to exactly 10000 bps.
  Manual edits are validated at save time; auto-balance edits restore the
  invariant as part of the edit. A reader must never observe a persisted
  distribution violating it.

SEE ALSO:
  - bps.go: Integer basis-point arithmetic
  - allocator.go: Edit operations (normalize, auto-balance, add/remove)
*/
package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIGURATION ENUMS
// =============================================================================

// Mode controls how bucket edits are handled.
type Mode string

const (
	// ModeAuto rebalances the remaining buckets on every edit so the sum
	// invariant always holds.
	ModeAuto Mode = "auto"

	// ModeManual leaves rebalancing to the user; the sum is enforced at
	// save time instead.
	ModeManual Mode = "manual"
)

// Strategy selects which buckets absorb the delta of an auto-balance edit.
type Strategy string

const (
	// StrategyFlexible absorbs the delta only into buckets flagged
	// flexible, proportionally to their current shares.
	StrategyFlexible Strategy = "flexible"

	// StrategyProportional absorbs the delta into all other buckets
	// proportionally to their current shares.
	StrategyProportional Strategy = "proportional"
)

// BaseIncomeMode selects how the metrics computer derives base income.
type BaseIncomeMode string

const (
	IncomeCurrentMonth  BaseIncomeMode = "current_month"
	IncomeAvg3Months    BaseIncomeMode = "avg_3m"
	IncomeAvg6Months    BaseIncomeMode = "avg_6m"
	IncomePlannedManual BaseIncomeMode = "planned_manual"
)

// =============================================================================
// BUCKET
// =============================================================================

// Bucket is a named share of income. PercentBps is in [0, 10000].
type Bucket struct {
	ID         uuid.UUID
	Name       string
	PercentBps int
	IsFlexible bool
	SortOrder  int
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

// Distribution holds 2-8 buckets intended to sum to exactly 10000 bps.
// At most one distribution per organization is flagged default.
type Distribution struct {
	ID             uuid.UUID
	Name           string
	Mode           Mode
	BaseIncomeMode BaseIncomeMode
	PlannedIncome  *decimal.Decimal
	IsDefault      bool
	Buckets        []Bucket
	CreatedAt      time.Time
}

// Hard floor and ceiling on bucket count.
const (
	MinBuckets = 2
	MaxBuckets = 8
)
