/*
Package metrics derives per-bucket budget, spend, pace, and projection
figures for a target month.

PURPOSE:
  For a month and a committed distribution, this package resolves a base
  income figure, applies bucket percentages to obtain budgets, aggregates
  categorized spend, and computes pace/projection indicators. Snapshots
  are derived data: recomputed fresh per request, never authoritative,
  and invalidated by any transaction or distribution change.

KEY CONCEPTS IN THIS FILE (snapshot.go):
  - BucketMetric: One bucket's computed row
  - MonthlySnapshot: The full month view, a concrete tagged structure
  - DecodeSnapshot: Validated decode of persisted snapshot rows

  Persisted snapshot rows are decoded into the concrete structure and
  validated on read; an untyped blob is never trusted.

SEE ALSO:
  - computer.go: The computation itself
*/
package metrics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/ledger"
)

// =============================================================================
// SNAPSHOT SHAPES
// =============================================================================

// BucketMetric is one bucket's computed figures for the month.
type BucketMetric struct {
	BucketID   uuid.UUID       `json:"bucket_id"`
	Name       string          `json:"name"`
	PercentBps int             `json:"percent_bps"`
	Budget     decimal.Decimal `json:"budget"`
	Spend      decimal.Decimal `json:"spend"`
	SpendPct   decimal.Decimal `json:"spend_pct"`
	PaceIdeal  decimal.Decimal `json:"pace_ideal"`
	Projection decimal.Decimal `json:"projection"`
}

// MonthlySnapshot is the computed month view. Derived, not independently
// authoritative: treat any cached copy as invalidated by a transaction or
// distribution write.
type MonthlySnapshot struct {
	DistributionID uuid.UUID                 `json:"distribution_id"`
	Month          string                    `json:"month"` // "2006-01"
	BaseIncomeMode allocation.BaseIncomeMode `json:"base_income_mode"`
	BaseIncome     decimal.Decimal           `json:"base_income"`
	DayRatio       decimal.Decimal           `json:"day_ratio"`
	Buckets        []BucketMetric            `json:"buckets"`
	TotalSpend     decimal.Decimal           `json:"total_spend"`
	TotalBudget    decimal.Decimal           `json:"total_budget"`
	ComputedAt     time.Time                 `json:"computed_at"`
}

// MonthKey formats a month the way snapshots store it.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// =============================================================================
// VALIDATED DECODE
// =============================================================================

// DecodeSnapshot parses a persisted snapshot row and validates it. Rows
// are rejected rather than partially trusted: a snapshot missing its month
// or carrying negative figures indicates a corrupt write.
func DecodeSnapshot(data []byte) (*MonthlySnapshot, error) {
	var s MonthlySnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}
	return &s, nil
}

func (s *MonthlySnapshot) validate() error {
	if _, err := time.Parse("2006-01", s.Month); err != nil {
		return fmt.Errorf("snapshot month %q: %v", s.Month, err)
	}
	if s.DayRatio.IsNegative() || s.DayRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("snapshot day_ratio %s out of [0,1]", s.DayRatio)
	}
	for _, b := range s.Buckets {
		if b.BucketID == uuid.Nil {
			return fmt.Errorf("snapshot bucket %q missing id", b.Name)
		}
		if b.PercentBps < 0 || b.PercentBps > allocation.FullShare {
			return fmt.Errorf("snapshot bucket %q percent_bps %d out of range", b.Name, b.PercentBps)
		}
		if b.Budget.IsNegative() || b.Spend.IsNegative() {
			return fmt.Errorf("snapshot bucket %q carries negative figures", b.Name)
		}
	}
	return nil
}
