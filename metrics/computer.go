/*
computer.go - Monthly bucket metrics computation

PURPOSE:
  Computes the MonthlySnapshot for a target month from a committed
  distribution and the organization's ledger facts. Pure: reads its
  inputs, mutates nothing, touches no storage.

BASE INCOME MODES:
  current_month:  Settled income dated within the month so far
  avg_3m/avg_6m:  Mean income over the trailing N complete months
  planned_manual: The distribution's stored planned income, falling back
                  to current_month when null

DAY RATIO:
  elapsed days / total days in month, bounded to [0,1]. For the current
  month elapsed counts through today; past months are 1.0, future months
  0. Pace and projection are linear in the ratio:
    pace_ideal = budget * day_ratio
    projection = spend / day_ratio   (0 when the ratio is 0)

FAILURE:
  A missing distribution yields ErrNoDistribution, never fabricated
  zeros. Callers respond by offering default-distribution creation.
*/
package metrics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/ledger"
)

// ErrNoDistribution signals "no distribution configured".
var ErrNoDistribution = fmt.Errorf("%w: no distribution", ledger.ErrNotConfigured)

var (
	hundred   = decimal.NewFromInt(100)
	fullShare = decimal.NewFromInt(allocation.FullShare)
)

// =============================================================================
// ACTIVE DISTRIBUTION RESOLUTION
// =============================================================================

// ResolveActiveDistribution picks the distribution the metrics computer
// should use: the default-flagged one if present, else the most recently
// created. The dependency is explicit in the signature; there is no
// ambient lookup.
func ResolveActiveDistribution(distributions []allocation.Distribution) (*allocation.Distribution, error) {
	if len(distributions) == 0 {
		return nil, ErrNoDistribution
	}
	var latest *allocation.Distribution
	for i := range distributions {
		d := &distributions[i]
		if d.IsDefault {
			return d, nil
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			latest = d
		}
	}
	return latest, nil
}

// =============================================================================
// SNAPSHOT COMPUTATION
// =============================================================================

// Input bundles the ledger facts the computer reads. Transactions should
// cover the target month plus enough trailing history for the averaging
// modes (six complete months suffices).
type Input struct {
	Transactions []ledger.Transaction
	Today        time.Time
}

// ComputeSnapshot derives the month view for the given distribution.
// mode overrides the distribution's configured base income mode when
// non-empty. A nil distribution returns ErrNoDistribution.
func ComputeSnapshot(dist *allocation.Distribution, mode allocation.BaseIncomeMode, month time.Time, in Input) (*MonthlySnapshot, error) {
	if dist == nil {
		return nil, ErrNoDistribution
	}
	if mode == "" {
		mode = dist.BaseIncomeMode
	}
	today := ledger.Day(in.Today)
	if in.Today.IsZero() {
		today = ledger.Day(time.Now())
	}
	monthStart := ledger.StartOfMonth(month.Year(), month.Month())

	baseIncome := resolveBaseIncome(dist, mode, monthStart, today, in.Transactions)
	dayRatio := dayRatioFor(monthStart, today)

	snap := &MonthlySnapshot{
		DistributionID: dist.ID,
		Month:          MonthKey(monthStart),
		BaseIncomeMode: mode,
		BaseIncome:     baseIncome,
		DayRatio:       dayRatio,
		TotalSpend:     decimal.Zero,
		TotalBudget:    decimal.Zero,
		ComputedAt:     time.Now().UTC(),
	}

	for _, bucket := range dist.Buckets {
		budget := baseIncome.Mul(decimal.NewFromInt(int64(bucket.PercentBps))).Div(fullShare)
		spend := bucketSpend(in.Transactions, bucket, monthStart)

		spendPct := decimal.Zero
		if budget.IsPositive() {
			spendPct = spend.Div(budget).Mul(hundred)
		}
		projection := decimal.Zero
		if dayRatio.IsPositive() {
			projection = spend.Div(dayRatio)
		}

		snap.Buckets = append(snap.Buckets, BucketMetric{
			BucketID:   bucket.ID,
			Name:       bucket.Name,
			PercentBps: bucket.PercentBps,
			Budget:     budget,
			Spend:      spend,
			SpendPct:   spendPct,
			PaceIdeal:  budget.Mul(dayRatio),
			Projection: projection,
		})
		snap.TotalSpend = snap.TotalSpend.Add(spend)
		snap.TotalBudget = snap.TotalBudget.Add(budget)
	}

	return snap, nil
}

// =============================================================================
// BASE INCOME
// =============================================================================

func resolveBaseIncome(dist *allocation.Distribution, mode allocation.BaseIncomeMode, monthStart, today time.Time, txs []ledger.Transaction) decimal.Decimal {
	switch mode {
	case allocation.IncomeAvg3Months:
		return trailingAverageIncome(txs, monthStart, 3)
	case allocation.IncomeAvg6Months:
		return trailingAverageIncome(txs, monthStart, 6)
	case allocation.IncomePlannedManual:
		if dist.PlannedIncome != nil {
			return *dist.PlannedIncome
		}
		return monthIncome(txs, monthStart, today)
	default: // current_month
		return monthIncome(txs, monthStart, today)
	}
}

// monthIncome sums settled income dated within the month so far: through
// today for the current month, the whole month otherwise.
func monthIncome(txs []ledger.Transaction, monthStart, today time.Time) decimal.Decimal {
	cutoff := ledger.EndOfMonth(monthStart.Year(), monthStart.Month())
	if ledger.SameMonth(monthStart, today) && today.Before(cutoff) {
		cutoff = today
	}

	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != ledger.TypeIncome || !tx.Status.Settled() {
			continue
		}
		d := ledger.Day(tx.Date)
		if d.Before(monthStart) || d.After(cutoff) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// trailingAverageIncome returns the mean settled income over the n
// complete months preceding monthStart.
func trailingAverageIncome(txs []ledger.Transaction, monthStart time.Time, n int) decimal.Decimal {
	windowStart := monthStart.AddDate(0, -n, 0)

	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != ledger.TypeIncome || !tx.Status.Settled() {
			continue
		}
		d := ledger.Day(tx.Date)
		if d.Before(windowStart) || !d.Before(monthStart) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total.Div(decimal.NewFromInt(int64(n)))
}

// =============================================================================
// SPEND AND PACE
// =============================================================================

// bucketSpend sums settled categorized expenses tagged with the bucket,
// restricted to the month. Backfill rows count here: they are real spend
// in their month even though the balance fold excludes them.
func bucketSpend(txs []ledger.Transaction, bucket allocation.Bucket, monthStart time.Time) decimal.Decimal {
	monthEnd := ledger.EndOfMonth(monthStart.Year(), monthStart.Month())

	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != ledger.TypeExpense || !tx.Status.Settled() {
			continue
		}
		if tx.BucketID == nil || *tx.BucketID != bucket.ID {
			continue
		}
		d := ledger.Day(tx.Date)
		if d.Before(monthStart) || d.After(monthEnd) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// dayRatioFor returns elapsed/total days for the month, bounded to [0,1].
func dayRatioFor(monthStart, today time.Time) decimal.Decimal {
	totalDays := ledger.DaysInMonth(monthStart.Year(), monthStart.Month())

	switch {
	case ledger.SameMonth(monthStart, today):
		elapsed := today.Day()
		if elapsed > totalDays {
			elapsed = totalDays
		}
		return decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(totalDays)))
	case monthStart.Before(today):
		return decimal.NewFromInt(1)
	default:
		return decimal.Zero
	}
}
