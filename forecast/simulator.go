/*
simulator.go - Day-by-day balance projection

PURPOSE:
  Walks every day from today (day 0) through the horizon, inclusive, and
  folds scheduled transactions and projected rule occurrences into a
  running balance.

ORDER WITHIN A DAY:
  1. Persisted transactions dated exactly that day (non-projected)
  2. Active rule occurrences (projected expenses, IsProjection=true)

  Transfers never appear: they net to zero across the organization's own
  accounts. Retroactive backfill rows are history markers and are skipped
  for the same reason they are excluded from the balance fold.

  The result is finite and recomputed from scratch on every call; there
  is no incremental or streaming mode.
*/
package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
)

// Input bundles everything Project needs. All fields are read-only.
type Input struct {
	StartingBalance decimal.Decimal
	Scheduled       []ledger.Transaction
	Rules           []recurrence.Rule
	Runs            []recurrence.Run
	Today           time.Time
	HorizonDays     int // <= 0 means DefaultHorizonDays
}

// Project produces one row per day from day 0 ("today") through
// HorizonDays inclusive. Pure: recomputes from scratch, mutates nothing.
func Project(in Input) []DailyProjection {
	horizon := in.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	today := ledger.Day(in.Today)
	if in.Today.IsZero() {
		today = ledger.Day(time.Now())
	}

	// Index persisted transactions by the day they land on.
	byDay := make(map[time.Time][]ledger.Transaction)
	for _, tx := range in.Scheduled {
		if tx.Type == ledger.TypeTransfer || tx.RetroactiveBackfill {
			continue
		}
		d := tx.EffectiveDate()
		byDay[d] = append(byDay[d], tx)
	}

	lastRuns := recurrence.LatestSuccessfulRun(in.Runs)

	balance := in.StartingBalance
	out := make([]DailyProjection, 0, horizon+1)

	for d := 0; d <= horizon; d++ {
		date := today.AddDate(0, 0, d)
		day := DailyProjection{
			Date:    date,
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}

		// 1. Already-persisted movements.
		for _, tx := range byDay[date] {
			tx := tx
			balance = balance.Add(tx.SignedAmount())
			entry := Entry{
				Description:   tx.Description,
				Type:          tx.Type,
				Amount:        tx.Amount,
				TransactionID: &tx.ID,
			}
			day.Entries = append(day.Entries, entry)
			if tx.Type == ledger.TypeIncome {
				day.Income = day.Income.Add(tx.Amount)
			} else {
				day.Expense = day.Expense.Add(tx.Amount)
			}
		}

		// 2. Projected rule occurrences. Always expenses: rules model
		// outgoing obligations only.
		for _, rule := range in.Rules {
			rule := rule
			var lastRun *time.Time
			if at, ok := lastRuns[rule.ID]; ok {
				at := at
				lastRun = &at
			}
			if !recurrence.OccursOn(rule, lastRun, date) {
				continue
			}
			balance = balance.Sub(rule.Amount)
			day.Entries = append(day.Entries, Entry{
				Description:  rule.Name,
				Type:         ledger.TypeExpense,
				Amount:       rule.Amount,
				IsProjection: true,
				RuleID:       &rule.ID,
			})
			day.Expense = day.Expense.Add(rule.Amount)
		}

		day.Balance = balance
		out = append(out, day)
	}
	return out
}
