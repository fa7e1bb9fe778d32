/*
Package recurrence expands recurring-obligation rules into future due dates.

PURPOSE:
  Given a rule's start date, frequency, and the most recent successful
  materialization run, this package answers two questions:
    - when is the next occurrence due?
    - does an occurrence fall on this exact day?
  The simulator asks the second question for every day in its horizon.

KEY CONCEPTS IN THIS FILE (rule.go):
  - Rule: An outgoing recurring obligation (amount, frequency, bounds)
  - Run: One append-only materialization log entry
  - Frequency: weekly | monthly | yearly

DESIGN PRINCIPLES:
  1. Rules model expense obligations only; there are no income rules
  2. The run log is append-only; the latest successful run anchors the
     next occurrence
  3. Garbled frequencies degrade to monthly instead of failing

SEE ALSO:
  - expander.go: Occurrence arithmetic (day-of-month clamping lives there)
*/
package recurrence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Normalize maps unknown or garbled frequency values to monthly. This is a
// deliberate degenerate-input tolerance, not an error path.
func (f Frequency) Normalize() Frequency {
	switch f {
	case Weekly, Monthly, Yearly:
		return f
	default:
		return Monthly
	}
}

// =============================================================================
// RULE
// =============================================================================

// Rule is a recurring outgoing obligation. Amount is unsigned; every
// occurrence is an expense.
type Rule struct {
	ID        uuid.UUID
	Name      string
	Amount    decimal.Decimal
	Frequency Frequency
	StartDate time.Time
	EndDate   *time.Time
	IsActive  bool
	CreatedAt time.Time
}

// =============================================================================
// RUN LOG
// =============================================================================

// Run is one materialization event for a rule. The log is append-only.
type Run struct {
	ID      uuid.UUID
	RuleID  uuid.UUID
	RunAt   time.Time
	Success bool
}

// LatestSuccessfulRun returns the most recent successful run per rule.
func LatestSuccessfulRun(runs []Run) map[uuid.UUID]time.Time {
	latest := make(map[uuid.UUID]time.Time)
	for _, r := range runs {
		if !r.Success {
			continue
		}
		if prev, ok := latest[r.RuleID]; !ok || r.RunAt.After(prev) {
			latest[r.RuleID] = r.RunAt
		}
	}
	return latest
}
