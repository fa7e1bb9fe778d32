/*
Package forecast produces bounded-horizon, day-indexed balance projections.

PURPOSE:
  Combines three inputs into one timeline: the realized starting balance
  (ledger fold), already-persisted future-dated transactions, and the
  projected occurrences of recurring-obligation rules. The output is a
  deterministic sequence of daily rows a caller can render as a chart or
  feed to alerts.

KNOWN APPROXIMATION:
  A rule may fire on the same day as an already-materialized transaction
  for the same logical obligation. The simulator does not de-duplicate
  these; callers relying on the projection as authoritative must account
  for it (materialized rows carry RuleID for exactly that purpose).

SEE ALSO:
  - simulator.go: The projection loop
  - ledger/balance.go: Produces the starting balance
*/
package forecast

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/ledger"
)

// DefaultHorizonDays is used when the caller does not supply a horizon.
const DefaultHorizonDays = 90

// =============================================================================
// OUTPUT SHAPES
// =============================================================================

// Entry is one movement applied on a projected day. Amounts are unsigned;
// Type carries the direction, matching the ledger convention.
type Entry struct {
	Description  string
	Type         ledger.TransactionType
	Amount       decimal.Decimal
	IsProjection bool

	// Exactly one of these is set: the persisted transaction applied, or
	// the rule whose projected occurrence fired.
	TransactionID *uuid.UUID
	RuleID        *uuid.UUID
}

// DailyProjection is one row of the projected timeline.
type DailyProjection struct {
	Date    time.Time
	Balance decimal.Decimal // running balance at end of day
	Income  decimal.Decimal // inflows applied this day (unsigned)
	Expense decimal.Decimal // outflows applied this day (unsigned)
	Entries []Entry
}
