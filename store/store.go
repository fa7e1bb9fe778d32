/*
Package store defines the persistence interfaces for the budget engine.

PURPOSE:
  The engine packages are pure; everything they consume is read from one
  of these interfaces and everything they produce is written back through
  them. Different implementations can use SQLite, PostgreSQL, or
  in-memory storage.

CRITICAL CONTRACT:
  SaveDistribution is a single atomic write and MUST validate the bucket
  invariants (count within [2,8], manual-mode sum of exactly 10000 bps)
  before persisting. A concurrent reader must never observe a
  distribution whose percentages do not sum to 10000. Validation
  failures block persistence; they are never coerced.

  The recurring run log is append-only: runs record materialization
  history and are never updated or deleted.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and development
  - store/sqlite: SQLite, the production store

SEE ALSO:
  - api/handlers.go: The caller that wires engine and store together
*/
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
)

// Store is the full persistence surface for one organization's ledger.
type Store interface {
	// Accounts
	SaveAccount(ctx context.Context, account ledger.Account) error
	Accounts(ctx context.Context) ([]ledger.Account, error)

	// Transactions, ordered by date.
	SaveTransaction(ctx context.Context, tx ledger.Transaction) error
	Transactions(ctx context.Context) ([]ledger.Transaction, error)
	TransactionsInRange(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error)

	// Distributions. SaveDistribution validates and writes atomically;
	// flagging one default clears the previous default.
	SaveDistribution(ctx context.Context, d allocation.Distribution) error
	Distribution(ctx context.Context, id uuid.UUID) (*allocation.Distribution, error)
	Distributions(ctx context.Context) ([]allocation.Distribution, error)
	DeleteDistribution(ctx context.Context, id uuid.UUID) error

	// Recurring rules and their append-only run log.
	SaveRule(ctx context.Context, rule recurrence.Rule) error
	Rules(ctx context.Context) ([]recurrence.Rule, error)
	AppendRun(ctx context.Context, run recurrence.Run) error
	Runs(ctx context.Context) ([]recurrence.Run, error)

	// Reset clears all data. Development and demo scenarios only.
	Reset(ctx context.Context) error
}
