/*
Package ledger provides the core transaction and balance primitives.

PURPOSE:
  This package contains the types every other package builds on: accounts,
  ledger transactions, and the date helpers used for month arithmetic.
  Amounts are stored unsigned; sign is always derived from the transaction
  type. All monetary values use decimal.Decimal to avoid floating-point
  errors.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A money container with an initial balance
  - Transaction: A single ledger entry (income, expense, or transfer)
  - Day/month helpers: Truncation and month-boundary arithmetic

DESIGN PRINCIPLES:
  1. Unsigned storage: Amount is always >= 0; SignedAmount derives the sign
  2. Precision: decimal.Decimal everywhere, never float64 for money
  3. Derived flags: retroactive backfill rows are tagged so point-in-time
     folds can exclude them

SEE ALSO:
  - balance.go: Balance calculation from accounts + transactions
  - errors.go: Sentinel errors shared across the engine
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION TYPE AND STATUS
// =============================================================================

type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer" // between own accounts, nets to zero
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusCleared    TransactionStatus = "cleared"
	StatusReconciled TransactionStatus = "reconciled"
)

// Settled reports whether the status counts toward realized balance.
func (s TransactionStatus) Settled() bool {
	return s == StatusCleared || s == StatusReconciled
}

// =============================================================================
// ACCOUNT
// =============================================================================

type Account struct {
	ID             uuid.UUID
	Name           string
	InitialBalance decimal.Decimal
	CreatedAt      time.Time
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is a single ledger entry. Amount is always stored unsigned;
// the sign is derived from Type (income +, expense -, transfer excluded
// from aggregate balance).
type Transaction struct {
	ID          uuid.UUID
	Type        TransactionType
	Status      TransactionStatus
	Amount      decimal.Decimal // unsigned
	Date        time.Time
	DueDate     *time.Time
	Description string

	CategoryID    *uuid.UUID
	BucketID      *uuid.UUID
	InstallmentID *uuid.UUID

	// RuleID links a materialized row back to the recurring rule that
	// produced it. Callers can use it to reconcile projections against
	// already-materialized occurrences.
	RuleID *uuid.UUID

	// RetroactiveBackfill marks installment rows inserted to represent
	// history for a series created after some due dates had already
	// passed. Excluded from point-in-time balance folds.
	RetroactiveBackfill bool

	CreatedAt time.Time
}

// SignedAmount returns the amount with the sign implied by Type.
// Transfers return zero: they net out across the organization's accounts.
func (t Transaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case TypeIncome:
		return t.Amount
	case TypeExpense:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// EffectiveDate is the day the transaction lands on the cash-flow timeline:
// the due date when one is set (scheduled rows), else the booking date.
func (t Transaction) EffectiveDate() time.Time {
	if t.DueDate != nil {
		return Day(*t.DueDate)
	}
	return Day(t.Date)
}

// =============================================================================
// DAY / MONTH HELPERS
// =============================================================================

// Day truncates a time to midnight UTC. All engine date comparisons are
// done at day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

func StartOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
