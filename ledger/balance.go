/*
balance.go - Point-in-time aggregate balance

PURPOSE:
  Computes the organization's realized cash position from historical,
  settled transactions. This is the starting balance every cash-flow
  projection grows from.

KEY INSIGHT:
  The balance is a pure fold over accounts + transactions. There is no
  stored "balance" column that can drift out of sync; the ledger is the
  source of truth and the fold is recomputed on every call.

WHAT COUNTS:
  - Every account's initial balance
  - Every cleared or reconciled transaction dated strictly before asOf

WHAT IS EXCLUDED:
  - Pending transactions (not yet realized)
  - Transfers (net to zero across the organization's own accounts)
  - Retroactive installment backfill rows (history markers, not cash
    movements; counting them would double the installments already
    reflected in account initial balances)

SEE ALSO:
  - forecast/simulator.go: Uses CurrentBalance as the projection seed
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE CALCULATOR - Pure fold over settled history
// =============================================================================

// CurrentBalance returns the aggregate balance across all accounts as of
// the start of asOfDate: initial balances plus the signed sum of every
// settled transaction dated strictly before asOfDate.
func CurrentBalance(accounts []Account, transactions []Transaction, asOfDate time.Time) decimal.Decimal {
	asOf := Day(asOfDate)

	balance := decimal.Zero
	for _, a := range accounts {
		balance = balance.Add(a.InitialBalance)
	}

	for _, tx := range transactions {
		if !tx.Status.Settled() {
			continue
		}
		if tx.Type == TypeTransfer {
			continue
		}
		if tx.RetroactiveBackfill {
			continue
		}
		if !Day(tx.Date).Before(asOf) {
			continue
		}
		balance = balance.Add(tx.SignedAmount())
	}

	return balance
}
