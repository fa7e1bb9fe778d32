package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func account(initial int64) ledger.Account {
	return ledger.Account{
		ID:             uuid.New(),
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(initial),
	}
}

func tx(txType ledger.TransactionType, status ledger.TransactionStatus, amount int64, on time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:     uuid.New(),
		Type:   txType,
		Status: status,
		Amount: decimal.NewFromInt(amount),
		Date:   on,
	}
}

func assertBalance(t *testing.T, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("expected balance %d, got %v", want, got)
	}
}

// =============================================================================
// BALANCE FOLD TESTS
// =============================================================================

func TestCurrentBalance_SettledHistoryOnly(t *testing.T) {
	// GIVEN: Initial 1000, a cleared 200 expense yesterday, a cleared 50
	//        income dated today
	// WHEN: Computing the balance as of today
	// THEN: 800 - today's income has not realized yet (strict before-asOf)

	today := date(2025, time.June, 10)
	accounts := []ledger.Account{account(1000)}
	txs := []ledger.Transaction{
		tx(ledger.TypeExpense, ledger.StatusCleared, 200, today.AddDate(0, 0, -1)),
		tx(ledger.TypeIncome, ledger.StatusCleared, 50, today),
	}

	assertBalance(t, ledger.CurrentBalance(accounts, txs, today), 800)
}

func TestCurrentBalance_PendingExcluded(t *testing.T) {
	// GIVEN: Initial 1000 and a pending 300 expense last week
	// WHEN: Computing the balance
	// THEN: Pending rows are not realized cash

	today := date(2025, time.June, 10)
	accounts := []ledger.Account{account(1000)}
	txs := []ledger.Transaction{
		tx(ledger.TypeExpense, ledger.StatusPending, 300, today.AddDate(0, 0, -7)),
	}

	assertBalance(t, ledger.CurrentBalance(accounts, txs, today), 1000)
}

func TestCurrentBalance_TransfersNetToZero(t *testing.T) {
	// GIVEN: Two accounts and a cleared transfer between them
	// WHEN: Computing the aggregate balance
	// THEN: The transfer does not move the total

	today := date(2025, time.June, 10)
	accounts := []ledger.Account{account(1000), account(500)}
	txs := []ledger.Transaction{
		tx(ledger.TypeTransfer, ledger.StatusCleared, 400, today.AddDate(0, 0, -2)),
	}

	assertBalance(t, ledger.CurrentBalance(accounts, txs, today), 1500)
}

func TestCurrentBalance_BackfillRowsExcluded(t *testing.T) {
	// GIVEN: An installment backfill row representing pre-account history
	// WHEN: Computing the balance
	// THEN: Backfill rows never move cash; the initial balance already
	//       reflects them

	today := date(2025, time.June, 10)
	accounts := []ledger.Account{account(1000)}
	backfill := tx(ledger.TypeExpense, ledger.StatusCleared, 250, today.AddDate(0, -2, 0))
	backfill.RetroactiveBackfill = true

	assertBalance(t, ledger.CurrentBalance(accounts, []ledger.Transaction{backfill}, today), 1000)
}

func TestCurrentBalance_ReconciledCounts(t *testing.T) {
	// GIVEN: A reconciled income last month
	// WHEN: Computing the balance
	// THEN: Reconciled settles the same way cleared does

	today := date(2025, time.June, 10)
	accounts := []ledger.Account{account(0)}
	txs := []ledger.Transaction{
		tx(ledger.TypeIncome, ledger.StatusReconciled, 5000, today.AddDate(0, -1, 0)),
	}

	assertBalance(t, ledger.CurrentBalance(accounts, txs, today), 5000)
}

// =============================================================================
// TRANSACTION HELPERS
// =============================================================================

func TestSignedAmount_DerivedFromType(t *testing.T) {
	// GIVEN: Income, expense, and transfer rows of 100
	// WHEN: Deriving signed amounts
	// THEN: +100, -100, 0

	on := date(2025, time.June, 10)
	if got := tx(ledger.TypeIncome, ledger.StatusCleared, 100, on).SignedAmount(); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("income: expected +100, got %v", got)
	}
	if got := tx(ledger.TypeExpense, ledger.StatusCleared, 100, on).SignedAmount(); !got.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("expense: expected -100, got %v", got)
	}
	if got := tx(ledger.TypeTransfer, ledger.StatusCleared, 100, on).SignedAmount(); !got.IsZero() {
		t.Errorf("transfer: expected 0, got %v", got)
	}
}

func TestEffectiveDate_DueDateWins(t *testing.T) {
	// GIVEN: A row booked June 1 but due June 15
	// WHEN: Resolving the cash-flow date
	// THEN: The due date wins; without one, the booking date is used

	row := tx(ledger.TypeExpense, ledger.StatusPending, 60, date(2025, time.June, 1))
	due := date(2025, time.June, 15)
	row.DueDate = &due

	if got := row.EffectiveDate(); !got.Equal(due) {
		t.Errorf("expected due date, got %v", got)
	}

	row.DueDate = nil
	if got := row.EffectiveDate(); !got.Equal(date(2025, time.June, 1)) {
		t.Errorf("expected booking date, got %v", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	// GIVEN: February in leap and non-leap years
	// WHEN: Counting days
	// THEN: 29 and 28

	if got := ledger.DaysInMonth(2024, time.February); got != 29 {
		t.Errorf("expected 29, got %d", got)
	}
	if got := ledger.DaysInMonth(2025, time.February); got != 28 {
		t.Errorf("expected 28, got %d", got)
	}
}
