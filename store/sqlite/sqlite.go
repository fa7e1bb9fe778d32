/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Implements the persistence surface using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:        Money containers with initial balances
  transactions:    The ledger (income, expense, transfer rows)
  distributions:   Bucket sets with mode and base-income configuration
  buckets:         Per-distribution percentage shares
  recurring_rules: Outgoing recurring obligations
  recurring_runs:  Append-only materialization log

INVARIANT ENFORCEMENT:
  SaveDistribution validates bucket count and (manual mode) the 10000-bp
  sum BEFORE writing, and writes the distribution plus all its buckets in
  a single database transaction. A concurrent reader never observes a
  half-written distribution. Flagging a distribution default clears the
  previous default inside the same transaction.

  recurring_runs has no UPDATE or DELETE path: runs are history.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, a single writer at a time, better crash
  recovery.

USAGE:
  st, err := sqlite.New("./data/budget.db")  // ":memory:" for tests
  defer st.Close()

SEE ALSO:
  - store/store.go: Interface definitions and contracts
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		initial_balance TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		tx_type TEXT NOT NULL,
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		due_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		category_id TEXT,
		bucket_id TEXT,
		installment_id TEXT,
		rule_id TEXT,
		retroactive_backfill INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(tx_date);
	-- Monthly bucket spend aggregation (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_bucket_date
		ON transactions(bucket_id, tx_date) WHERE bucket_id IS NOT NULL;
	-- Reconciling materialized rows against rule projections
	CREATE INDEX IF NOT EXISTS idx_transactions_rule
		ON transactions(rule_id) WHERE rule_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS distributions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		base_income_mode TEXT NOT NULL,
		planned_income TEXT,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buckets (
		id TEXT PRIMARY KEY,
		distribution_id TEXT NOT NULL REFERENCES distributions(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		percent_bps INTEGER NOT NULL,
		is_flexible INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_buckets_distribution
		ON buckets(distribution_id, sort_order);

	CREATE TABLE IF NOT EXISTS recurring_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- Append-only materialization log. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS recurring_runs (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL REFERENCES recurring_rules(id),
		run_at TEXT NOT NULL,
		success INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_rule
		ON recurring_runs(rule_id, run_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, account ledger.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, initial_balance, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, initial_balance=excluded.initial_balance`,
		account.ID.String(), account.Name, account.InitialBalance.String(),
		account.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) Accounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, initial_balance, created_at
		FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var a ledger.Account
		var id, balance, createdAt string
		if err := rows.Scan(&id, &a.Name, &balance, &createdAt); err != nil {
			return nil, err
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if a.InitialBalance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) SaveTransaction(ctx context.Context, tx ledger.Transaction) error {
	if tx.Amount.IsNegative() {
		return ledger.ErrNegativeAmount
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, tx_type, status, amount, tx_date, due_date, description,
			 category_id, bucket_id, installment_id, rule_id, retroactive_backfill, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tx_type=excluded.tx_type, status=excluded.status, amount=excluded.amount,
			tx_date=excluded.tx_date, due_date=excluded.due_date,
			description=excluded.description, category_id=excluded.category_id,
			bucket_id=excluded.bucket_id, installment_id=excluded.installment_id,
			rule_id=excluded.rule_id, retroactive_backfill=excluded.retroactive_backfill`,
		tx.ID.String(), string(tx.Type), string(tx.Status), tx.Amount.String(),
		dayString(tx.Date), nullDay(tx.DueDate), tx.Description,
		nullUUID(tx.CategoryID), nullUUID(tx.BucketID), nullUUID(tx.InstallmentID),
		nullUUID(tx.RuleID), boolInt(tx.RetroactiveBackfill),
		tx.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) Transactions(ctx context.Context) ([]ledger.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, tx_type, status, amount, tx_date, due_date, description,
		       category_id, bucket_id, installment_id, rule_id, retroactive_backfill, created_at
		FROM transactions ORDER BY tx_date, created_at`)
}

func (s *Store) TransactionsInRange(ctx context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, tx_type, status, amount, tx_date, due_date, description,
		       category_id, bucket_id, installment_id, rule_id, retroactive_backfill, created_at
		FROM transactions WHERE tx_date >= ? AND tx_date <= ?
		ORDER BY tx_date, created_at`,
		dayString(from), dayString(to))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var id, txType, status, amount, txDate, createdAt string
		var dueDate, categoryID, bucketID, installmentID, ruleID sql.NullString
		var backfill int
		if err := rows.Scan(&id, &txType, &status, &amount, &txDate, &dueDate,
			&tx.Description, &categoryID, &bucketID, &installmentID, &ruleID,
			&backfill, &createdAt); err != nil {
			return nil, err
		}
		if tx.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		tx.Type = ledger.TransactionType(txType)
		tx.Status = ledger.TransactionStatus(status)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if tx.Date, err = parseDay(txDate); err != nil {
			return nil, err
		}
		if tx.DueDate, err = parseNullDay(dueDate); err != nil {
			return nil, err
		}
		if tx.CategoryID, err = parseNullUUID(categoryID); err != nil {
			return nil, err
		}
		if tx.BucketID, err = parseNullUUID(bucketID); err != nil {
			return nil, err
		}
		if tx.InstallmentID, err = parseNullUUID(installmentID); err != nil {
			return nil, err
		}
		if tx.RuleID, err = parseNullUUID(ruleID); err != nil {
			return nil, err
		}
		tx.RetroactiveBackfill = backfill != 0
		if tx.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

// SaveDistribution validates and writes the distribution plus all its
// buckets in one database transaction. Readers never see a partial set.
func (s *Store) SaveDistribution(ctx context.Context, d allocation.Distribution) error {
	if err := allocation.Validate(d); err != nil {
		return err
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	if d.IsDefault {
		if _, err := dbTx.ExecContext(ctx,
			`UPDATE distributions SET is_default = 0 WHERE id != ?`, d.ID.String()); err != nil {
			return err
		}
	}

	var planned any
	if d.PlannedIncome != nil {
		planned = d.PlannedIncome.String()
	}
	if _, err := dbTx.ExecContext(ctx, `
		INSERT INTO distributions (id, name, mode, base_income_mode, planned_income, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, mode=excluded.mode,
			base_income_mode=excluded.base_income_mode,
			planned_income=excluded.planned_income, is_default=excluded.is_default`,
		d.ID.String(), d.Name, string(d.Mode), string(d.BaseIncomeMode),
		planned, boolInt(d.IsDefault), d.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx,
		`DELETE FROM buckets WHERE distribution_id = ?`, d.ID.String()); err != nil {
		return err
	}
	for _, b := range d.Buckets {
		if _, err := dbTx.ExecContext(ctx, `
			INSERT INTO buckets (id, distribution_id, name, percent_bps, is_flexible, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID.String(), d.ID.String(), b.Name, b.PercentBps,
			boolInt(b.IsFlexible), b.SortOrder); err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

func (s *Store) Distribution(ctx context.Context, id uuid.UUID) (*allocation.Distribution, error) {
	dists, err := s.loadDistributions(ctx, `WHERE d.id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	if len(dists) == 0 {
		return nil, fmt.Errorf("%w: distribution %s", ledger.ErrNotFound, id)
	}
	return &dists[0], nil
}

func (s *Store) Distributions(ctx context.Context) ([]allocation.Distribution, error) {
	return s.loadDistributions(ctx, ``)
}

func (s *Store) loadDistributions(ctx context.Context, where string, args ...any) ([]allocation.Distribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.mode, d.base_income_mode, d.planned_income, d.is_default, d.created_at
		FROM distributions d `+where+` ORDER BY d.created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []allocation.Distribution
	for rows.Next() {
		var d allocation.Distribution
		var id, mode, incomeMode, createdAt string
		var planned sql.NullString
		var isDefault int
		if err := rows.Scan(&id, &d.Name, &mode, &incomeMode, &planned, &isDefault, &createdAt); err != nil {
			return nil, err
		}
		if d.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		d.Mode = allocation.Mode(mode)
		d.BaseIncomeMode = allocation.BaseIncomeMode(incomeMode)
		if planned.Valid {
			p, err := decimal.NewFromString(planned.String)
			if err != nil {
				return nil, err
			}
			d.PlannedIncome = &p
		}
		d.IsDefault = isDefault != 0
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Buckets, err = s.loadBuckets(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadBuckets(ctx context.Context, distributionID uuid.UUID) ([]allocation.Bucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, percent_bps, is_flexible, sort_order
		FROM buckets WHERE distribution_id = ? ORDER BY sort_order`,
		distributionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []allocation.Bucket
	for rows.Next() {
		var b allocation.Bucket
		var id string
		var flexible int
		if err := rows.Scan(&id, &b.Name, &b.PercentBps, &flexible, &b.SortOrder); err != nil {
			return nil, err
		}
		if b.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		b.IsFlexible = flexible != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDistribution(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM distributions WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: distribution %s", ledger.ErrNotFound, id)
	}
	return nil
}

// =============================================================================
// RULES AND RUN LOG
// =============================================================================

func (s *Store) SaveRule(ctx context.Context, rule recurrence.Rule) error {
	if rule.Amount.IsNegative() {
		return ledger.ErrNegativeAmount
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (id, name, amount, frequency, start_date, end_date, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, amount=excluded.amount, frequency=excluded.frequency,
			start_date=excluded.start_date, end_date=excluded.end_date,
			is_active=excluded.is_active`,
		rule.ID.String(), rule.Name, rule.Amount.String(), string(rule.Frequency),
		dayString(rule.StartDate), nullDay(rule.EndDate), boolInt(rule.IsActive),
		rule.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) Rules(ctx context.Context) ([]recurrence.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, amount, frequency, start_date, end_date, is_active, created_at
		FROM recurring_rules ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recurrence.Rule
	for rows.Next() {
		var r recurrence.Rule
		var id, amount, frequency, startDate, createdAt string
		var endDate sql.NullString
		var active int
		if err := rows.Scan(&id, &r.Name, &amount, &frequency, &startDate, &endDate, &active, &createdAt); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		r.Frequency = recurrence.Frequency(frequency)
		if r.StartDate, err = parseDay(startDate); err != nil {
			return nil, err
		}
		if r.EndDate, err = parseNullDay(endDate); err != nil {
			return nil, err
		}
		r.IsActive = active != 0
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendRun writes to the append-only run log.
func (s *Store) AppendRun(ctx context.Context, run recurrence.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_runs (id, rule_id, run_at, success)
		VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.RuleID.String(), dayString(run.RunAt), boolInt(run.Success))
	return err
}

func (s *Store) Runs(ctx context.Context) ([]recurrence.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, run_at, success FROM recurring_runs ORDER BY run_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recurrence.Run
	for rows.Next() {
		var r recurrence.Run
		var id, ruleID, runAt string
		var success int
		if err := rows.Scan(&id, &ruleID, &runAt, &success); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if r.RuleID, err = uuid.Parse(ruleID); err != nil {
			return nil, err
		}
		if r.RunAt, err = parseDay(runAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// RESET
// =============================================================================

// Reset clears all data. Development and demo scenarios only.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM recurring_runs;
		DELETE FROM recurring_rules;
		DELETE FROM buckets;
		DELETE FROM distributions;
		DELETE FROM transactions;
		DELETE FROM accounts;`)
	return err
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

const dayLayout = "2006-01-02"

func dayString(t time.Time) string {
	return ledger.Day(t).Format(dayLayout)
}

func parseDay(s string) (time.Time, error) {
	return time.Parse(dayLayout, s)
}

func nullDay(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dayString(*t)
}

func parseNullDay(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseDay(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
