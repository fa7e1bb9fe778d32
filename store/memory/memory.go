// Package memory provides an in-memory Store implementation (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	accounts      map[uuid.UUID]ledger.Account
	transactions  map[uuid.UUID]ledger.Transaction
	distributions map[uuid.UUID]allocation.Distribution
	rules         map[uuid.UUID]recurrence.Rule
	runs          []recurrence.Run
}

func New() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.accounts = make(map[uuid.UUID]ledger.Account)
	m.transactions = make(map[uuid.UUID]ledger.Transaction)
	m.distributions = make(map[uuid.UUID]allocation.Distribution)
	m.rules = make(map[uuid.UUID]recurrence.Rule)
	m.runs = nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) SaveAccount(_ context.Context, account ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) Accounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) SaveTransaction(_ context.Context, tx ledger.Transaction) error {
	if tx.Amount.IsNegative() {
		return ledger.ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) Transactions(_ context.Context) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTransactionsLocked(), nil
}

func (m *Memory) TransactionsInRange(_ context.Context, from, to time.Time) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Transaction
	for _, tx := range m.sortedTransactionsLocked() {
		d := ledger.Day(tx.Date)
		if d.Before(ledger.Day(from)) || d.After(ledger.Day(to)) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *Memory) sortedTransactionsLocked() []ledger.Transaction {
	out := make([]ledger.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func (m *Memory) SaveDistribution(_ context.Context, d allocation.Distribution) error {
	// Invariant check first: validation failures block persistence.
	if err := allocation.Validate(d); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if d.IsDefault {
		for id, other := range m.distributions {
			if id == d.ID || !other.IsDefault {
				continue
			}
			other.IsDefault = false
			m.distributions[id] = other
		}
	}

	// Deep-copy buckets so callers can't mutate stored state.
	stored := d
	stored.Buckets = make([]allocation.Bucket, len(d.Buckets))
	copy(stored.Buckets, d.Buckets)
	m.distributions[d.ID] = stored
	return nil
}

func (m *Memory) Distribution(_ context.Context, id uuid.UUID) (*allocation.Distribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.distributions[id]
	if !ok {
		return nil, fmt.Errorf("%w: distribution %s", ledger.ErrNotFound, id)
	}
	out := d
	out.Buckets = make([]allocation.Bucket, len(d.Buckets))
	copy(out.Buckets, d.Buckets)
	return &out, nil
}

func (m *Memory) Distributions(_ context.Context) ([]allocation.Distribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]allocation.Distribution, 0, len(m.distributions))
	for _, d := range m.distributions {
		cp := d
		cp.Buckets = make([]allocation.Bucket, len(d.Buckets))
		copy(cp.Buckets, d.Buckets)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteDistribution(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.distributions[id]; !ok {
		return fmt.Errorf("%w: distribution %s", ledger.ErrNotFound, id)
	}
	delete(m.distributions, id)
	return nil
}

// =============================================================================
// RULES AND RUN LOG
// =============================================================================

func (m *Memory) SaveRule(_ context.Context, rule recurrence.Rule) error {
	if rule.Amount.IsNegative() {
		return ledger.ErrNegativeAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *Memory) Rules(_ context.Context) ([]recurrence.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]recurrence.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AppendRun adds to the run log. Append-only: no update, no delete.
func (m *Memory) AppendRun(_ context.Context, run recurrence.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) Runs(_ context.Context) ([]recurrence.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]recurrence.Run, len(m.runs))
	copy(out, m.runs)
	return out, nil
}

// =============================================================================
// RESET
// =============================================================================

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}
