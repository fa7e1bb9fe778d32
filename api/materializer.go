/*
materializer.go - Recurring rule materializer

PURPOSE:
  Converts due recurring-rule occurrences into pending ledger
  transactions. Runs either on demand (POST /api/rules/{id}/materialize)
  or from a background goroutine with a configurable check interval.

DESIGN:
  - Each rule is anchored on its last successful run when one exists,
    otherwise on its start date (the start date itself is the first
    occurrence).
  - Every materialized transaction carries the rule ID and the due
    date; a success run is recorded per occurrence so the next pass
    resumes from where this one stopped.
  - Occurrences are only materialized up to today, never into the
    future. Future occurrences belong to the forecast, not the ledger.

CONFIGURATION:
  - CheckInterval: How often the background pass runs (default: 1 hour)
  - Enabled: Whether the background pass is active (default: true)

USAGE:
  m := NewMaterializer(store)
  m.Start()
  // ... later
  m.Stop()

SEE ALSO:
  - handlers.go: MaterializeRule endpoint (manual trigger)
  - recurrence/expander.go: occurrence arithmetic
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
	"github.com/warp/budget-engine/store"

	"github.com/google/uuid"
)

// MaterializeDueOccurrences creates one pending expense transaction for
// every occurrence of rule that is due on or before today and has not
// been materialized yet. It returns the transactions it created.
func MaterializeDueOccurrences(ctx context.Context, st store.Store, rule recurrence.Rule, today time.Time) ([]ledger.Transaction, error) {
	runs, err := st.Runs(ctx)
	if err != nil {
		return nil, err
	}

	var lastRun *time.Time
	if at, ok := recurrence.LatestSuccessfulRun(runs)[rule.ID]; ok {
		lastRun = &at
	}

	var created []ledger.Transaction
	for {
		due, ok := recurrence.NextDueOnOrAfter(rule, lastRun, time.Time{})
		if !ok || ledger.Day(due).After(ledger.Day(today)) {
			break
		}

		dueDate := due
		tx := ledger.Transaction{
			ID:          uuid.New(),
			Type:        ledger.TypeExpense,
			Status:      ledger.StatusPending,
			Amount:      rule.Amount,
			Date:        due,
			DueDate:     &dueDate,
			Description: rule.Name,
			RuleID:      &rule.ID,
			CreatedAt:   time.Now().UTC(),
		}
		if err := st.SaveTransaction(ctx, tx); err != nil {
			return created, err
		}

		run := recurrence.Run{
			ID:      uuid.New(),
			RuleID:  rule.ID,
			RunAt:   due,
			Success: true,
		}
		if err := st.AppendRun(ctx, run); err != nil {
			return created, err
		}

		created = append(created, tx)
		next := due
		lastRun = &next
	}

	return created, nil
}

// Materializer periodically materializes due occurrences for every
// active rule.
type Materializer struct {
	Store         store.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMaterializer creates a new background materializer.
func NewMaterializer(st store.Store) *Materializer {
	return &Materializer{
		Store:         st,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the background pass.
func (m *Materializer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Enabled {
		log.Println("[Materializer] Disabled, not starting")
		return
	}

	m.ticker = time.NewTicker(m.CheckInterval)
	m.wg.Add(1)

	go m.run()

	log.Printf("[Materializer] Started with check interval: %v", m.CheckInterval)
}

// Stop stops the background pass.
func (m *Materializer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stop)
		m.wg.Wait()
		log.Println("[Materializer] Stopped")
	}
}

func (m *Materializer) run() {
	defer m.wg.Done()

	// Run immediately on start
	m.checkAndProcess()

	for {
		select {
		case <-m.ticker.C:
			m.checkAndProcess()
		case <-m.stop:
			return
		}
	}
}

func (m *Materializer) checkAndProcess() {
	ctx := context.Background()
	today := time.Now().UTC()

	rules, err := m.Store.Rules(ctx)
	if err != nil {
		log.Printf("[Materializer] Error listing rules: %v", err)
		return
	}

	createdCount := 0
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		created, err := MaterializeDueOccurrences(ctx, m.Store, rule, today)
		if err != nil {
			log.Printf("[Materializer] Error materializing %s: %v", rule.Name, err)
			continue
		}
		createdCount += len(created)
	}

	if createdCount > 0 {
		log.Printf("[Materializer] Completed: %d transactions created", createdCount)
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (m *Materializer) RunNow() {
	m.checkAndProcess()
}
