/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates accounts, a bucket
	distribution, transactions, and recurring rules that demonstrate
	specific features.

AVAILABLE SCENARIOS:

	fresh-start:        Empty ledger, one account, 50/30/20 distribution
	mid-month:          Two weeks of history, partial bucket spend
	heavy-obligations:  Many recurring rules stressing the forecast

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create accounts
 3. Create the distribution
 4. Add transactions (income, spend, scheduled bills)
 5. Add recurring rules

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mid-month"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Reset handler
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "One account, the 50/30/20 distribution, no history",
	},
	{
		ID:          "mid-month",
		Name:        "Mid-Month",
		Description: "Salary landed, two weeks of bucket spend, one pending bill",
	},
	{
		ID:          "heavy-obligations",
		Name:        "Heavy Obligations",
		Description: "Many recurring rules stressing the cash-flow forecast",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "fresh-start":
		err = h.loadFreshStartScenario(ctx)
	case "mid-month":
		err = h.loadMidMonthScenario(ctx)
	case "heavy-obligations":
		err = h.loadHeavyObligationsScenario(ctx)
	default:
		writeBadRequest(w, "unknown scenario: "+req.ScenarioID)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadFreshStartScenario(ctx context.Context) error {
	account := ledger.Account{
		ID:             uuid.New(),
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(2500),
		CreatedAt:      h.Now(),
	}
	if err := h.Store.SaveAccount(ctx, account); err != nil {
		return err
	}
	return h.Store.SaveDistribution(ctx, h.defaultDistribution())
}

func (h *Handler) loadMidMonthScenario(ctx context.Context) error {
	account := ledger.Account{
		ID:             uuid.New(),
		Name:           "Checking",
		InitialBalance: decimal.NewFromInt(1200),
		CreatedAt:      h.Now(),
	}
	if err := h.Store.SaveAccount(ctx, account); err != nil {
		return err
	}

	dist := h.defaultDistribution()
	if err := h.Store.SaveDistribution(ctx, dist); err != nil {
		return err
	}
	needs := dist.Buckets[0].ID
	wants := dist.Buckets[1].ID

	today := h.today()
	monthStart := ledger.StartOfMonth(today.Year(), today.Month())

	txs := []ledger.Transaction{
		h.scenarioTx(ledger.TypeIncome, ledger.StatusCleared, 5000, monthStart, "Salary", nil),
		h.scenarioTx(ledger.TypeExpense, ledger.StatusCleared, 1400, monthStart.AddDate(0, 0, 1), "Rent", &needs),
		h.scenarioTx(ledger.TypeExpense, ledger.StatusCleared, 220, monthStart.AddDate(0, 0, 3), "Groceries", &needs),
		h.scenarioTx(ledger.TypeExpense, ledger.StatusCleared, 85, monthStart.AddDate(0, 0, 5), "Dinner out", &wants),
		h.scenarioTx(ledger.TypeExpense, ledger.StatusCleared, 160, monthStart.AddDate(0, 0, 9), "Groceries", &needs),
		h.scenarioTx(ledger.TypeExpense, ledger.StatusPending, 60, today.AddDate(0, 0, 4), "Internet bill", &needs),
	}
	for _, tx := range txs {
		if err := h.Store.SaveTransaction(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadHeavyObligationsScenario(ctx context.Context) error {
	if err := h.loadMidMonthScenario(ctx); err != nil {
		return err
	}

	today := h.today()
	rules := []recurrence.Rule{
		h.scenarioRule("Rent", 1400, recurrence.Monthly, ledger.StartOfMonth(today.Year(), today.Month()).AddDate(0, 1, 0)),
		h.scenarioRule("Car payment", 310, recurrence.Monthly, today.AddDate(0, 0, 2)),
		h.scenarioRule("Streaming", 15, recurrence.Monthly, today.AddDate(0, 0, 6)),
		h.scenarioRule("Gym", 45, recurrence.Monthly, today.AddDate(0, 0, 10)),
		h.scenarioRule("Groceries", 120, recurrence.Weekly, today.AddDate(0, 0, 1)),
		h.scenarioRule("Insurance", 900, recurrence.Yearly, today.AddDate(0, 0, 30)),
	}
	for _, rule := range rules {
		if err := h.Store.SaveRule(ctx, rule); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO HELPERS
// =============================================================================

func (h *Handler) defaultDistribution() allocation.Distribution {
	return allocation.Distribution{
		ID:             uuid.New(),
		Name:           "50/30/20",
		Mode:           allocation.ModeAuto,
		BaseIncomeMode: allocation.IncomeCurrentMonth,
		IsDefault:      true,
		CreatedAt:      h.Now(),
		Buckets: []allocation.Bucket{
			{ID: uuid.New(), Name: "Needs", PercentBps: 5000, IsFlexible: false, SortOrder: 0},
			{ID: uuid.New(), Name: "Wants", PercentBps: 3000, IsFlexible: true, SortOrder: 1},
			{ID: uuid.New(), Name: "Goals", PercentBps: 2000, IsFlexible: true, SortOrder: 2},
		},
	}
}

func (h *Handler) scenarioTx(txType ledger.TransactionType, status ledger.TransactionStatus, amount int64, date time.Time, desc string, bucketID *uuid.UUID) ledger.Transaction {
	return ledger.Transaction{
		ID:          uuid.New(),
		Type:        txType,
		Status:      status,
		Amount:      decimal.NewFromInt(amount),
		Date:        date,
		Description: desc,
		BucketID:    bucketID,
		CreatedAt:   h.Now(),
	}
}

func (h *Handler) scenarioRule(name string, amount int64, freq recurrence.Frequency, start time.Time) recurrence.Rule {
	return recurrence.Rule{
		ID:        uuid.New(),
		Name:      name,
		Amount:    decimal.NewFromInt(amount),
		Frequency: freq,
		StartDate: start,
		IsActive:  true,
		CreatedAt: h.Now(),
	}
}
