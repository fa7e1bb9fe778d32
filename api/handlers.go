/*
handlers.go - HTTP API handlers for the budget engine

PURPOSE:
  Exposes the budget allocation and forecasting engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic. The engine itself stays pure: every handler loads the
  facts it needs from the store, calls the engine, and persists or
  renders the result.

ENDPOINTS:
  Accounts / ledger:
    GET    /api/accounts                 List accounts
    POST   /api/accounts                 Create account
    GET    /api/balance                  Current aggregate balance
    GET    /api/transactions             Transaction history (optional range)
    POST   /api/transactions             Record a transaction

  Distributions:
    GET    /api/distributions            List distributions
    POST   /api/distributions            Create a distribution
    POST   /api/distributions/default    Create the 50/30/20 default
    GET    /api/distributions/active     Resolve the active distribution
    POST   /api/distributions/{id}/normalize
    POST   /api/distributions/{id}/buckets
    PUT    /api/distributions/{id}/buckets/{bucketID}
    DELETE /api/distributions/{id}/buckets/{bucketID}

  Recurring rules:
    GET    /api/rules                    List rules with next due date
    POST   /api/rules                    Create rule
    POST   /api/rules/{id}/materialize   Materialize due occurrences now

  Views:
    GET    /api/forecast?horizon=90      Day-indexed balance projection
    GET    /api/snapshot?month=2006-01   Monthly bucket metrics

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Not configured (no distribution / no accounts)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - materializer.go: Background rule materialization
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/forecast"
	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/metrics"
	"github.com/warp/budget-engine/recurrence"
	"github.com/warp/budget-engine/store"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds the API dependencies. Now is injectable for tests.
type Handler struct {
	Store store.Store
	Now   func() time.Time
}

func NewHandler(st store.Store) *Handler {
	return &Handler{
		Store: st,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) today() time.Time {
	return ledger.Day(h.Now())
}

// =============================================================================
// ACCOUNTS AND BALANCE
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	account := ledger.Account{
		ID:             uuid.New(),
		Name:           req.Name,
		InitialBalance: req.InitialBalance,
		CreatedAt:      h.Now(),
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountDTO(account))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if len(accounts) == 0 {
		writeError(w, fmt.Errorf("%w: no accounts", ledger.ErrNotConfigured))
		return
	}
	txs, err := h.Store.Transactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	asOf := h.today()
	writeJSON(w, http.StatusOK, BalanceDTO{
		Balance: ledger.CurrentBalance(accounts, txs, asOf),
		AsOf:    asOf.Format(dayLayout),
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txs []ledger.Transaction
		err error
	)
	fromStr, toStr := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromStr != "" && toStr != "" {
		from, ferr := time.Parse(dayLayout, fromStr)
		to, terr := time.Parse(dayLayout, toStr)
		if ferr != nil || terr != nil {
			writeBadRequest(w, "from/to must be YYYY-MM-DD")
			return
		}
		txs, err = h.Store.TransactionsInRange(r.Context(), from, to)
	} else {
		txs, err = h.Store.Transactions(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	tx, err := h.transactionFromRequest(req)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := h.Store.SaveTransaction(r.Context(), *tx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionDTO(*tx))
}

func (h *Handler) transactionFromRequest(req CreateTransactionRequest) (*ledger.Transaction, error) {
	txType := ledger.TransactionType(req.Type)
	switch txType {
	case ledger.TypeIncome, ledger.TypeExpense, ledger.TypeTransfer:
	default:
		return nil, fmt.Errorf("unknown transaction type %q", req.Type)
	}

	status := ledger.TransactionStatus(req.Status)
	if status == "" {
		status = ledger.StatusPending
	}
	switch status {
	case ledger.StatusPending, ledger.StatusCleared, ledger.StatusReconciled:
	default:
		return nil, fmt.Errorf("unknown status %q", req.Status)
	}

	if req.Amount.IsNegative() {
		return nil, errors.New("amount must be nonnegative")
	}

	date, err := time.Parse(dayLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %v", err)
	}

	tx := ledger.Transaction{
		ID:                  uuid.New(),
		Type:                txType,
		Status:              status,
		Amount:              req.Amount,
		Date:                date,
		Description:         req.Description,
		RetroactiveBackfill: req.Backfill,
		CreatedAt:           h.Now(),
	}
	if req.DueDate != "" {
		due, err := time.Parse(dayLayout, req.DueDate)
		if err != nil {
			return nil, fmt.Errorf("due_date must be YYYY-MM-DD: %v", err)
		}
		tx.DueDate = &due
	}
	if tx.CategoryID, err = parseOptionalUUID(req.CategoryID, "category_id"); err != nil {
		return nil, err
	}
	if tx.BucketID, err = parseOptionalUUID(req.BucketID, "bucket_id"); err != nil {
		return nil, err
	}
	if tx.InstallmentID, err = parseOptionalUUID(req.InstallmentID, "installment_id"); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func (h *Handler) ListDistributions(w http.ResponseWriter, r *http.Request) {
	dists, err := h.Store.Distributions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]DistributionDTO, 0, len(dists))
	for _, d := range dists {
		out = append(out, distributionDTO(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetActiveDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.activeDistribution(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionDTO(*dist))
}

func (h *Handler) activeDistribution(r *http.Request) (*allocation.Distribution, error) {
	dists, err := h.Store.Distributions(r.Context())
	if err != nil {
		return nil, err
	}
	return metrics.ResolveActiveDistribution(dists)
}

func (h *Handler) CreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req CreateDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	mode := allocation.Mode(req.Mode)
	if mode == "" {
		mode = allocation.ModeAuto
	}
	incomeMode := allocation.BaseIncomeMode(req.BaseIncomeMode)
	if incomeMode == "" {
		incomeMode = allocation.IncomeCurrentMonth
	}

	d := allocation.Distribution{
		ID:             uuid.New(),
		Name:           req.Name,
		Mode:           mode,
		BaseIncomeMode: incomeMode,
		PlannedIncome:  req.PlannedIncome,
		IsDefault:      req.IsDefault,
		CreatedAt:      h.Now(),
	}
	for i, b := range req.Buckets {
		d.Buckets = append(d.Buckets, allocation.Bucket{
			ID:         uuid.New(),
			Name:       b.Name,
			PercentBps: b.PercentBps,
			IsFlexible: b.IsFlexible,
			SortOrder:  i,
		})
	}
	if mode == allocation.ModeAuto && !allocation.ValidateSum(d.Buckets) {
		d.Buckets = allocation.Normalize(d.Buckets)
	}

	if err := h.Store.SaveDistribution(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, distributionDTO(d))
}

// CreateDefaultDistribution creates the classic 50/30/20 split. Offered
// to callers after a "not configured" response.
func (h *Handler) CreateDefaultDistribution(w http.ResponseWriter, r *http.Request) {
	d := h.defaultDistribution()
	if err := h.Store.SaveDistribution(r.Context(), d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, distributionDTO(d))
}

func (h *Handler) NormalizeDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDistribution(r)
	if err != nil {
		writeError(w, err)
		return
	}

	d.Buckets = allocation.Normalize(d.Buckets)
	if err := h.Store.SaveDistribution(r.Context(), *d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionDTO(*d))
}

func (h *Handler) EditBucket(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDistribution(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bucketID, err := uuid.Parse(chi.URLParam(r, "bucketID"))
	if err != nil {
		writeBadRequest(w, "invalid bucket id")
		return
	}

	var req EditBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if d.Mode == allocation.ModeManual {
		// Manual mode: clamp and set; the save-time sum check is the
		// safety net.
		for i := range d.Buckets {
			if d.Buckets[i].ID == bucketID {
				d.Buckets[i].PercentBps = allocation.ClampShare(req.PercentBps)
			}
		}
	} else {
		strategy := allocation.Strategy(req.Strategy)
		if strategy == "" {
			strategy = allocation.StrategyProportional
		}
		d.Buckets, err = allocation.AutoBalanceOnEdit(d.Buckets, bucketID, req.PercentBps, strategy)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if err := h.Store.SaveDistribution(r.Context(), *d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionDTO(*d))
}

func (h *Handler) AddBucket(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDistribution(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req AddBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d.Buckets, err = allocation.AddBucket(d.Buckets, req.Name, req.IsFlexible)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.SaveDistribution(r.Context(), *d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionDTO(*d))
}

func (h *Handler) RemoveBucket(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDistribution(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bucketID, err := uuid.Parse(chi.URLParam(r, "bucketID"))
	if err != nil {
		writeBadRequest(w, "invalid bucket id")
		return
	}

	d.Buckets, err = allocation.RemoveBucket(d.Buckets, bucketID, d.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.SaveDistribution(r.Context(), *d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionDTO(*d))
}

func (h *Handler) loadDistribution(r *http.Request) (*allocation.Distribution, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid distribution id", ledger.ErrValidation)
	}
	return h.Store.Distribution(r.Context(), id)
}

// =============================================================================
// RECURRING RULES
// =============================================================================

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.Rules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := h.Store.Runs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	lastRuns := recurrence.LatestSuccessfulRun(runs)
	today := h.today()
	out := make([]RuleDTO, 0, len(rules))
	for _, rule := range rules {
		var lastRun *time.Time
		if at, ok := lastRuns[rule.ID]; ok {
			at := at
			lastRun = &at
		}
		out = append(out, ruleDTO(rule, lastRun, today))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Amount.IsNegative() {
		writeBadRequest(w, "amount must be nonnegative")
		return
	}
	start, err := time.Parse(dayLayout, req.StartDate)
	if err != nil {
		writeBadRequest(w, "start_date must be YYYY-MM-DD")
		return
	}

	rule := recurrence.Rule{
		ID:        uuid.New(),
		Name:      req.Name,
		Amount:    req.Amount,
		Frequency: recurrence.Frequency(req.Frequency).Normalize(),
		StartDate: start,
		IsActive:  true,
		CreatedAt: h.Now(),
	}
	if req.EndDate != "" {
		end, err := time.Parse(dayLayout, req.EndDate)
		if err != nil {
			writeBadRequest(w, "end_date must be YYYY-MM-DD")
			return
		}
		rule.EndDate = &end
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ruleDTO(rule, nil, h.today()))
}

// MaterializeRule materializes every due occurrence of one rule through
// today. Same code path the background materializer takes.
func (h *Handler) MaterializeRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid rule id")
		return
	}
	rules, err := h.Store.Rules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	for _, rule := range rules {
		if rule.ID != id {
			continue
		}
		if !rule.IsActive {
			writeError(w, fmt.Errorf("%w: rule %q is inactive", ledger.ErrValidation, rule.Name))
			return
		}
		created, err := MaterializeDueOccurrences(r.Context(), h.Store, rule, h.today())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]TransactionDTO, 0, len(created))
		for _, tx := range created {
			out = append(out, transactionDTO(tx))
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	writeError(w, fmt.Errorf("%w: rule %s", ledger.ErrNotFound, id))
}

// =============================================================================
// FORECAST
// =============================================================================

func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	horizon := forecast.DefaultHorizonDays
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "horizon must be a nonnegative integer")
			return
		}
		if n > 0 {
			horizon = n
		}
	}

	accounts, err := h.Store.Accounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if len(accounts) == 0 {
		writeError(w, fmt.Errorf("%w: no accounts", ledger.ErrNotConfigured))
		return
	}
	txs, err := h.Store.Transactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	rules, err := h.Store.Rules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := h.Store.Runs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	today := h.today()
	starting := ledger.CurrentBalance(accounts, txs, today)

	// Only rows landing inside the horizon matter to the simulator.
	// Settled rows booked before today are already folded into the
	// starting balance; feeding them forward would count them twice.
	var scheduled []ledger.Transaction
	end := today.AddDate(0, 0, horizon)
	for _, tx := range txs {
		if tx.Status.Settled() && ledger.Day(tx.Date).Before(today) {
			continue
		}
		d := tx.EffectiveDate()
		if d.Before(today) || d.After(end) {
			continue
		}
		scheduled = append(scheduled, tx)
	}

	days := forecast.Project(forecast.Input{
		StartingBalance: starting,
		Scheduled:       scheduled,
		Rules:           rules,
		Runs:            runs,
		Today:           today,
		HorizonDays:     horizon,
	})

	dto := ForecastDTO{
		StartingBalance: starting,
		HorizonDays:     horizon,
		Days:            make([]DailyProjectionDTO, 0, len(days)),
	}
	for _, day := range days {
		dto.Days = append(dto.Days, dailyProjectionDTO(day))
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// MONTHLY SNAPSHOT
// =============================================================================

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	month := h.today()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			writeBadRequest(w, "month must be YYYY-MM")
			return
		}
		month = parsed
	}
	mode := allocation.BaseIncomeMode(r.URL.Query().Get("mode"))

	dist, err := h.activeDistribution(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// Six trailing months covers every averaging mode.
	from := ledger.StartOfMonth(month.Year(), month.Month()).AddDate(0, -6, 0)
	to := ledger.EndOfMonth(month.Year(), month.Month())
	txs, err := h.Store.TransactionsInRange(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	snap, err := metrics.ComputeSnapshot(dist, mode, month, metrics.Input{
		Transactions: txs,
		Today:        h.today(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// =============================================================================
// RESET
// =============================================================================

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: msg, Code: "bad_request"})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotConfigured(err):
		writeJSON(w, http.StatusConflict, ErrorDTO{Error: err.Error(), Code: "not_configured"})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorDTO{Error: err.Error(), Code: "not_found"})
	case ledger.IsClientError(err) || errors.Is(err, allocation.ErrBucketNotFound):
		writeJSON(w, http.StatusBadRequest, ErrorDTO{Error: err.Error(), Code: "validation"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: err.Error()})
	}
}

func parseOptionalUUID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a UUID: %v", field, err)
	}
	return &id, nil
}
