/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Decimal amounts travel as JSON strings ("1234.56") via
  decimal.Decimal's own marshaling; dates travel as "2006-01-02".

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/allocation"
	"github.com/warp/budget-engine/forecast"
	"github.com/warp/budget-engine/ledger"
	"github.com/warp/budget-engine/recurrence"
)

const dayLayout = "2006-01-02"

// =============================================================================
// ACCOUNTS AND BALANCE
// =============================================================================

type CreateAccountRequest struct {
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type AccountDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CreatedAt      string          `json:"created_at"`
}

type BalanceDTO struct {
	Balance decimal.Decimal `json:"balance"`
	AsOf    string          `json:"as_of"`
}

func accountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:             a.ID.String(),
		Name:           a.Name,
		InitialBalance: a.InitialBalance,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type CreateTransactionRequest struct {
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	DueDate       string          `json:"due_date,omitempty"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	BucketID      string          `json:"bucket_id,omitempty"`
	InstallmentID string          `json:"installment_id,omitempty"`
	Backfill      bool            `json:"is_retroactive_backfill,omitempty"`
}

type TransactionDTO struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	DueDate       string          `json:"due_date,omitempty"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	BucketID      string          `json:"bucket_id,omitempty"`
	InstallmentID string          `json:"installment_id,omitempty"`
	RuleID        string          `json:"rule_id,omitempty"`
	Backfill      bool            `json:"is_retroactive_backfill,omitempty"`
}

func transactionDTO(tx ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		Amount:      tx.Amount,
		Date:        ledger.Day(tx.Date).Format(dayLayout),
		Description: tx.Description,
		Backfill:    tx.RetroactiveBackfill,
	}
	if tx.DueDate != nil {
		dto.DueDate = ledger.Day(*tx.DueDate).Format(dayLayout)
	}
	if tx.CategoryID != nil {
		dto.CategoryID = tx.CategoryID.String()
	}
	if tx.BucketID != nil {
		dto.BucketID = tx.BucketID.String()
	}
	if tx.InstallmentID != nil {
		dto.InstallmentID = tx.InstallmentID.String()
	}
	if tx.RuleID != nil {
		dto.RuleID = tx.RuleID.String()
	}
	return dto
}

// =============================================================================
// DISTRIBUTIONS AND BUCKETS
// =============================================================================

type BucketRequest struct {
	Name       string `json:"name"`
	PercentBps int    `json:"percent_bps"`
	IsFlexible bool   `json:"is_flexible"`
}

type CreateDistributionRequest struct {
	Name           string           `json:"name"`
	Mode           string           `json:"mode"`
	BaseIncomeMode string           `json:"base_income_mode"`
	PlannedIncome  *decimal.Decimal `json:"planned_income,omitempty"`
	IsDefault      bool             `json:"is_default"`
	Buckets        []BucketRequest  `json:"buckets"`
}

// EditBucketRequest sets one bucket's share. Strategy selects how the
// delta is absorbed in auto mode.
type EditBucketRequest struct {
	PercentBps int    `json:"percent_bps"`
	Strategy   string `json:"strategy,omitempty"`
}

type AddBucketRequest struct {
	Name       string `json:"name"`
	IsFlexible bool   `json:"is_flexible"`
}

type BucketDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PercentBps int    `json:"percent_bps"`
	IsFlexible bool   `json:"is_flexible"`
	SortOrder  int    `json:"sort_order"`
}

type DistributionDTO struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Mode           string           `json:"mode"`
	BaseIncomeMode string           `json:"base_income_mode"`
	PlannedIncome  *decimal.Decimal `json:"planned_income,omitempty"`
	IsDefault      bool             `json:"is_default"`
	Buckets        []BucketDTO      `json:"buckets"`
	CreatedAt      string           `json:"created_at"`
}

func distributionDTO(d allocation.Distribution) DistributionDTO {
	dto := DistributionDTO{
		ID:             d.ID.String(),
		Name:           d.Name,
		Mode:           string(d.Mode),
		BaseIncomeMode: string(d.BaseIncomeMode),
		PlannedIncome:  d.PlannedIncome,
		IsDefault:      d.IsDefault,
		CreatedAt:      d.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, b := range d.Buckets {
		dto.Buckets = append(dto.Buckets, BucketDTO{
			ID:         b.ID.String(),
			Name:       b.Name,
			PercentBps: b.PercentBps,
			IsFlexible: b.IsFlexible,
			SortOrder:  b.SortOrder,
		})
	}
	return dto
}

// =============================================================================
// RECURRING RULES
// =============================================================================

type CreateRuleRequest struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

type RuleDTO struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date,omitempty"`
	IsActive  bool            `json:"is_active"`
	NextDue   string          `json:"next_due,omitempty"`
}

func ruleDTO(r recurrence.Rule, lastRun *time.Time, reference time.Time) RuleDTO {
	dto := RuleDTO{
		ID:        r.ID.String(),
		Name:      r.Name,
		Amount:    r.Amount,
		Frequency: string(r.Frequency),
		StartDate: ledger.Day(r.StartDate).Format(dayLayout),
		IsActive:  r.IsActive,
	}
	if r.EndDate != nil {
		dto.EndDate = ledger.Day(*r.EndDate).Format(dayLayout)
	}
	if r.IsActive {
		if due, ok := recurrence.NextDueOnOrAfter(r, lastRun, reference); ok {
			dto.NextDue = due.Format(dayLayout)
		}
	}
	return dto
}

// =============================================================================
// FORECAST
// =============================================================================

type ProjectionEntryDTO struct {
	Description   string          `json:"description,omitempty"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	IsProjection  bool            `json:"is_projection"`
	TransactionID string          `json:"transaction_id,omitempty"`
	RuleID        string          `json:"rule_id,omitempty"`
}

type DailyProjectionDTO struct {
	Date    string               `json:"date"`
	Balance decimal.Decimal      `json:"balance"`
	Income  decimal.Decimal      `json:"income"`
	Expense decimal.Decimal      `json:"expense"`
	Entries []ProjectionEntryDTO `json:"transactions"`
}

type ForecastDTO struct {
	StartingBalance decimal.Decimal      `json:"starting_balance"`
	HorizonDays     int                  `json:"horizon_days"`
	Days            []DailyProjectionDTO `json:"days"`
}

func dailyProjectionDTO(day forecast.DailyProjection) DailyProjectionDTO {
	dto := DailyProjectionDTO{
		Date:    day.Date.Format(dayLayout),
		Balance: day.Balance,
		Income:  day.Income,
		Expense: day.Expense,
		Entries: []ProjectionEntryDTO{},
	}
	for _, e := range day.Entries {
		entry := ProjectionEntryDTO{
			Description:  e.Description,
			Type:         string(e.Type),
			Amount:       e.Amount,
			IsProjection: e.IsProjection,
		}
		if e.TransactionID != nil {
			entry.TransactionID = e.TransactionID.String()
		}
		if e.RuleID != nil {
			entry.RuleID = e.RuleID.String()
		}
		dto.Entries = append(dto.Entries, entry)
	}
	return dto
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ErrorDTO struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
