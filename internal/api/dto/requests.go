// Package dto defines the request and response shapes of the HTTP API.
package dto

import "encoding/json"

// ExternalTransactionRequest is a pre-parsed statement row supplied by the
// caller instead of raw CSV.
type ExternalTransactionRequest struct {
	ID     string `json:"id"`
	Date   string `json:"date" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	Payee  string `json:"payee"`
	Memo   string `json:"memo,omitempty"`
}

// MatchingConfigRequest overrides parts of the default matching
// configuration; nil fields keep their defaults.
type MatchingConfigRequest struct {
	DateToleranceDays    *int `json:"date_tolerance_days,omitempty"`
	AmountToleranceCents *int `json:"amount_tolerance_cents,omitempty"`
	AutoMatchThreshold   *int `json:"auto_match_threshold,omitempty"`
	SuggestionThreshold  *int `json:"suggestion_threshold,omitempty"`
}

// AnalyzeRequest is the body of POST /api/reconcile/analyze. Callers supply
// either raw statement CSV or pre-parsed transactions; the latter wins when
// both are present.
type AnalyzeRequest struct {
	BudgetID      string                       `json:"budget_id" binding:"required"`
	AccountID     string                       `json:"account_id" binding:"required"`
	Currency      string                       `json:"currency"`
	StatementCSV  string                       `json:"statement_csv,omitempty"`
	Transactions  []ExternalTransactionRequest `json:"transactions,omitempty"`
	TargetBalance string                       `json:"target_balance" binding:"required"`
	WindowStart   string                       `json:"window_start,omitempty"`
	WindowEnd     string                       `json:"window_end,omitempty"`
	Matching      *MatchingConfigRequest       `json:"matching,omitempty"`
}

// ExecuteRequest is the body of POST /api/reconcile/execute. The analysis
// is the one returned by the analyze endpoint, passed back verbatim.
type ExecuteRequest struct {
	BudgetID          string          `json:"budget_id" binding:"required"`
	AccountID         string          `json:"account_id" binding:"required"`
	Analysis          json.RawMessage `json:"analysis" binding:"required"`
	DryRun            *bool           `json:"dry_run,omitempty"`
	AutoCreate        bool            `json:"auto_create"`
	AutoUpdateCleared bool            `json:"auto_update_cleared"`
	AdjustDates       bool            `json:"adjust_dates"`
}
