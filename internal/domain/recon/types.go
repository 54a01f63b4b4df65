package recon

import (
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// InsightKind names a detected pattern explaining part of a discrepancy.
type InsightKind string

const (
	InsightRepeatAmount InsightKind = "repeat_amount"
	InsightNearMatch    InsightKind = "near_match"
	InsightAnomaly      InsightKind = "anomaly"
)

// Severity grades how urgently an insight needs attention.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Insight is a detected pattern in the reconciliation result. IDs are
// derived deterministically from insight content so re-analyzing identical
// input regenerates identical ids.
type Insight struct {
	ID          string            `json:"id"`
	Kind        InsightKind       `json:"kind"`
	Severity    Severity          `json:"severity"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Evidence    map[string]string `json:"evidence,omitempty"`
}

// BalanceInfo summarizes the ledger balances against the statement target.
// All monetary fields are milliunits with precomputed display strings.
// Discrepancy is target minus current cleared balance; positive means the
// statement reports more than the ledger has cleared.
type BalanceInfo struct {
	Currency string `json:"currency"`

	ClearedMilli     int64 `json:"cleared_milli"`
	UnclearedMilli   int64 `json:"uncleared_milli"`
	TotalMilli       int64 `json:"total_milli"`
	TargetMilli      int64 `json:"target_milli"`
	DiscrepancyMilli int64 `json:"discrepancy_milli"`

	ClearedDisplay     string `json:"cleared_display"`
	UnclearedDisplay   string `json:"uncleared_display"`
	TotalDisplay       string `json:"total_display"`
	TargetDisplay      string `json:"target_display"`
	DiscrepancyDisplay string `json:"discrepancy_display"`

	OnTrack bool `json:"on_track"`
}

// Summary holds the aggregate counts of a reconciliation pass.
type Summary struct {
	TotalExternal     int `json:"total_external"`
	TotalInternal     int `json:"total_internal"`
	AutoMatched       int `json:"auto_matched"`
	Suggested         int `json:"suggested"`
	UnmatchedExternal int `json:"unmatched_external"`
	UnmatchedInternal int `json:"unmatched_internal"`
}

// Analysis is the aggregate result of one reconciliation pass. Produced
// fresh per invocation and never mutated after return.
type Analysis struct {
	BudgetID  string `json:"budget_id"`
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`

	Summary Summary `json:"summary"`

	// AutoMatches are high-tier matches with a single chosen transaction.
	AutoMatches []matcher.Match `json:"auto_matches"`
	// SuggestedMatches are medium/low-tier matches carrying ranked
	// candidates for review.
	SuggestedMatches []matcher.Match `json:"suggested_matches"`
	// UnmatchedExternal are statement transactions with no candidate at all.
	UnmatchedExternal []matcher.Match `json:"unmatched_external"`
	// UnmatchedInternal are ledger transactions never consumed by a
	// high-tier match.
	UnmatchedInternal []txn.Internal `json:"unmatched_internal"`

	Balance   BalanceInfo `json:"balance"`
	Insights  []Insight   `json:"insights"`
	NextSteps []string    `json:"next_steps,omitempty"`
}
