// Package recon orchestrates a full reconciliation pass: it runs the
// matcher over the statement window, computes the balance discrepancy, and
// derives insights explaining why the statement and the ledger disagree.
package recon

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/money"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// Input carries everything one reconciliation pass needs. Both transaction
// sets must already be windowed to the statement period.
type Input struct {
	BudgetID  string
	AccountID string
	Currency  string

	Externals []txn.External
	Internals []txn.Internal

	// TargetBalance is the statement's reported closing balance in major
	// currency units.
	TargetBalance decimal.Decimal

	Config matcher.Config
}

// Analyzer runs reconciliation passes. Matching performs no I/O.
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil logger falls back to slog.Default.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Analyze matches the external transactions against the internal pool,
// partitions the results, computes balance info, and derives insights.
// Degenerate inputs (no transactions, zero or negative balances) produce a
// well-formed analysis; the only error source is target-balance conversion.
func (a *Analyzer) Analyze(in Input) (*Analysis, error) {
	targetMilli, err := money.FromDecimal(in.TargetBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid target balance: %w", err)
	}

	a.logger.Debug("starting reconciliation analysis",
		"account_id", in.AccountID,
		"external_count", len(in.Externals),
		"internal_count", len(in.Internals),
	)

	matches := matcher.MatchAll(in.Externals, in.Internals, in.Config)

	analysis := &Analysis{
		BudgetID:  in.BudgetID,
		AccountID: in.AccountID,
		Currency:  in.Currency,
	}

	consumed := make(map[string]bool)
	for _, m := range matches {
		switch m.Tier {
		case matcher.TierHigh:
			analysis.AutoMatches = append(analysis.AutoMatches, m)
			if m.Best != nil {
				consumed[m.Best.ID] = true
			}
		case matcher.TierMedium, matcher.TierLow:
			analysis.SuggestedMatches = append(analysis.SuggestedMatches, m)
		default:
			analysis.UnmatchedExternal = append(analysis.UnmatchedExternal, m)
		}
	}
	for _, it := range in.Internals {
		if !consumed[it.ID] {
			analysis.UnmatchedInternal = append(analysis.UnmatchedInternal, it)
		}
	}

	analysis.Balance = a.balanceInfo(in.Internals, targetMilli, in.Currency)
	analysis.Summary = Summary{
		TotalExternal:     len(in.Externals),
		TotalInternal:     len(in.Internals),
		AutoMatched:       len(analysis.AutoMatches),
		Suggested:         len(analysis.SuggestedMatches),
		UnmatchedExternal: len(analysis.UnmatchedExternal),
		UnmatchedInternal: len(analysis.UnmatchedInternal),
	}
	analysis.Insights = deriveInsights(analysis, in.Config)
	analysis.NextSteps = nextSteps(analysis)

	a.logger.Info("reconciliation analysis complete",
		"account_id", in.AccountID,
		"auto_matched", analysis.Summary.AutoMatched,
		"suggested", analysis.Summary.Suggested,
		"unmatched_external", analysis.Summary.UnmatchedExternal,
		"unmatched_internal", analysis.Summary.UnmatchedInternal,
		"discrepancy", analysis.Balance.DiscrepancyDisplay,
	)

	return analysis, nil
}

// balanceInfo sums the internal pool into cleared/uncleared/total balances
// and compares the cleared balance against the statement target. The
// discrepancy convention is target minus cleared, in milliunits.
func (a *Analyzer) balanceInfo(internals []txn.Internal, targetMilli int64, currency string) BalanceInfo {
	var cleared, uncleared int64
	for _, it := range internals {
		switch it.Cleared {
		case txn.ClearedStatusCleared, txn.ClearedStatusReconciled:
			cleared += it.AmountMilli
		default:
			uncleared += it.AmountMilli
		}
	}
	total := cleared + uncleared
	discrepancy := targetMilli - cleared

	return BalanceInfo{
		Currency:           currency,
		ClearedMilli:       cleared,
		UnclearedMilli:     uncleared,
		TotalMilli:         total,
		TargetMilli:        targetMilli,
		DiscrepancyMilli:   discrepancy,
		ClearedDisplay:     money.Display(cleared, currency),
		UnclearedDisplay:   money.Display(uncleared, currency),
		TotalDisplay:       money.Display(total, currency),
		TargetDisplay:      money.Display(targetMilli, currency),
		DiscrepancyDisplay: money.Display(discrepancy, currency),
		OnTrack:            discrepancy == 0,
	}
}

// nextSteps builds the human-facing follow-up hints from the partitions.
func nextSteps(analysis *Analysis) []string {
	var steps []string
	if n := analysis.Summary.UnmatchedExternal; n > 0 {
		steps = append(steps, fmt.Sprintf("Create %d missing ledger transaction(s) from the statement", n))
	}
	if n := analysis.Summary.Suggested; n > 0 {
		steps = append(steps, fmt.Sprintf("Review %d suggested match(es) and choose the right candidates", n))
	}
	if n := analysis.Summary.UnmatchedInternal; n > 0 {
		steps = append(steps, fmt.Sprintf("Check %d ledger transaction(s) absent from the statement", n))
	}
	if !analysis.Balance.OnTrack {
		steps = append(steps, "Run execute with dry_run=true to preview corrective actions")
	}
	return steps
}
