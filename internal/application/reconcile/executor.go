// Package reconcile executes reconciliation outcomes against the ledger.
//
// The executor derives a deterministic action plan from an analysis and
// either simulates it (dry run) or applies it through the ledger client.
// Both modes report the same summary shape, and for identical input the
// dry-run counts equal the apply-mode counts.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkallert/bankrec-backend/internal/adapters/ledger"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/money"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// Request holds execution parameters.
type Request struct {
	BudgetID  string `json:"budget_id"`
	AccountID string `json:"account_id"`

	// DryRun computes the would-be effect without touching the ledger.
	DryRun bool `json:"dry_run"`

	// AutoCreate creates ledger transactions for unmatched statement rows.
	AutoCreate bool `json:"auto_create"`
	// AutoUpdateCleared marks matched uncleared transactions as cleared.
	AutoUpdateCleared bool `json:"auto_update_cleared"`
	// AdjustDates aligns ledger dates to statement dates on high/medium
	// matches whose dates differ.
	AdjustDates bool `json:"adjust_dates"`
}

// ActionType names the operations the executor can take.
type ActionType string

const (
	ActionTypeCreate        ActionType = "create_transaction"
	ActionTypeUpdateCleared ActionType = "update_cleared"
	ActionTypeAdjustDate    ActionType = "adjust_date"
)

// Action is one planned or performed operation, with its per-action
// outcome. A failed ledger call is recorded here and never aborts the run.
type Action struct {
	Type          ActionType `json:"type"`
	Description   string     `json:"description"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ExternalID    string     `json:"external_id,omitempty"`
	AmountMilli   int64      `json:"amount_milli,omitempty"`
	Applied       bool       `json:"applied"`
	Error         string     `json:"error,omitempty"`
}

// Result summarizes an execution. The shape is identical in dry-run and
// apply mode; FinalBalance is only populated after an apply.
type Result struct {
	DryRun              bool            `json:"dry_run"`
	TransactionsCreated int             `json:"transactions_created"`
	TransactionsUpdated int             `json:"transactions_updated"`
	DatesAdjusted       int             `json:"dates_adjusted"`
	Actions             []Action        `json:"actions"`
	Recommendations     []string        `json:"recommendations,omitempty"`
	StartingBalance     *ledger.Account `json:"starting_balance,omitempty"`
	FinalBalance        *ledger.Account `json:"final_balance,omitempty"`
}

// Executor applies or simulates reconciliation actions.
type Executor struct {
	client ledger.Client
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(client ledger.Client, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{client: client, logger: logger}
}

// plannedAction pairs an Action with what applying it requires.
type plannedAction struct {
	action Action
	create *txn.Internal
	update *ledger.TransactionUpdate
}

// Execute derives the action plan from the analysis and runs it. Ledger
// calls are issued one at a time, in plan order, and only in apply mode.
func (e *Executor) Execute(ctx context.Context, analysis *recon.Analysis, req Request, snapshot *ledger.Account) (*Result, error) {
	plan := e.plan(analysis, req)

	result := &Result{
		DryRun:          req.DryRun,
		StartingBalance: snapshot,
	}

	for _, p := range plan {
		action := p.action

		if req.DryRun {
			e.logger.Debug("[DRY RUN] would execute action",
				"type", action.Type,
				"description", action.Description,
			)
		} else {
			e.apply(ctx, req, p, &action)
		}

		switch action.Type {
		case ActionTypeCreate:
			result.TransactionsCreated++
		case ActionTypeUpdateCleared:
			result.TransactionsUpdated++
		case ActionTypeAdjustDate:
			result.DatesAdjusted++
		}
		result.Actions = append(result.Actions, action)
	}

	if req.DryRun {
		result.Recommendations = append(result.Recommendations,
			"Re-run with dry_run=false to apply these changes")
	} else {
		final, err := e.client.GetAccount(ctx, req.BudgetID, req.AccountID)
		if err != nil {
			e.logger.Warn("failed to refresh account snapshot after execution",
				"account_id", req.AccountID, "error", err)
		} else {
			result.FinalBalance = final
		}
		result.Recommendations = append(result.Recommendations,
			"Re-run the analysis to verify the remaining discrepancy")
	}

	e.logger.Info("execution complete",
		"account_id", req.AccountID,
		"dry_run", req.DryRun,
		"created", result.TransactionsCreated,
		"updated", result.TransactionsUpdated,
		"dates_adjusted", result.DatesAdjusted,
	)

	return result, nil
}

// plan derives the deterministic action list: creations for unmatched
// statement rows, cleared updates for matched uncleared entries, then date
// adjustments. Rows whose amounts cannot be represented in milliunits are
// excluded at planning time so both modes see the same plan.
func (e *Executor) plan(analysis *recon.Analysis, req Request) []plannedAction {
	var plan []plannedAction

	if req.AutoCreate {
		for _, m := range analysis.UnmatchedExternal {
			milli, err := money.FromDecimal(m.External.Amount)
			if err != nil {
				e.logger.Warn("skipping unrepresentable statement amount",
					"external_id", m.External.ID, "error", err)
				continue
			}
			memo := m.External.Memo
			plan = append(plan, plannedAction{
				action: Action{
					Type:        ActionTypeCreate,
					Description: fmt.Sprintf("create %s for %s", money.Display(milli, analysis.Currency), m.External.Payee),
					ExternalID:  m.External.ID,
					AmountMilli: milli,
				},
				create: &txn.Internal{
					AccountID:   req.AccountID,
					Date:        m.External.Date,
					AmountMilli: milli,
					PayeeName:   &m.External.Payee,
					Cleared:     txn.ClearedStatusCleared,
					Approved:    true,
					Memo:        optional(memo),
				},
			})
		}
	}

	if req.AutoUpdateCleared {
		for _, m := range matchesWithBest(analysis) {
			if m.Best.Cleared != txn.ClearedStatusUncleared {
				continue
			}
			cleared := txn.ClearedStatusCleared
			plan = append(plan, plannedAction{
				action: Action{
					Type:          ActionTypeUpdateCleared,
					Description:   fmt.Sprintf("mark %s cleared (matched statement row %s)", m.Best.ID, m.External.ID),
					TransactionID: m.Best.ID,
					ExternalID:    m.External.ID,
					AmountMilli:   m.Best.AmountMilli,
				},
				update: &ledger.TransactionUpdate{Cleared: &cleared},
			})
		}
	}

	if req.AdjustDates {
		for _, m := range matchesWithBest(analysis) {
			if sameDay(m.Best.Date, m.External.Date) {
				continue
			}
			date := m.External.Date
			plan = append(plan, plannedAction{
				action: Action{
					Type:          ActionTypeAdjustDate,
					Description:   fmt.Sprintf("adjust date of %s to %s", m.Best.ID, date.Format("2006-01-02")),
					TransactionID: m.Best.ID,
					ExternalID:    m.External.ID,
					AmountMilli:   m.Best.AmountMilli,
				},
				update: &ledger.TransactionUpdate{Date: &date},
			})
		}
	}

	return plan
}

// apply performs one planned action and records its outcome in place.
func (e *Executor) apply(ctx context.Context, req Request, p plannedAction, action *Action) {
	switch {
	case p.create != nil:
		created, err := e.client.CreateTransaction(ctx, req.BudgetID, *p.create)
		if err != nil {
			action.Error = err.Error()
			e.logger.Error("failed to create ledger transaction",
				"account_id", req.AccountID,
				"external_id", action.ExternalID,
				"error", err,
			)
			return
		}
		action.TransactionID = created.ID
		action.Applied = true

	case p.update != nil:
		if err := e.client.UpdateTransaction(ctx, req.BudgetID, action.TransactionID, *p.update); err != nil {
			action.Error = err.Error()
			e.logger.Error("failed to update ledger transaction",
				"account_id", req.AccountID,
				"transaction_id", action.TransactionID,
				"error", err,
			)
			return
		}
		action.Applied = true
	}
}

// matchesWithBest returns the high and medium matches that carry a chosen
// internal transaction, in analysis order.
func matchesWithBest(analysis *recon.Analysis) []matcher.Match {
	var out []matcher.Match
	for _, m := range analysis.AutoMatches {
		if m.Best != nil {
			out = append(out, m)
		}
	}
	for _, m := range analysis.SuggestedMatches {
		if m.Tier == matcher.TierMedium && m.Best != nil {
			out = append(out, m)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
