// Package service wires the reconciliation pipeline together: statement
// parsing, windowing, analysis, recommendations, and execution against the
// ledger. It is the only entry point the API handlers and CLI use.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/adapters/ledger"
	"github.com/mkallert/bankrec-backend/internal/application/reconcile"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/recommend"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
	"github.com/mkallert/bankrec-backend/internal/statement"
)

// AnalyzeRequest is the single analysis entry point's input. Callers supply
// either raw statement CSV or pre-parsed rows; when both are present the
// pre-parsed rows win.
type AnalyzeRequest struct {
	BudgetID  string
	AccountID string
	Currency  string

	StatementCSV string
	Externals    []txn.External

	// TargetBalance is the statement's closing balance in currency units.
	TargetBalance decimal.Decimal

	// Optional window override. When unset, the window is derived from the
	// statement rows' min and max dates.
	WindowStart *time.Time
	WindowEnd   *time.Time

	// Optional matching config override; nil falls back to the service's
	// configured matching.
	Config *matcher.Config
}

// AnalyzeResult bundles the analysis with its derived recommendations and
// the statement parse report.
type AnalyzeResult struct {
	Analysis        *recon.Analysis            `json:"analysis"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Parse           *statement.ParseResult     `json:"parse,omitempty"`
}

// ReconService coordinates reconciliation runs. It owns the per-account
// lock registry, so concurrent executions against the same account fail
// fast with reconcile.ErrAlreadyRunning.
type ReconService struct {
	client   ledger.Client
	analyzer *recon.Analyzer
	engine   *recommend.Engine
	executor *reconcile.Executor
	locks    *reconcile.LockRegistry
	matching matcher.Config
	logger   *slog.Logger
}

// NewReconService creates the service with the default matching config. A
// nil logger falls back to slog.Default.
func NewReconService(client ledger.Client, logger *slog.Logger) *ReconService {
	return NewReconServiceWithMatching(client, logger, matcher.DefaultConfig())
}

// NewReconServiceWithMatching creates the service with operator-configured
// matching tolerances and thresholds. Per-request overrides still win over
// these.
func NewReconServiceWithMatching(client ledger.Client, logger *slog.Logger, matching matcher.Config) *ReconService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconService{
		client:   client,
		analyzer: recon.NewAnalyzer(logger),
		engine:   recommend.NewEngine(),
		executor: reconcile.NewExecutor(client, logger),
		locks:    reconcile.NewLockRegistry(),
		matching: matching,
		logger:   logger,
	}
}

// Analyze parses the statement (unless rows came pre-parsed), windows both
// transaction sets to the statement period, runs the analyzer, and attaches
// recommendations.
func (s *ReconService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if req.BudgetID == "" || req.AccountID == "" {
		return nil, fmt.Errorf("budget_id and account_id are required")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	externals := req.Externals
	var parse *statement.ParseResult
	if len(externals) == 0 && req.StatementCSV != "" {
		var err error
		parse, err = statement.Parse(strings.NewReader(req.StatementCSV))
		if err != nil {
			return nil, fmt.Errorf("failed to parse statement: %w", err)
		}
		externals = parse.Transactions
		s.logger.Debug("parsed statement",
			"total_rows", parse.TotalRows,
			"valid_rows", parse.ValidRows,
			"row_errors", len(parse.Errors),
		)
	}

	internals, err := s.client.ListTransactions(ctx, req.BudgetID, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}

	start, end, ok := window(req, externals)
	if ok {
		externals = statement.WindowExternals(externals, start, end)
		internals = statement.WindowInternals(internals, start, end)
	}

	cfg := s.matching
	if req.Config != nil {
		cfg = *req.Config
	}

	analysis, err := s.analyzer.Analyze(recon.Input{
		BudgetID:      req.BudgetID,
		AccountID:     req.AccountID,
		Currency:      req.Currency,
		Externals:     externals,
		Internals:     internals,
		TargetBalance: req.TargetBalance,
		Config:        cfg,
	})
	if err != nil {
		return nil, err
	}

	return &AnalyzeResult{
		Analysis:        analysis,
		Recommendations: s.engine.Build(analysis),
		Parse:           parse,
	}, nil
}

// Execute runs the executor over a previously computed analysis, holding
// the account lock for the duration. A concurrent run against the same
// (budget, account) pair returns reconcile.ErrAlreadyRunning.
func (s *ReconService) Execute(ctx context.Context, analysis *recon.Analysis, req reconcile.Request) (*reconcile.Result, error) {
	release, err := s.locks.Acquire(req.BudgetID, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot, err := s.client.GetAccount(ctx, req.BudgetID, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account snapshot: %w", err)
	}

	return s.executor.Execute(ctx, analysis, req, snapshot)
}

// window resolves the statement period: explicit overrides win, otherwise
// the rows' min and max dates define it. Returns ok=false when there is
// nothing to derive a window from.
func window(req AnalyzeRequest, externals []txn.External) (time.Time, time.Time, bool) {
	if req.WindowStart != nil && req.WindowEnd != nil {
		return *req.WindowStart, *req.WindowEnd, true
	}
	if len(externals) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end := externals[0].Date, externals[0].Date
	for _, e := range externals[1:] {
		if e.Date.Before(start) {
			start = e.Date
		}
		if e.Date.After(end) {
			end = e.Date
		}
	}
	if req.WindowStart != nil {
		start = *req.WindowStart
	}
	if req.WindowEnd != nil {
		end = *req.WindowEnd
	}
	return start, end, true
}
