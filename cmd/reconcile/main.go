// Command reconcile analyzes a bank statement CSV against the local ledger
// and optionally applies the corrective actions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/adapters/ledger"
	"github.com/mkallert/bankrec-backend/internal/application/reconcile"
	"github.com/mkallert/bankrec-backend/internal/application/service"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/infrastructure/config"
	"github.com/mkallert/bankrec-backend/internal/observability"
	"github.com/mkallert/bankrec-backend/internal/report"
)

// matchingFromConfig maps the operator's configured tolerances onto the
// matcher's config so config.yaml settings drive the analysis.
func matchingFromConfig(m config.MatchingConfig) matcher.Config {
	return matcher.Config{
		DateToleranceDays:    m.DateToleranceDays,
		AmountToleranceCents: m.AmountToleranceCents,
		AutoMatchThreshold:   m.AutoMatchThreshold,
		SuggestionThreshold:  m.SuggestionThreshold,
	}
}

func main() {
	var (
		configPath    = flag.String("config", "config.yaml", "path to config file")
		statementPath = flag.String("statement", "", "path to the statement CSV (required)")
		accountID     = flag.String("account", "", "ledger account id (required)")
		budgetID      = flag.String("budget", "", "budget id (defaults to config)")
		target        = flag.String("target", "", "statement closing balance, e.g. 1234.56 (required)")
		currency      = flag.String("currency", "USD", "currency code")
		execute       = flag.Bool("execute", false, "execute corrective actions after analysis")
		apply         = flag.Bool("apply", false, "apply changes for real (default is dry run)")
		autoCreate    = flag.Bool("auto-create", true, "create ledger transactions for unmatched statement rows")
		updateCleared = flag.Bool("update-cleared", true, "mark matched uncleared transactions as cleared")
		adjustDates   = flag.Bool("adjust-dates", false, "align ledger dates to statement dates on matches")
	)
	flag.Parse()

	if *statementPath == "" || *accountID == "" || *target == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := observability.NewLoggerWithComponent(cfg.Observability.Logging, "reconcile")

	targetBalance, err := decimal.NewFromString(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -target %q: %v\n", *target, err)
		os.Exit(2)
	}

	budget := *budgetID
	if budget == "" {
		budget = cfg.Ledger.BudgetID
	}

	csvData, err := os.ReadFile(*statementPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read statement: %v\n", err)
		os.Exit(1)
	}

	store, err := ledger.NewStore(cfg.Ledger.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open ledger database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := service.NewReconServiceWithMatching(store, logger, matchingFromConfig(cfg.Matching))
	ctx := context.Background()

	result, err := svc.Analyze(ctx, service.AnalyzeRequest{
		BudgetID:      budget,
		AccountID:     *accountID,
		Currency:      *currency,
		StatementCSV:  string(csvData),
		TargetBalance: targetBalance,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(report.Analysis(result))

	if result.Parse != nil {
		for _, rowErr := range result.Parse.Errors {
			fmt.Fprintf(os.Stderr, "statement row %d skipped: %s\n", rowErr.Row, rowErr.Message)
		}
	}

	if !*execute {
		return
	}

	execResult, err := svc.Execute(ctx, result.Analysis, reconcile.Request{
		BudgetID:          budget,
		AccountID:         *accountID,
		DryRun:            !*apply,
		AutoCreate:        *autoCreate,
		AutoUpdateCleared: *updateCleared,
		AdjustDates:       *adjustDates,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "execution failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Print(report.Execution(execResult))
}
