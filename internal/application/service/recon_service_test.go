package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallert/bankrec-backend/internal/adapters/ledger"
	"github.com/mkallert/bankrec-backend/internal/application/reconcile"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/recommend"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

var baseDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func seedLedger() *ledger.MockClient {
	mock := ledger.NewMockClient()
	mock.AddAccount(ledger.Account{ID: "acct-1", BudgetID: "b1", Currency: "USD"})

	payee := "Starbucks"
	mock.AddTransaction(txn.Internal{
		ID:          "t1",
		AccountID:   "acct-1",
		Date:        baseDate,
		AmountMilli: -50000,
		PayeeName:   &payee,
		Cleared:     txn.ClearedStatusCleared,
	})
	return mock
}

func TestAnalyze_FromStatementCSV(t *testing.T) {
	// Arrange: the ledger knows the -50.00 charge; the statement adds a
	// -22.22 charge the ledger is missing
	svc := NewReconService(seedLedger(), nil)
	csv := `Date,Amount,Description
2026-03-10,-50.00,Starbucks
2026-03-12,-22.22,Mystery Vendor`

	// Act
	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		BudgetID:      "b1",
		AccountID:     "acct-1",
		Currency:      "USD",
		StatementCSV:  csv,
		TargetBalance: decimal.RequireFromString("-72.22"),
	})

	// Assert
	require.NoError(t, err)
	analysis := result.Analysis
	assert.Equal(t, 1, analysis.Summary.AutoMatched)
	assert.Equal(t, 1, analysis.Summary.UnmatchedExternal)
	assert.Equal(t, int64(-22220), analysis.Balance.DiscrepancyMilli)

	require.NotNil(t, result.Parse)
	assert.Equal(t, 2, result.Parse.ValidRows)

	// One creation recommendation for the missing charge
	var creates []recommend.Recommendation
	for _, rec := range result.Recommendations {
		if rec.Kind == recommend.ActionCreateTransaction {
			creates = append(creates, rec)
		}
	}
	require.Len(t, creates, 1)
	assert.Equal(t, int64(-22220), creates[0].EstImpactMilli)
}

func TestAnalyze_PreParsedRowsSkipParser(t *testing.T) {
	svc := NewReconService(seedLedger(), nil)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		BudgetID:  "b1",
		AccountID: "acct-1",
		Externals: []txn.External{{
			ID:     "e1",
			Date:   baseDate,
			Amount: decimal.RequireFromString("-50.00"),
			Payee:  "Starbucks",
		}},
		TargetBalance: decimal.RequireFromString("-50.00"),
	})

	require.NoError(t, err)
	assert.Nil(t, result.Parse)
	assert.Equal(t, 1, result.Analysis.Summary.AutoMatched)
	assert.True(t, result.Analysis.Balance.OnTrack)
}

func TestAnalyze_WindowsInternalsToStatementPeriod(t *testing.T) {
	// A ledger transaction far outside the statement window must not be
	// reported as unmatched
	mock := seedLedger()
	old := "Old Vendor"
	mock.AddTransaction(txn.Internal{
		ID:          "t-old",
		AccountID:   "acct-1",
		Date:        baseDate.AddDate(0, -2, 0),
		AmountMilli: -99000,
		PayeeName:   &old,
		Cleared:     txn.ClearedStatusCleared,
	})
	svc := NewReconService(mock, nil)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		BudgetID:  "b1",
		AccountID: "acct-1",
		Externals: []txn.External{{
			ID:     "e1",
			Date:   baseDate,
			Amount: decimal.RequireFromString("-50.00"),
			Payee:  "Starbucks",
		}},
		TargetBalance: decimal.RequireFromString("-50.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Analysis.Summary.UnmatchedInternal)
	assert.Equal(t, 1, result.Analysis.Summary.TotalInternal)
}

func TestAnalyze_RequiresIdentifiers(t *testing.T) {
	svc := NewReconService(seedLedger(), nil)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		AccountID:     "acct-1",
		TargetBalance: decimal.Zero,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestAnalyze_ConfigOverride(t *testing.T) {
	svc := NewReconService(seedLedger(), nil)
	cfg := matcher.DefaultConfig()
	cfg.DateToleranceDays = 0

	// Statement date is two days off the ledger date; with zero tolerance
	// the date points are lost and the match drops below the auto threshold
	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		BudgetID:  "b1",
		AccountID: "acct-1",
		Externals: []txn.External{{
			ID:     "e1",
			Date:   baseDate.AddDate(0, 0, 2),
			Amount: decimal.RequireFromString("-50.00"),
			Payee:  "Starbucks",
		}},
		TargetBalance: decimal.RequireFromString("-50.00"),
		WindowStart:   &baseDate,
		Config:        &cfg,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Analysis.Summary.AutoMatched)
	assert.Equal(t, 1, result.Analysis.Summary.Suggested)
}

func TestAnalyze_ServiceMatchingDefaults(t *testing.T) {
	// Arrange: the service is seeded with operator-configured matching that
	// allows zero days of date drift
	cfg := matcher.DefaultConfig()
	cfg.DateToleranceDays = 0
	svc := NewReconServiceWithMatching(seedLedger(), nil, cfg)

	offByTwo := AnalyzeRequest{
		BudgetID:  "b1",
		AccountID: "acct-1",
		Externals: []txn.External{{
			ID:     "e1",
			Date:   baseDate.AddDate(0, 0, 2),
			Amount: decimal.RequireFromString("-50.00"),
			Payee:  "Starbucks",
		}},
		TargetBalance: decimal.RequireFromString("-50.00"),
		WindowStart:   &baseDate,
	}

	// Act: no per-request override, so the service's matching applies
	result, err := svc.Analyze(context.Background(), offByTwo)

	// Assert: the two-day-off row loses the date points and drops to a
	// suggestion instead of an auto match
	require.NoError(t, err)
	assert.Equal(t, 0, result.Analysis.Summary.AutoMatched)
	assert.Equal(t, 1, result.Analysis.Summary.Suggested)

	// A per-request override still wins over the service's matching
	override := matcher.DefaultConfig()
	offByTwo.Config = &override
	result, err = svc.Analyze(context.Background(), offByTwo)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Analysis.Summary.AutoMatched)
}

// blockingClient lets a test hold Execute inside the lock until released.
type blockingClient struct {
	*ledger.MockClient
	enterOnce sync.Once
	enter     chan struct{}
	exit      chan struct{}
}

func (b *blockingClient) GetAccount(ctx context.Context, budgetID, accountID string) (*ledger.Account, error) {
	b.enterOnce.Do(func() { close(b.enter) })
	<-b.exit
	return b.MockClient.GetAccount(ctx, budgetID, accountID)
}

func TestExecute_ConcurrentRunConflicts(t *testing.T) {
	// Arrange: the first Execute blocks inside the lock
	client := &blockingClient{
		MockClient: seedLedger(),
		enter:      make(chan struct{}),
		exit:       make(chan struct{}),
	}
	svc := NewReconService(client, nil)
	analysis := analysisFor(t, svc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Execute(context.Background(), analysis, reconcile.Request{
			BudgetID:  "b1",
			AccountID: "acct-1",
			DryRun:    true,
		})
		assert.NoError(t, err)
	}()
	<-client.enter

	// Act: a second run against the same account while the first holds the lock
	_, err := svc.Execute(context.Background(), analysis, reconcile.Request{
		BudgetID:  "b1",
		AccountID: "acct-1",
		DryRun:    true,
	})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, reconcile.ErrAlreadyRunning))

	close(client.exit)
	wg.Wait()

	// The lock was released, so the account is runnable again
	_, err = svc.Execute(context.Background(), analysis, reconcile.Request{
		BudgetID:  "b1",
		AccountID: "acct-1",
		DryRun:    true,
	})
	assert.NoError(t, err)
}

func TestExecute_DryRunThroughService(t *testing.T) {
	mock := seedLedger()
	svc := NewReconService(mock, nil)
	analysis := analysisFor(t, svc)

	result, err := svc.Execute(context.Background(), analysis, reconcile.Request{
		BudgetID:   "b1",
		AccountID:  "acct-1",
		DryRun:     true,
		AutoCreate: true,
	})

	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.TransactionsCreated)
	assert.Empty(t, mock.CreateCalls)
	require.NotNil(t, result.StartingBalance)
	assert.Equal(t, int64(-50000), result.StartingBalance.ClearedMilli)
}

// analysisFor produces an analysis with one unmatched statement row.
func analysisFor(t *testing.T, svc *ReconService) *recon.Analysis {
	t.Helper()
	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		BudgetID:  "b1",
		AccountID: "acct-1",
		Externals: []txn.External{{
			ID:     "e1",
			Date:   baseDate,
			Amount: decimal.RequireFromString("-22.22"),
			Payee:  "Mystery Vendor",
		}},
		TargetBalance: decimal.RequireFromString("-72.22"),
	})
	require.NoError(t, err)
	return result.Analysis
}
