package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallert/bankrec-backend/internal/adapters/ledger"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

var baseDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func testAnalysis() *recon.Analysis {
	best := txn.Internal{
		ID:          "t1",
		AccountID:   "acct-1",
		Date:        baseDate.AddDate(0, 0, 1),
		AmountMilli: -50000,
		Cleared:     txn.ClearedStatusUncleared,
	}
	return &recon.Analysis{
		BudgetID:  "b1",
		AccountID: "acct-1",
		Currency:  "USD",
		AutoMatches: []matcher.Match{{
			External: txn.External{
				ID:     "e1",
				Date:   baseDate,
				Amount: decimal.RequireFromString("-50.00"),
				Payee:  "Starbucks",
			},
			Tier:  matcher.TierHigh,
			Score: 100,
			Best:  &best,
		}},
		UnmatchedExternal: []matcher.Match{{
			External: txn.External{
				ID:     "e2",
				Date:   baseDate,
				Amount: decimal.RequireFromString("-22.22"),
				Payee:  "Mystery Vendor",
			},
			Tier: matcher.TierNone,
		}},
	}
}

func fullRequest(dryRun bool) Request {
	return Request{
		BudgetID:          "b1",
		AccountID:         "acct-1",
		DryRun:            dryRun,
		AutoCreate:        true,
		AutoUpdateCleared: true,
		AdjustDates:       true,
	}
}

func seedMock() *ledger.MockClient {
	mock := ledger.NewMockClient()
	mock.AddAccount(ledger.Account{ID: "acct-1", BudgetID: "b1", Currency: "USD"})
	mock.AddTransaction(txn.Internal{
		ID:          "t1",
		AccountID:   "acct-1",
		Date:        baseDate.AddDate(0, 0, 1),
		AmountMilli: -50000,
		Cleared:     txn.ClearedStatusUncleared,
	})
	return mock
}

func TestExecute_DryRunTouchesNothing(t *testing.T) {
	// Arrange
	mock := seedMock()
	executor := NewExecutor(mock, nil)

	// Act
	result, err := executor.Execute(context.Background(), testAnalysis(), fullRequest(true), nil)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.TransactionsCreated)
	assert.Equal(t, 1, result.TransactionsUpdated)
	assert.Equal(t, 1, result.DatesAdjusted)

	assert.Empty(t, mock.CreateCalls)
	assert.Empty(t, mock.UpdateCalls)
	for _, action := range result.Actions {
		assert.False(t, action.Applied)
	}
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "dry_run=false")
}

func TestExecute_ApplyMatchesDryRunCounts(t *testing.T) {
	// Arrange: identical input through both modes
	dry, err := NewExecutor(seedMock(), nil).
		Execute(context.Background(), testAnalysis(), fullRequest(true), nil)
	require.NoError(t, err)

	mock := seedMock()
	executor := NewExecutor(mock, nil)

	// Act
	applied, err := executor.Execute(context.Background(), testAnalysis(), fullRequest(false), nil)

	// Assert: counts agree between modes
	require.NoError(t, err)
	assert.Equal(t, dry.TransactionsCreated, applied.TransactionsCreated)
	assert.Equal(t, dry.TransactionsUpdated, applied.TransactionsUpdated)
	assert.Equal(t, dry.DatesAdjusted, applied.DatesAdjusted)
	assert.Len(t, applied.Actions, len(dry.Actions))

	// The ledger actually changed in apply mode
	require.Len(t, mock.CreateCalls, 1)
	assert.Equal(t, int64(-22220), mock.CreateCalls[0].AmountMilli)

	updated, ok := mock.Transaction("t1")
	require.True(t, ok)
	assert.Equal(t, txn.ClearedStatusCleared, updated.Cleared)
	assert.Equal(t, baseDate, updated.Date)
}

func TestExecute_ApplyRefreshesSnapshot(t *testing.T) {
	mock := seedMock()
	executor := NewExecutor(mock, nil)

	result, err := executor.Execute(context.Background(), testAnalysis(), fullRequest(false), nil)

	require.NoError(t, err)
	require.NotNil(t, result.FinalBalance)
	// t1 (-50.00, now cleared) plus the created -22.22
	assert.Equal(t, int64(-72220), result.FinalBalance.ClearedMilli)
}

func TestExecute_PerActionFailureDoesNotAbort(t *testing.T) {
	// Arrange: the cleared update fails, everything else succeeds
	mock := seedMock()
	mock.FailUpdateFor["t1"] = errors.New("ledger unavailable")
	executor := NewExecutor(mock, nil)

	// Act
	result, err := executor.Execute(context.Background(), testAnalysis(), fullRequest(false), nil)

	// Assert: the run completes, the failure is recorded on its action
	require.NoError(t, err)
	assert.Equal(t, 1, result.TransactionsCreated)
	assert.Equal(t, 1, result.TransactionsUpdated)

	var failed, succeeded int
	for _, action := range result.Actions {
		if action.Error != "" {
			failed++
			assert.False(t, action.Applied)
			assert.Contains(t, action.Error, "ledger unavailable")
		} else if action.Applied {
			succeeded++
		}
	}
	assert.Equal(t, 2, failed) // cleared update and date adjustment both hit t1
	assert.Equal(t, 1, succeeded)
}

func TestExecute_FlagsGateActions(t *testing.T) {
	mock := seedMock()
	executor := NewExecutor(mock, nil)

	result, err := executor.Execute(context.Background(), testAnalysis(), Request{
		BudgetID:  "b1",
		AccountID: "acct-1",
		DryRun:    true,
	}, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Actions)
	assert.Zero(t, result.TransactionsCreated)
	assert.Zero(t, result.TransactionsUpdated)
	assert.Zero(t, result.DatesAdjusted)
}

func TestExecute_SkipsDateAdjustmentOnSameDay(t *testing.T) {
	analysis := testAnalysis()
	analysis.AutoMatches[0].Best.Date = baseDate
	mock := seedMock()

	result, err := NewExecutor(mock, nil).
		Execute(context.Background(), analysis, fullRequest(true), nil)

	require.NoError(t, err)
	assert.Zero(t, result.DatesAdjusted)
}
