// Package ledger defines the client contract for the ledger being
// reconciled, plus a SQLite-backed implementation and an in-memory mock.
//
// The reconciliation core only ever talks to the Client interface; transport
// details, auth, caching, and rate limiting live behind it.
package ledger

import (
	"context"
	"time"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// Account is a balance snapshot for one ledger account. Monetary fields are
// milliunits.
type Account struct {
	ID             string `json:"id"`
	BudgetID       string `json:"budget_id"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	ClearedMilli   int64  `json:"cleared_milli"`
	UnclearedMilli int64  `json:"uncleared_milli"`
	BalanceMilli   int64  `json:"balance_milli"`
}

// TransactionUpdate is a partial update to an existing ledger transaction.
// Nil fields are left untouched.
type TransactionUpdate struct {
	Cleared  *txn.ClearedStatus
	Approved *bool
	Date     *time.Time
	Memo     *string
}

// Client is the contract the reconciliation core needs from the ledger.
// All calls may fail with transport or auth errors; the executor treats
// such failures as local to the single action that triggered them.
type Client interface {
	// CreateTransaction records a new transaction and returns it with its
	// assigned id.
	CreateTransaction(ctx context.Context, budgetID string, t txn.Internal) (*txn.Internal, error)

	// UpdateTransaction applies a partial update to one transaction.
	UpdateTransaction(ctx context.Context, budgetID, transactionID string, update TransactionUpdate) error

	// GetAccount fetches the current balance snapshot for an account.
	GetAccount(ctx context.Context, budgetID, accountID string) (*Account, error)

	// ListTransactions returns every transaction recorded for an account,
	// ordered by date then id.
	ListTransactions(ctx context.Context, budgetID, accountID string) ([]txn.Internal, error)
}
