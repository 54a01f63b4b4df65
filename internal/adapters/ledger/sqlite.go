package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// Store is a SQLite-backed ledger. It implements Client and is used by the
// API and CLI binaries as the local ledger database.
type Store struct {
	db *sql.DB
}

// Compile-time check that Store implements Client
var _ Client = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	budget_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	currency   TEXT NOT NULL DEFAULT 'USD',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	budget_id     TEXT NOT NULL,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	date          TIMESTAMP NOT NULL,
	amount_milli  INTEGER NOT NULL,
	payee_name    TEXT,
	category_name TEXT,
	cleared       TEXT NOT NULL DEFAULT 'uncleared',
	approved      INTEGER NOT NULL DEFAULT 0,
	memo          TEXT,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, date);
`

// NewStore opens (or creates) the ledger database at dbPath and ensures
// the schema exists.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAccount registers an account so transactions can reference it.
func (s *Store) CreateAccount(ctx context.Context, account Account) (*Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, budget_id, name, currency) VALUES (?, ?, ?, ?)`,
		account.ID, account.BudgetID, account.Name, account.Currency,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", account.Name, err)
	}
	return &account, nil
}

// CreateTransaction records a new transaction, assigning an id when the
// caller did not provide one.
func (s *Store) CreateTransaction(ctx context.Context, budgetID string, t txn.Internal) (*txn.Internal, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Cleared == "" {
		t.Cleared = txn.ClearedStatusUncleared
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, budget_id, account_id, date, amount_milli, payee_name, category_name, cleared, approved, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, budgetID, t.AccountID, t.Date.UTC(), t.AmountMilli,
		t.PayeeName, t.CategoryName, string(t.Cleared), t.Approved, t.Memo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction for account %s: %w", t.AccountID, err)
	}
	return &t, nil
}

// UpdateTransaction applies a partial update; nil fields are untouched.
func (s *Store) UpdateTransaction(ctx context.Context, budgetID, transactionID string, update TransactionUpdate) error {
	query := "UPDATE transactions SET id = id"
	args := []interface{}{}

	if update.Cleared != nil {
		query += ", cleared = ?"
		args = append(args, string(*update.Cleared))
	}
	if update.Approved != nil {
		query += ", approved = ?"
		args = append(args, *update.Approved)
	}
	if update.Date != nil {
		query += ", date = ?"
		args = append(args, update.Date.UTC())
	}
	if update.Memo != nil {
		query += ", memo = ?"
		args = append(args, *update.Memo)
	}

	query += " WHERE id = ? AND budget_id = ?"
	args = append(args, transactionID, budgetID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s not found in budget %s", transactionID, budgetID)
	}
	return nil
}

// GetAccount fetches an account row and computes its balance snapshot from
// the transactions table.
func (s *Store) GetAccount(ctx context.Context, budgetID, accountID string) (*Account, error) {
	account := &Account{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, budget_id, name, currency FROM accounts WHERE id = ? AND budget_id = ?`,
		accountID, budgetID,
	).Scan(&account.ID, &account.BudgetID, &account.Name, &account.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", accountID, err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN cleared IN ('cleared', 'reconciled') THEN amount_milli ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cleared NOT IN ('cleared', 'reconciled') THEN amount_milli ELSE 0 END), 0)
		FROM transactions WHERE account_id = ? AND budget_id = ?`,
		accountID, budgetID,
	).Scan(&account.ClearedMilli, &account.UnclearedMilli)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balances for account %s: %w", accountID, err)
	}

	account.BalanceMilli = account.ClearedMilli + account.UnclearedMilli
	return account, nil
}

// ListTransactions returns all transactions for an account ordered by date
// then id so repeated runs see identical input order.
func (s *Store) ListTransactions(ctx context.Context, budgetID, accountID string) ([]txn.Internal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, date, amount_milli, payee_name, category_name, cleared, approved, memo
		FROM transactions
		WHERE account_id = ? AND budget_id = ?
		ORDER BY date, id`,
		accountID, budgetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var txns []txn.Internal
	for rows.Next() {
		var t txn.Internal
		var date time.Time
		var cleared string
		if err := rows.Scan(&t.ID, &t.AccountID, &date, &t.AmountMilli,
			&t.PayeeName, &t.CategoryName, &cleared, &t.Approved, &t.Memo); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.Date = date.UTC()
		t.Cleared = txn.ClearedStatus(cleared)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
