// Package txn defines the two transaction shapes the reconciliation core
// operates on: externally reported statement rows and internally recorded
// ledger entries.
//
// External amounts are decimal currency units as they appear on a bank
// statement. Internal amounts are signed milliunits (1/1000 of a currency
// unit), the ledger's native representation.
package txn

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClearedStatus is the reconciliation state of a ledger transaction.
type ClearedStatus string

const (
	ClearedStatusUncleared  ClearedStatus = "uncleared"
	ClearedStatusCleared    ClearedStatus = "cleared"
	ClearedStatusReconciled ClearedStatus = "reconciled"
)

// External is a transaction reported by an outside source, e.g. one parsed
// row of a bank statement export. Created once per row, immutable after.
type External struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Payee     string          `json:"payee"`
	Memo      string          `json:"memo,omitempty"`
	SourceRow int             `json:"source_row"`
}

// Internal is a transaction already recorded in the ledger being reconciled.
// Amount is in milliunits. Read-only input to the core except where the
// executor issues updates through the ledger client.
type Internal struct {
	ID           string        `json:"id"`
	AccountID    string        `json:"account_id"`
	Date         time.Time     `json:"date"`
	AmountMilli  int64         `json:"amount_milli"`
	PayeeName    *string       `json:"payee_name,omitempty"`
	CategoryName *string       `json:"category_name,omitempty"`
	Cleared      ClearedStatus `json:"cleared"`
	Approved     bool          `json:"approved"`
	Memo         *string       `json:"memo,omitempty"`
}
