package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

// MockClient is an in-memory Client for testing. It stores transactions in
// maps and exposes error-injection hooks for exercising failure paths.
type MockClient struct {
	mu           sync.Mutex
	accounts     map[string]Account
	transactions map[string]txn.Internal
	nextID       int

	// Call recording for test assertions
	CreateCalls []txn.Internal
	UpdateCalls []string

	// Error injection
	CreateErr     error
	UpdateErr     error
	GetAccountErr error
	ListErr       error
	FailUpdateFor map[string]error
}

// NewMockClient creates an empty mock ledger.
func NewMockClient() *MockClient {
	return &MockClient{
		accounts:      make(map[string]Account),
		transactions:  make(map[string]txn.Internal),
		nextID:        1,
		FailUpdateFor: make(map[string]error),
	}
}

// Compile-time check that MockClient implements Client
var _ Client = (*MockClient)(nil)

// AddAccount seeds an account.
func (m *MockClient) AddAccount(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

// AddTransaction seeds a transaction.
func (m *MockClient) AddTransaction(t txn.Internal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
}

// Transaction returns a stored transaction by id.
func (m *MockClient) Transaction(id string) (txn.Internal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	return t, ok
}

func (m *MockClient) CreateTransaction(_ context.Context, _ string, t txn.Internal) (*txn.Internal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if t.ID == "" {
		t.ID = fmt.Sprintf("mock-txn-%d", m.nextID)
		m.nextID++
	}
	m.transactions[t.ID] = t
	m.CreateCalls = append(m.CreateCalls, t)
	return &t, nil
}

func (m *MockClient) UpdateTransaction(_ context.Context, _ string, transactionID string, update TransactionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, transactionID)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if err, ok := m.FailUpdateFor[transactionID]; ok {
		return err
	}

	t, ok := m.transactions[transactionID]
	if !ok {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	if update.Cleared != nil {
		t.Cleared = *update.Cleared
	}
	if update.Approved != nil {
		t.Approved = *update.Approved
	}
	if update.Date != nil {
		t.Date = *update.Date
	}
	if update.Memo != nil {
		t.Memo = update.Memo
	}
	m.transactions[transactionID] = t
	return nil
}

func (m *MockClient) GetAccount(_ context.Context, budgetID, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetAccountErr != nil {
		return nil, m.GetAccountErr
	}

	account, ok := m.accounts[accountID]
	if !ok {
		account = Account{ID: accountID, BudgetID: budgetID, Currency: "USD"}
	}

	account.ClearedMilli, account.UnclearedMilli = 0, 0
	for _, t := range m.transactions {
		if t.AccountID != accountID {
			continue
		}
		switch t.Cleared {
		case txn.ClearedStatusCleared, txn.ClearedStatusReconciled:
			account.ClearedMilli += t.AmountMilli
		default:
			account.UnclearedMilli += t.AmountMilli
		}
	}
	account.BalanceMilli = account.ClearedMilli + account.UnclearedMilli
	return &account, nil
}

func (m *MockClient) ListTransactions(_ context.Context, _, accountID string) ([]txn.Internal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	var txns []txn.Internal
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			txns = append(txns, t)
		}
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}
