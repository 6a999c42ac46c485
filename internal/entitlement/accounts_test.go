package entitlement_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

// memoryAccounts keeps accounts by id and serializes updates the way the
// store's row lock does.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]account.Account

	// beforeUpdate runs once, after the caller's read and before its write.
	beforeUpdate func()
}

func newMemoryAccounts(accts ...account.Account) *memoryAccounts {
	m := &memoryAccounts{accounts: make(map[uuid.UUID]account.Account)}
	for _, a := range accts {
		m.accounts[a.ID] = a
	}

	return m
}

func (m *memoryAccounts) get(id uuid.UUID) account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.accounts[id]
}

func (m *memoryAccounts) find(match func(a account.Account) bool) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if match(a) {
			return &a, nil
		}
	}

	return nil, account.ErrNotFound
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	return m.find(func(a account.Account) bool { return a.Email == email })
}

func (m *memoryAccounts) GetByCustomerID(_ context.Context, customerID string) (*account.Account, error) {
	return m.find(func(a account.Account) bool { return a.CustomerID() == customerID })
}

func (m *memoryAccounts) ListSubscribed(_ context.Context) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*account.Account

	for _, a := range m.accounts {
		if a.Entitlement.SubscriptionActive {
			out = append(out, &a)
		}
	}

	return out, nil
}

func (m *memoryAccounts) UpdateSubscription(_ context.Context, id uuid.UUID, mutate account.Mutation) (*account.Account, error) {
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}

	if mutate(&a) {
		m.accounts[id] = a
	}

	return &a, nil
}
