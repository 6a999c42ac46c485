package account_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

// memoryRepository mirrors the store's lookup rules: soft-deleted rows are
// invisible to every query.
type memoryRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
}

var _ account.Repository = (*memoryRepository)(nil)

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{accounts: make(map[uuid.UUID]*account.Account)}
}

func (m *memoryRepository) find(match func(a *account.Account) bool) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.DeletedAt == nil && match(a) {
			cp := *a
			return &cp, nil
		}
	}

	return nil, account.ErrNotFound
}

func (m *memoryRepository) modify(id uuid.UUID, apply func(a *account.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return account.ErrNotFound
	}

	apply(a)

	return nil
}

func (m *memoryRepository) CreateAccount(_ context.Context, acct *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct.ID = uuid.New()
	acct.CreatedAt = time.Now()

	cp := *acct
	m.accounts[acct.ID] = &cp

	return nil
}

func (m *memoryRepository) GetAccount(_ context.Context, id uuid.UUID) (*account.Account, error) {
	return m.find(func(a *account.Account) bool { return a.ID == id })
}

func (m *memoryRepository) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	return m.find(func(a *account.Account) bool { return a.Email == email })
}

func (m *memoryRepository) GetByAPIKey(_ context.Context, apiKey string) (*account.Account, error) {
	return m.find(func(a *account.Account) bool { return a.APIKey == apiKey })
}

func (m *memoryRepository) GetByCustomerID(_ context.Context, customerID string) (*account.Account, error) {
	return m.find(func(a *account.Account) bool { return a.CustomerID() == customerID })
}

func (m *memoryRepository) GetByCheckoutSession(_ context.Context, sessionID string) (*account.Account, error) {
	return m.find(func(a *account.Account) bool {
		return a.Billing.CheckoutSessionID != nil && *a.Billing.CheckoutSessionID == sessionID
	})
}

func (m *memoryRepository) GetByResetToken(_ context.Context, token string, now time.Time) (*account.Account, error) {
	return m.find(func(a *account.Account) bool {
		return a.ResetToken != nil && *a.ResetToken == token && a.ResetTokenExpiresAt != nil && now.Before(*a.ResetTokenExpiresAt)
	})
}

func (m *memoryRepository) ListSubscribed(_ context.Context) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*account.Account

	for _, a := range m.accounts {
		if a.DeletedAt == nil && a.Entitlement.SubscriptionActive {
			cp := *a
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (m *memoryRepository) UpdateProfile(_ context.Context, id uuid.UUID, name string) error {
	return m.modify(id, func(a *account.Account) { a.Name = name })
}

func (m *memoryRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return m.modify(id, func(a *account.Account) { a.PasswordHash = &passwordHash })
}

func (m *memoryRepository) UpdateAPIKey(_ context.Context, id uuid.UUID, apiKey string) error {
	return m.modify(id, func(a *account.Account) { a.APIKey = apiKey })
}

func (m *memoryRepository) UpdateResetToken(_ context.Context, id uuid.UUID, token *string, expiresAt *time.Time) error {
	return m.modify(id, func(a *account.Account) {
		a.ResetToken = token
		a.ResetTokenExpiresAt = expiresAt
	})
}

func (m *memoryRepository) UpdateSubscription(_ context.Context, id uuid.UUID, mutate account.Mutation) (*account.Account, error) {
	var out account.Account

	err := m.modify(id, func(a *account.Account) {
		cp := *a
		if mutate(&cp) {
			*a = cp
		}

		out = *a
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (m *memoryRepository) UpsertCustomer(_ context.Context, acct *account.Account) error {
	if existing, err := m.GetByEmail(context.Background(), acct.Email); err == nil {
		return m.modify(existing.ID, func(a *account.Account) {
			a.Billing.CustomerID = acct.Billing.CustomerID
			*acct = *a
		})
	}

	return m.CreateAccount(context.Background(), acct)
}

func (m *memoryRepository) SoftDelete(_ context.Context, id uuid.UUID, deletedEmail string, at time.Time) error {
	return m.modify(id, func(a *account.Account) {
		a.Email = deletedEmail
		a.DeletedAt = &at
	})
}
