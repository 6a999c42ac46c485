package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
)

func subscribed(customerID string) *account.Account {
	a := &account.Account{
		ID:          uuid.New(),
		Entitlement: account.Entitlement{State: account.StateActive, SubscriptionActive: true},
	}
	if customerID != "" {
		a.Billing.CustomerID = new(customerID)
	}

	return a
}

func applyTo(acct *account.Account) func(context.Context, uuid.UUID, account.Mutation) (*account.Account, error) {
	return func(_ context.Context, _ uuid.UUID, mutate account.Mutation) (*account.Account, error) {
		mutate(acct)
		return acct, nil
	}
}

func TestReconciler_Verify(t *testing.T) {
	stillPaying := subscribed("cus_paying")
	lapsed := subscribed("cus_lapsed")
	flaky := subscribed("cus_flaky")
	noCustomer := subscribed("")

	ctrl := gomock.NewController(t)
	accounts := entitlement.NewMockAccounts(ctrl)
	provider := entitlement.NewMockProvider(ctrl)

	accounts.EXPECT().ListSubscribed(gomock.Any()).Return([]*account.Account{stillPaying, flaky, lapsed, noCustomer}, nil)

	gomock.InOrder(
		provider.EXPECT().HasActiveSubscription(gomock.Any(), "cus_paying").Return(true, nil),
		provider.EXPECT().HasActiveSubscription(gomock.Any(), "cus_flaky").Return(false, errors.New("timeout")),
		provider.EXPECT().HasActiveSubscription(gomock.Any(), "cus_lapsed").Return(false, nil),
	)
	accounts.EXPECT().UpdateSubscription(gomock.Any(), lapsed.ID, gomock.Any()).DoAndReturn(applyTo(lapsed))

	r := entitlement.NewReconciler(accounts, provider, nil)

	n, err := r.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, account.StateCanceled, lapsed.Entitlement.State)
	assert.False(t, lapsed.Entitlement.SubscriptionActive)
	assert.Equal(t, account.StateActive, stillPaying.Entitlement.State)
	assert.Equal(t, account.StateActive, flaky.Entitlement.State)
}

func TestReconciler_VerifySaveFailureSkipped(t *testing.T) {
	a := subscribed("cus_1")
	b := subscribed("cus_2")

	ctrl := gomock.NewController(t)
	accounts := entitlement.NewMockAccounts(ctrl)
	provider := entitlement.NewMockProvider(ctrl)

	accounts.EXPECT().ListSubscribed(gomock.Any()).Return([]*account.Account{a, b}, nil)
	provider.EXPECT().HasActiveSubscription(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
	accounts.EXPECT().UpdateSubscription(gomock.Any(), a.ID, gomock.Any()).Return(nil, errors.New("db down"))
	accounts.EXPECT().UpdateSubscription(gomock.Any(), b.ID, gomock.Any()).DoAndReturn(applyTo(b))

	n, err := entitlement.NewReconciler(accounts, provider, nil).Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconciler_VerifyKeepsRenewalAppliedMeanwhile(t *testing.T) {
	listed := subscribed("cus_1")
	renewedUntil := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	store := newMemoryAccounts(*listed)

	ctrl := gomock.NewController(t)
	provider := entitlement.NewMockProvider(ctrl)
	provider.EXPECT().
		HasActiveSubscription(gomock.Any(), "cus_1").
		DoAndReturn(func(context.Context, string) (bool, error) {
			_, err := store.UpdateSubscription(context.Background(), listed.ID, func(a *account.Account) bool {
				a.Entitlement.Activate(account.Period{Start: renewedUntil.AddDate(0, -1, 0), End: renewedUntil})
				return true
			})

			return false, err
		})

	n, err := entitlement.NewReconciler(store, provider, nil).Verify(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	got := store.get(listed.ID)
	assert.Equal(t, account.StateActive, got.Entitlement.State)
	assert.True(t, got.Entitlement.SubscriptionActive)
	assert.Equal(t, renewedUntil, *got.Entitlement.SubscriptionEndAt)
}

func TestReconciler_VerifyListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := entitlement.NewMockAccounts(ctrl)
	accounts.EXPECT().ListSubscribed(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := entitlement.NewReconciler(accounts, entitlement.NewMockProvider(ctrl), nil).Verify(context.Background())
	require.Error(t, err)
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := entitlement.NewMockAccounts(ctrl)
	accounts.EXPECT().ListSubscribed(gomock.Any()).Return(nil, nil).AnyTimes()

	r := entitlement.NewReconciler(accounts, entitlement.NewMockProvider(ctrl), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx, 10*time.Millisecond))
}
