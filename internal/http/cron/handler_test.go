package cron_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
	"github.com/MrJamesThe3rd/dinherin/internal/http/cron"
)

func newRouter(t *testing.T) (http.Handler, *entitlement.MockAccounts, *entitlement.MockProvider) {
	t.Helper()

	ctrl := gomock.NewController(t)
	accounts := entitlement.NewMockAccounts(ctrl)
	provider := entitlement.NewMockProvider(ctrl)

	h := cron.NewHandler(entitlement.NewReconciler(accounts, provider, nil))

	r := chi.NewRouter()
	r.Route("/cron", h.Routes)

	return r, accounts, provider
}

func TestHandler_VerifySubscriptions(t *testing.T) {
	router, accounts, provider := newRouter(t)

	lapsed := &account.Account{
		ID:          uuid.New(),
		Billing:     account.Billing{CustomerID: new("cus_1")},
		Entitlement: account.Entitlement{State: account.StateActive, SubscriptionActive: true},
	}
	current := &account.Account{
		ID:          uuid.New(),
		Billing:     account.Billing{CustomerID: new("cus_2")},
		Entitlement: account.Entitlement{State: account.StateTrialing, SubscriptionActive: true, TrialActive: true},
	}

	accounts.EXPECT().ListSubscribed(gomock.Any()).Return([]*account.Account{lapsed, current}, nil)
	provider.EXPECT().HasActiveSubscription(gomock.Any(), "cus_1").Return(false, nil)
	provider.EXPECT().HasActiveSubscription(gomock.Any(), "cus_2").Return(true, nil)
	accounts.EXPECT().
		UpdateSubscription(gomock.Any(), lapsed.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, mutate account.Mutation) (*account.Account, error) {
			require.True(t, mutate(lapsed))
			return lapsed, nil
		})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/verify-subscriptions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success      bool   `json:"success"`
		UpdatedUsers int    `json:"updatedUsers"`
		Timestamp    string `json:"timestamp"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.True(t, body.Success)
	assert.Equal(t, 1, body.UpdatedUsers)
	assert.NotEmpty(t, body.Timestamp)
	assert.Equal(t, account.StateCanceled, lapsed.Entitlement.State)
}

func TestHandler_VerifySubscriptionsListFailure(t *testing.T) {
	router, accounts, _ := newRouter(t)
	accounts.EXPECT().ListSubscribed(gomock.Any()).Return(nil, errors.New("db down"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/verify-subscriptions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
