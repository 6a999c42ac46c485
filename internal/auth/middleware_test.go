package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/auth"
)

// echo responds with the resolved caller's email.
var echo = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	acct, ok := auth.AccountFrom(r.Context())
	if !ok {
		http.Error(w, "no caller", http.StatusTeapot)
		return
	}

	_, _ = w.Write([]byte(acct.Email))
})

func TestMiddleware_RequireCaller(t *testing.T) {
	issuer := auth.NewIssuer("s3cret", time.Hour, "dinherin")
	acct := &account.Account{ID: uuid.New(), Email: "ana@example.com"}

	session, _, err := issuer.Issue(acct)
	require.NoError(t, err)

	type testCase struct {
		name       string
		headers    map[string]string
		setupMock  func(m *auth.MockAccounts)
		wantStatus int
		wantBody   string
	}

	tests := []testCase{
		{
			name:    "APIKey",
			headers: map[string]string{auth.APIKeyHeader: "api_key_dinherin_1"},
			setupMock: func(m *auth.MockAccounts) {
				m.EXPECT().GetByAPIKey(gomock.Any(), "api_key_dinherin_1").Return(acct, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "ana@example.com",
		},
		{
			name:    "UnknownAPIKey",
			headers: map[string]string{auth.APIKeyHeader: "api_key_dinherin_2"},
			setupMock: func(m *auth.MockAccounts) {
				m.EXPECT().GetByAPIKey(gomock.Any(), "api_key_dinherin_2").Return(nil, account.ErrNotFound)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "Session",
			headers: map[string]string{"Authorization": "Bearer " + session},
			setupMock: func(m *auth.MockAccounts) {
				m.EXPECT().Get(gomock.Any(), acct.ID).Return(acct, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "ana@example.com",
		},
		{
			name:    "DeletedSessionAccount",
			headers: map[string]string{"Authorization": "Bearer " + session},
			setupMock: func(m *auth.MockAccounts) {
				m.EXPECT().Get(gomock.Any(), acct.ID).Return(nil, account.ErrNotFound)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "BadSession",
			headers:    map[string]string{"Authorization": "Bearer nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Anonymous",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "StoreFailure",
			headers: map[string]string{auth.APIKeyHeader: "api_key_dinherin_3"},
			setupMock: func(m *auth.MockAccounts) {
				m.EXPECT().GetByAPIKey(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			accounts := auth.NewMockAccounts(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(accounts)
			}

			mw := auth.NewMiddleware(accounts, issuer)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			mw.RequireCaller(echo).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestMiddleware_RequireEntitlement(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		acct       *account.Account
		wantStatus int
	}{
		{name: "Trialing", acct: &account.Account{Entitlement: account.Entitlement{State: account.StateTrialing}}, wantStatus: http.StatusOK},
		{name: "CancelingInGrace", acct: &account.Account{Entitlement: account.Entitlement{State: account.StateCanceling, CancelAt: &future}}, wantStatus: http.StatusOK},
		{name: "CancelingExpired", acct: &account.Account{Entitlement: account.Entitlement{State: account.StateCanceling, CancelAt: &past}}, wantStatus: http.StatusForbidden},
		{name: "NoSubscription", acct: &account.Account{Entitlement: account.Entitlement{State: account.StateNone}}, wantStatus: http.StatusForbidden},
		{name: "NoCaller", wantStatus: http.StatusUnauthorized},
	}

	mw := auth.NewMiddleware(nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acct != nil {
				req = req.WithContext(auth.WithAccount(req.Context(), tt.acct))
			}

			rec := httptest.NewRecorder()
			mw.RequireEntitlement(echo).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireSecret(t *testing.T) {
	guard := auth.RequireSecret("cron-secret")

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "Valid", header: "Bearer cron-secret", wantStatus: http.StatusOK},
		{name: "Wrong", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "NoScheme", header: "cron-secret", wantStatus: http.StatusUnauthorized},
		{name: "Missing", wantStatus: http.StatusUnauthorized},
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/verify-subscriptions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			guard(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
