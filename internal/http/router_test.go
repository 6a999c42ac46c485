package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/billing"
	"github.com/MrJamesThe3rd/dinherin/internal/billing/stripe"
	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
	"github.com/MrJamesThe3rd/dinherin/internal/expense"
	dinherinhttp "github.com/MrJamesThe3rd/dinherin/internal/http"
	accounthttp "github.com/MrJamesThe3rd/dinherin/internal/http/account"
	billinghttp "github.com/MrJamesThe3rd/dinherin/internal/http/billing"
	cronhttp "github.com/MrJamesThe3rd/dinherin/internal/http/cron"
	expensehttp "github.com/MrJamesThe3rd/dinherin/internal/http/expense"
	webhookhttp "github.com/MrJamesThe3rd/dinherin/internal/http/webhook"
	"github.com/MrJamesThe3rd/dinherin/internal/metrics"
	"github.com/MrJamesThe3rd/dinherin/internal/ratelimit"
)

const cronSecret = "cron-s3cret"

type fixture struct {
	router   http.Handler
	callers  *auth.MockAccounts
	expenses *expense.MockRepository
}

func newFixture(t *testing.T, limit int) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := metrics.New()

	callers := auth.NewMockAccounts(ctrl)
	expenses := expense.NewMockRepository(ctrl)
	issuer := auth.NewIssuer("s3cret", time.Hour, "dinherin")

	accountSvc := account.NewService(account.NewMockRepository(ctrl), account.NewMockNotifier(ctrl), "https://app.example.com")
	billingSvc := billing.NewService(billing.NewMockProvider(ctrl), billing.NewMockAccounts(ctrl), "https://app.example.com", 7)

	var (
		entAccounts = entitlement.NewMockAccounts(ctrl)
		entProvider = entitlement.NewMockProvider(ctrl)
		sync        = entitlement.NewSynchronizer(entAccounts, entProvider, entitlement.NewMockAuditLog(ctrl), m, "https://app.example.com")
		reconciler  = entitlement.NewReconciler(entAccounts, entProvider, m)
	)

	router := dinherinhttp.New(dinherinhttp.Handlers{
		Account: accounthttp.NewHandler(accountSvc, issuer),
		Expense: expensehttp.NewHandler(expense.NewService(expenses)),
		Billing: billinghttp.NewHandler(billingSvc),
		Webhook: webhookhttp.NewHandler(stripe.NewVerifier("whsec_test"), sync, false),
		Cron:    cronhttp.NewHandler(reconciler),
	}, dinherinhttp.Options{
		AllowedOrigins: []string{"https://app.example.com"},
		CronSecret:     cronSecret,
		Auth:           auth.NewMiddleware(callers, issuer),
		Limiter:        ratelimit.NewMemory(limit, time.Minute),
		Metrics:        m,
	})

	return fixture{router: router, callers: callers, expenses: expenses}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func TestRouter_Public(t *testing.T) {
	f := newFixture(t, 10)

	type testCase struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}

	tests := []testCase{
		{name: "Health", target: "/healthz", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "Metrics", target: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
		{name: "Categories", target: "/api/v1/categories", wantStatus: http.StatusOK, wantBody: `"supermarket"`},
		{name: "UnknownRoute", target: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodGet, tc.target, nil))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestRouter_Guards(t *testing.T) {
	type testCase struct {
		name       string
		method     string
		target     string
		headers    map[string]string
		setupMock  func(f fixture)
		wantStatus int
	}

	withoutAccess := &account.Account{ID: uuid.New(), Email: "ana@example.com", Entitlement: account.Entitlement{State: account.StateCanceled}}
	subscribed := &account.Account{ID: uuid.New(), Email: "ana@example.com", Entitlement: account.Entitlement{State: account.StateActive}}

	tests := []testCase{
		{
			name:       "CronWithoutSecret",
			method:     http.MethodGet,
			target:     "/api/v1/cron/verify-subscriptions",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "CronWrongSecret",
			method:     http.MethodGet,
			target:     "/api/v1/cron/verify-subscriptions",
			headers:    map[string]string{"Authorization": "Bearer nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "ExpensesAnonymous",
			method:     http.MethodGet,
			target:     "/api/v1/expenses",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "ExpensesWithoutEntitlement",
			method:  http.MethodGet,
			target:  "/api/v1/expenses",
			headers: map[string]string{auth.APIKeyHeader: "api_key_dinherin_1"},
			setupMock: func(f fixture) {
				f.callers.EXPECT().GetByAPIKey(gomock.Any(), "api_key_dinherin_1").Return(withoutAccess, nil)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:    "ExpensesSubscribed",
			method:  http.MethodGet,
			target:  "/api/v1/expenses",
			headers: map[string]string{auth.APIKeyHeader: "api_key_dinherin_2"},
			setupMock: func(f fixture) {
				f.callers.EXPECT().GetByAPIKey(gomock.Any(), "api_key_dinherin_2").Return(subscribed, nil)
				f.expenses.EXPECT().ListExpenses(gomock.Any(), gomock.Any()).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "BillingPortalAnonymous",
			method:     http.MethodGet,
			target:     "/api/v1/billing-portal",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "AccountAnonymous",
			method:     http.MethodGet,
			target:     "/api/v1/account",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "WebhookUnsigned",
			method:     http.MethodPost,
			target:     "/api/v1/webhook",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 10)
			if tc.setupMock != nil {
				tc.setupMock(f)
			}

			var body io.Reader
			if tc.method == http.MethodPost {
				body = strings.NewReader("{}")
			}

			req := httptest.NewRequest(tc.method, tc.target, body)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tc.wantStatus, f.do(req).Code)
		})
	}
}

func TestRouter_RateLimitsPublicAccountRoutes(t *testing.T) {
	f := newFixture(t, 1)

	login := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/account/login", strings.NewReader("not json"))
		req.RemoteAddr = "203.0.113.7:5555"

		return f.do(req)
	}

	assert.Equal(t, http.StatusBadRequest, login().Code)

	rec := login()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newFixture(t, 10)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/expenses", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "API_KEY")

	rec := f.do(req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
