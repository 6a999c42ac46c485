package expense_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/expense"
	expensehttp "github.com/MrJamesThe3rd/dinherin/internal/http/expense"
)

var caller = &account.Account{ID: uuid.New(), Email: "ana@example.com"}

func newRouter(t *testing.T) (http.Handler, *expense.MockRepository) {
	t.Helper()

	repo := expense.NewMockRepository(gomock.NewController(t))
	h := expensehttp.NewHandler(expense.NewService(repo))

	r := chi.NewRouter()
	r.Route("/expenses", h.Routes)
	r.Get("/statistics", h.Statistics)
	r.Get("/categories", h.Categories)

	return r, repo
}

func do(router http.Handler, method, target, body string, as *account.Account) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if as != nil {
		req = req.WithContext(auth.WithAccount(req.Context(), as))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestHandler_Create(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setupMock  func(m *expense.MockRepository)
		wantStatus int
		wantBody   string
	}

	tests := []testCase{
		{
			name: "Success",
			body: `{"title":"Groceries","amount":4990,"category_id":"supermarket","date":"2024-03-14"}`,
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					CreateExpense(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e *expense.Expense) error {
						assert.Equal(t, "ana@example.com", e.OwnerEmail)
						assert.Equal(t, int64(4990), e.Amount)
						assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), e.Date)
						e.ID = uuid.New()

						return nil
					})
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"amount":4990`,
		},
		{
			name:       "MissingFields",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"details":[`,
		},
		{
			name:       "BadDate",
			body:       `{"title":"Bus","amount":250,"category_id":"transport","date":"14/03/2024"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"error":"invalid date"`,
		},
		{
			name:       "ImpossibleDateListedWithOtherFields",
			body:       `{"title":"","amount":0,"category_id":"","date":"2024-02-30"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"error":"invalid title, amount, category_id, date"`,
		},
		{
			name:       "MalformedJSON",
			body:       `{"title":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, repo := newRouter(t)
			if tc.setupMock != nil {
				tc.setupMock(repo)
			}

			rec := do(router, http.MethodPost, "/expenses/", tc.body, caller)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestHandler_RequiresCaller(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodGet, "/expenses/", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Ownership(t *testing.T) {
	id := uuid.New()
	foreign := &expense.Expense{ID: id, OwnerEmail: "bruno@example.com", Title: "Gift", Amount: 1000, Category: expense.CategoryGifts}

	type testCase struct {
		name   string
		method string
		body   string
	}

	tests := []testCase{
		{name: "Get", method: http.MethodGet},
		{name: "Put", method: http.MethodPut, body: `{"amount":1}`},
		{name: "Patch", method: http.MethodPatch, body: `{"title":"Mine now"}`},
		{name: "Delete", method: http.MethodDelete},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, repo := newRouter(t)
			repo.EXPECT().GetExpense(gomock.Any(), id).Return(foreign, nil)

			rec := do(router, tc.method, "/expenses/"+id.String(), tc.body, caller)

			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestHandler_NotFound(t *testing.T) {
	router, repo := newRouter(t)
	id := uuid.New()
	repo.EXPECT().GetExpense(gomock.Any(), id).Return(nil, expense.ErrNotFound)

	rec := do(router, http.MethodGet, "/expenses/"+id.String(), "", caller)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_InvalidID(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodGet, "/expenses/not-a-uuid", "", caller)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Update(t *testing.T) {
	router, repo := newRouter(t)
	id := uuid.New()
	own := &expense.Expense{ID: id, OwnerEmail: caller.Email, Title: "Bus", Amount: 250, Category: expense.CategoryTransport}

	repo.EXPECT().GetExpense(gomock.Any(), id).Return(own, nil)
	repo.EXPECT().
		UpdateExpense(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *expense.Expense) error {
			assert.Equal(t, int64(300), e.Amount)
			assert.Equal(t, "Bus", e.Title)

			return nil
		})

	rec := do(router, http.MethodPatch, "/expenses/"+id.String(), `{"amount":300}`, caller)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":300`)
}

func TestHandler_UpdateRejectsEmptyDate(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodPatch, "/expenses/"+uuid.NewString(), `{"date":""}`, caller)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date must be a valid date")
}

func TestHandler_List(t *testing.T) {
	router, repo := newRouter(t)
	date := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().
		ListExpenses(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f expense.ListFilter) ([]*expense.Expense, error) {
			assert.Equal(t, caller.Email, f.OwnerEmail)
			require.NotNil(t, f.Category)
			assert.Equal(t, expense.CategoryFood, *f.Category)
			require.NotNil(t, f.StartDate)
			assert.Equal(t, date, *f.StartDate)

			return []*expense.Expense{{ID: uuid.New(), Title: "Lunch", Amount: 1250, Category: expense.CategoryFood, Date: date}}, nil
		})

	rec := do(router, http.MethodGet, "/expenses/category/food?start_date=2024-03-14", "", caller)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success  bool `json:"success"`
		Total    int  `json:"total"`
		Expenses []struct {
			Amount       int64  `json:"amount"`
			AmountMajor  string `json:"amount_major"`
			CategoryName string `json:"category_name"`
			Date         string `json:"date"`
		} `json:"expenses"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Expenses, 1)
	assert.Equal(t, "12.5", body.Expenses[0].AmountMajor)
	assert.Equal(t, "Food", body.Expenses[0].CategoryName)
	assert.Equal(t, "2024-03-14", body.Expenses[0].Date)
}

func TestHandler_ListRejects(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodGet, "/expenses/?end_date=yesterday", "", caller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/expenses/category/casino", "", caller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Statistics(t *testing.T) {
	router, repo := newRouter(t)
	repo.EXPECT().
		CategoryTotals(gomock.Any(), gomock.Any()).
		Return(map[expense.Category]int64{expense.CategoryFood: 2000, expense.CategoryGifts: 1000}, nil)

	rec := do(router, http.MethodGet, "/statistics", "", caller)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{
		"success": true,
		"total": 3000,
		"categories": [
			{"category_id":"food","category_name":"Food","total":2000,"percentage":"66.7"},
			{"category_id":"gifts","category_name":"Gifts","total":1000,"percentage":"33.3"}
		]
	}`, rec.Body.String())
}

func TestHandler_Categories(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories []expense.CategoryInfo `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Categories, 11)
}
