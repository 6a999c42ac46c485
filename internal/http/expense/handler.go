package expense

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/expense"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
)

type Handler struct {
	svc *expense.Service
}

func NewHandler(svc *expense.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/category/{category}", h.listByCategory)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createExpenseRequest struct {
	Title    string           `json:"title"`
	Amount   int64            `json:"amount"`
	Category expense.Category `json:"category_id"`
	Date     string           `json:"date"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	e, err := h.svc.Create(r.Context(), caller.Email, expense.CreateParams{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
	})
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Expense created successfully",
		"expense": toResponse(e),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, r.URL.Query().Get("category"))
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, chi.URLParam(r, "category"))
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, category string) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r, caller.Email)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if category != "" {
		filter.Category = new(expense.Category(category))
	}

	expenses, err := h.svc.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"expenses": toResponseList(expenses),
		"total":    len(expenses),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	e, err := h.svc.Get(r.Context(), caller.Email, id)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "expense": toResponse(e)})
}

type updateExpenseRequest struct {
	Title    *string           `json:"title,omitempty"`
	Amount   *int64            `json:"amount,omitempty"`
	Category *expense.Category `json:"category_id,omitempty"`
	Date     *string           `json:"date,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	e, err := h.svc.Update(r.Context(), caller.Email, id, expense.UpdateParams{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
	})
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Expense updated successfully",
		"expense": toResponse(e),
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.Delete(r.Context(), caller.Email, id); err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Expense deleted successfully"})
}

// Statistics serves per-category totals for the caller.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r, caller.Email)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.svc.Statistics(r.Context(), filter)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, toStatisticsResponse(stats))
}

// Categories lists the fixed category catalog.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{"success": true, "categories": expense.Categories()})
}

func callerFrom(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	acct, ok := auth.AccountFrom(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
	}

	return acct, ok
}

func parseFilter(r *http.Request, ownerEmail string) (expense.ListFilter, error) {
	filter := expense.ListFilter{OwnerEmail: ownerEmail}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := expense.ParseDay(s)
		if err != nil {
			return filter, errors.New("invalid start_date, use YYYY-MM-DD")
		}

		filter.StartDate = new(t)
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := expense.ParseDay(s)
		if err != nil {
			return filter, errors.New("invalid end_date, use YYYY-MM-DD")
		}

		filter.EndDate = new(t)
	}

	return filter, nil
}
