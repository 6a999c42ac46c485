// Package response writes the JSON envelopes shared by every handler.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/billing"
	"github.com/MrJamesThe3rd/dinherin/internal/expense"
)

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, status int, msg string, details ...string) {
	JSON(w, status, errorBody{Error: msg, Details: details})
}

// Fail maps a service error onto its HTTP status. Errors without a mapping
// are logged and reported as a generic 500.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		accountErr *account.ValidationError
		expenseErr *expense.ValidationError
	)

	switch {
	case errors.As(err, &accountErr):
		Error(w, http.StatusBadRequest, accountErr.Error(), accountErr.Details...)
	case errors.As(err, &expenseErr):
		Error(w, http.StatusBadRequest, expenseErr.Error(), expenseErr.Details...)
	case errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, account.ErrInvalidResetToken),
		errors.Is(err, billing.ErrEmailRequired):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, account.ErrNoPassword):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, expense.ErrForbidden):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, expense.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
