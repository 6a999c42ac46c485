package cron

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
)

type Handler struct {
	reconciler *entitlement.Reconciler
	now        func() time.Time
}

func NewHandler(reconciler *entitlement.Reconciler) *Handler {
	return &Handler{reconciler: reconciler, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/verify-subscriptions", h.verifySubscriptions)
}

type verifyResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	UpdatedUsers int       `json:"updatedUsers"`
	Timestamp    time.Time `json:"timestamp"`
}

func (h *Handler) verifySubscriptions(w http.ResponseWriter, r *http.Request) {
	updated, err := h.reconciler.Verify(r.Context())
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, verifyResponse{
		Success:      true,
		Message:      "Subscriptions verified",
		UpdatedUsers: updated,
		Timestamp:    h.now().UTC(),
	})
}
