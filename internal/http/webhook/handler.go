package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/dinherin/internal/billing/stripe"
	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
)

const (
	maxBodyBytes    = 64 << 10
	SignatureHeader = "Stripe-Signature"
)

type Handler struct {
	verifier *stripe.Verifier
	sync     *entitlement.Synchronizer
	// retryOnFailure answers failed events with 500 so the provider redelivers.
	retryOnFailure bool
}

func NewHandler(verifier *stripe.Verifier, sync *entitlement.Synchronizer, retryOnFailure bool) *Handler {
	return &Handler{verifier: verifier, sync: sync, retryOnFailure: retryOnFailure}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.receive)
}

type result struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		response.Error(w, http.StatusBadRequest, "unreadable payload")

		return
	}

	ev, err := h.verifier.Verify(payload, r.Header.Get(SignatureHeader))
	if err != nil {
		slog.Warn("rejected webhook delivery", "remote_addr", r.RemoteAddr, "error", err)
		response.Error(w, http.StatusBadRequest, "invalid signature")

		return
	}

	if err := h.sync.Handle(r.Context(), ev); err != nil {
		status := http.StatusOK
		if h.retryOnFailure {
			status = http.StatusInternalServerError
		}

		response.JSON(w, status, result{Success: false, Status: http.StatusInternalServerError})

		return
	}

	response.JSON(w, http.StatusOK, result{Success: true, Status: http.StatusOK})
}
