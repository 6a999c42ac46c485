package billing

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/billing"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
)

const (
	nameHeader          = "name"
	emailHeader         = "email"
	trialFinishedHeader = "stripe_testing_subscription_finished"
	CustomerIDHeader    = "stripe_customer_id"
)

type Handler struct {
	svc *billing.Service
}

func NewHandler(svc *billing.Service) *Handler {
	return &Handler{svc: svc}
}

// PublicRoutes registers the checkout entry point, reachable before signup.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/checkout", h.checkout)
}

// Routes registers the endpoints acting on the session's account.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/billing-portal", h.portal)
}

// checkout starts a hosted subscription checkout described by request headers.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	trialFinished, _ := strconv.ParseBool(r.Header.Get(trialFinishedHeader))

	url, err := h.svc.StartSubscription(r.Context(), billing.StartParams{
		Name:          r.Header.Get(nameHeader),
		Email:         r.Header.Get(emailHeader),
		TrialFinished: trialFinished,
		CustomerID:    r.Header.Get(CustomerIDHeader),
	})
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"stripe_checkout_url": url})
}

// portal opens the billing portal for the session's own customer. A customer
// id header naming anyone else is refused.
func (h *Handler) portal(w http.ResponseWriter, r *http.Request) {
	acct, ok := auth.AccountFrom(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	customerID := acct.CustomerID()
	if customerID == "" {
		response.Error(w, http.StatusBadRequest, "account has no billing customer")
		return
	}

	if requested := r.Header.Get(CustomerIDHeader); requested != "" && requested != customerID {
		response.Error(w, http.StatusForbidden, "customer does not belong to this account")
		return
	}

	url, err := h.svc.BillingPortal(r.Context(), customerID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success":                           true,
		"stripe_billing_portal_session_url": url,
	})
}

