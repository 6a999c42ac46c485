package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

type accountResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	APIKey      string              `json:"api_key"`
	HasPassword bool                `json:"has_password"`
	CustomerID  *string             `json:"stripe_customer_id,omitempty"`
	PortalURL   *string             `json:"stripe_billing_portal_url,omitempty"`
	InvoiceURL  *string             `json:"stripe_hosted_invoice_url,omitempty"`
	InvoicePDF  *string             `json:"stripe_invoice_pdf,omitempty"`
	Entitlement entitlementResponse `json:"subscription"`
	CreatedAt   time.Time           `json:"created_at"`
}

type entitlementResponse struct {
	State               account.State `json:"state"`
	HasAccess           bool          `json:"has_access"`
	SomeActive          bool          `json:"some_subscription_active"`
	TrialActive         bool          `json:"testing_subscription"`
	TrialFinished       bool          `json:"testing_subscription_finished"`
	TrialStartAt        *time.Time    `json:"testing_subscription_start_at,omitempty"`
	TrialEndAt          *time.Time    `json:"testing_subscription_end_at,omitempty"`
	SubscriptionStartAt *time.Time    `json:"subscription_start_at,omitempty"`
	SubscriptionEndAt   *time.Time    `json:"subscription_end_at,omitempty"`
	Canceled            bool          `json:"canceled_subscription"`
	CancelReason        *string       `json:"subscription_canceled_reason,omitempty"`
	CancelAt            *time.Time    `json:"subscription_cancel_at,omitempty"`
	CanceledAt          *time.Time    `json:"subscription_canceled_at,omitempty"`
}

func toResponse(a *account.Account) accountResponse {
	e := a.Entitlement

	return accountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		APIKey:      a.APIKey,
		HasPassword: a.HasPassword(),
		CustomerID:  a.Billing.CustomerID,
		PortalURL:   a.Billing.PortalURL,
		InvoiceURL:  a.Billing.HostedInvoiceURL,
		InvoicePDF:  a.Billing.InvoicePDF,
		Entitlement: entitlementResponse{
			State:               e.State,
			HasAccess:           e.HasAccess(time.Now()),
			SomeActive:          e.SubscriptionActive,
			TrialActive:         e.TrialActive,
			TrialFinished:       e.TrialFinished,
			TrialStartAt:        e.TrialStartAt,
			TrialEndAt:          e.TrialEndAt,
			SubscriptionStartAt: e.SubscriptionStartAt,
			SubscriptionEndAt:   e.SubscriptionEndAt,
			Canceled:            e.Canceled,
			CancelReason:        e.CancelReason,
			CancelAt:            e.CancelAt,
			CanceledAt:          e.CanceledAt,
		},
		CreatedAt: a.CreatedAt,
	}
}
