package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered person. Accounts are never hard-deleted; a soft
// delete rewrites the email so it can be reused.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash *string // nil for provider-authenticated accounts
	APIKey       string

	Billing     Billing
	Entitlement Entitlement

	ResetToken          *string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// Billing links an account to its billing-provider objects.
type Billing struct {
	CustomerID        *string
	CheckoutSessionID *string
	PortalURL         *string
	HostedInvoiceURL  *string
	InvoicePDF        *string
}

func (a *Account) Deleted() bool {
	return a.DeletedAt != nil
}

func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// CustomerID returns the billing customer id or an empty string.
func (a *Account) CustomerID() string {
	if a.Billing.CustomerID == nil {
		return ""
	}

	return *a.Billing.CustomerID
}

// SetInvoice records the latest provider invoice links.
func (a *Account) SetInvoice(hostedURL, pdfURL string) {
	a.Billing.HostedInvoiceURL = optional(hostedURL)
	a.Billing.InvoicePDF = optional(pdfURL)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
