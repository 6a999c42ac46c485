package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/billing"
	"github.com/MrJamesThe3rd/dinherin/internal/metrics"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoiceFinalized    = "invoice.finalized"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventInvoicePaid         = "invoice.paid"
)

const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
)

//go:generate mockgen -source=synchronizer.go -destination=synchronizer_mock.go -package=entitlement
type Accounts interface {
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	GetByCustomerID(ctx context.Context, customerID string) (*account.Account, error)
	ListSubscribed(ctx context.Context) ([]*account.Account, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, mutate account.Mutation) (*account.Account, error)
}

type Provider interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	HasActiveSubscription(ctx context.Context, customerID string) (bool, error)
}

// AuditLog stores append-only copies of provider events.
type AuditLog interface {
	AppendSubscriptionEvent(ctx context.Context, ev SubscriptionEvent) error
	AppendWebhookLog(ctx context.Context, entry WebhookLog) error
}

type SubscriptionEvent struct {
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Payload       []byte
}

type WebhookLog struct {
	EventID   string
	EventType string
	Payload   []byte
}

// Synchronizer applies provider webhook events to account entitlements.
type Synchronizer struct {
	accounts Accounts
	provider Provider
	audit    AuditLog
	metrics  *metrics.Metrics
	appURL   string
}

func NewSynchronizer(accounts Accounts, provider Provider, audit AuditLog, m *metrics.Metrics, appURL string) *Synchronizer {
	return &Synchronizer{
		accounts: accounts,
		provider: provider,
		audit:    audit,
		metrics:  m,
		appURL:   strings.TrimRight(appURL, "/"),
	}
}

// Handle processes one verified event. The webhook log entry is written even
// when processing fails.
func (s *Synchronizer) Handle(ctx context.Context, ev *billing.Event) error {
	handled, err := s.dispatch(ctx, ev)

	entry := WebhookLog{EventID: ev.ID, EventType: ev.Type, Payload: ev.Payload}
	if logErr := s.audit.AppendWebhookLog(ctx, entry); logErr != nil {
		err = errors.Join(err, fmt.Errorf("appending webhook log: %w", logErr))
	}

	outcome := outcomeProcessed

	switch {
	case err != nil:
		outcome = outcomeFailed

		slog.Error("failed to handle webhook event", "event_id", ev.ID, "type", ev.Type, "error", err)
	case !handled:
		outcome = outcomeIgnored
	}

	s.metrics.WebhookEvent(ev.Type, outcome)

	return err
}

func (s *Synchronizer) dispatch(ctx context.Context, ev *billing.Event) (bool, error) {
	switch ev.Type {
	case EventCheckoutCompleted:
		return true, s.checkoutCompleted(ctx, ev)
	case EventInvoiceFinalized:
		return true, s.invoiceFinalized(ctx, ev)
	case EventSubscriptionUpdated:
		return true, s.subscriptionUpdated(ctx, ev)
	case EventInvoicePaid:
		return true, s.invoicePaid(ctx, ev)
	default:
		return false, nil
	}
}

func (s *Synchronizer) checkoutCompleted(ctx context.Context, ev *billing.Event) error {
	var obj checkoutSessionObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("decoding checkout session: %w", err)
	}

	if obj.CustomerDetails == nil || obj.CustomerDetails.Email == "" {
		return errors.New("checkout session has no customer email")
	}

	acct, err := s.accounts.GetByEmail(ctx, obj.CustomerDetails.Email)
	if err != nil {
		return fmt.Errorf("finding account for checkout %s: %w", obj.ID, err)
	}

	return s.update(ctx, acct.ID, func(a *account.Account) bool {
		a.Billing.CheckoutSessionID = &obj.ID
		return true
	})
}

// invoiceFinalized starts or renews a paid period. Zero-amount invoices
// belong to trials and are handled on payment instead.
func (s *Synchronizer) invoiceFinalized(ctx context.Context, ev *billing.Event) error {
	var obj invoiceObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("decoding invoice: %w", err)
	}

	if obj.AmountPaid == nil || *obj.AmountPaid <= 0 {
		return nil
	}

	period, err := obj.period()
	if err != nil {
		return err
	}

	acct, err := s.accounts.GetByEmail(ctx, obj.CustomerEmail)
	if err != nil {
		return fmt.Errorf("finding account for invoice: %w", err)
	}

	return s.update(ctx, acct.ID, func(a *account.Account) bool {
		a.Billing.CustomerID = &obj.Customer
		a.SetInvoice(obj.HostedInvoiceURL, obj.InvoicePDF)
		a.Entitlement.Activate(period)

		return true
	})
}

func (s *Synchronizer) subscriptionUpdated(ctx context.Context, ev *billing.Event) error {
	var obj subscriptionObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("decoding subscription: %w", err)
	}

	acct, err := s.accounts.GetByCustomerID(ctx, obj.Customer)
	if err != nil {
		return fmt.Errorf("finding account for customer %s: %w", obj.Customer, err)
	}

	return s.update(ctx, acct.ID, func(a *account.Account) bool {
		switch {
		case obj.cancels():
			a.Entitlement.Cancel(obj.cancellation())
		case a.Entitlement.State == account.StateCanceling && obj.live():
			a.Entitlement.Resume()
		default:
			slog.Info("subscription updated without cancellation", "customer_id", obj.Customer, "status", obj.Status)
			return false
		}

		return true
	})
}

// invoicePaid refreshes the portal link and starts the trial for
// zero-amount invoices. Every paid invoice is kept in the subscription log.
func (s *Synchronizer) invoicePaid(ctx context.Context, ev *billing.Event) error {
	var obj invoiceObject
	if err := json.Unmarshal(ev.Object, &obj); err != nil {
		return fmt.Errorf("decoding invoice: %w", err)
	}

	record := SubscriptionEvent{
		CustomerID:    obj.Customer,
		CustomerEmail: obj.CustomerEmail,
		Payload:       ev.Payload,
	}
	if obj.CustomerName != nil {
		record.CustomerName = *obj.CustomerName
	}

	if err := s.audit.AppendSubscriptionEvent(ctx, record); err != nil {
		return fmt.Errorf("appending subscription event: %w", err)
	}

	acct, err := s.accounts.GetByEmail(ctx, obj.CustomerEmail)
	if err != nil {
		return fmt.Errorf("finding account for invoice: %w", err)
	}

	portalURL, err := s.provider.CreatePortalSession(ctx, obj.Customer, s.appURL+"/dashboard")
	if err != nil {
		return fmt.Errorf("creating portal session: %w", err)
	}

	var trial *account.Period

	if obj.AmountPaid != nil && *obj.AmountPaid == 0 {
		period, err := obj.period()
		if err != nil {
			return err
		}

		trial = &period
	}

	return s.update(ctx, acct.ID, func(a *account.Account) bool {
		a.Billing.PortalURL = &portalURL

		if trial != nil {
			a.Billing.CustomerID = &obj.Customer
			a.SetInvoice(obj.HostedInvoiceURL, obj.InvoicePDF)
			a.Entitlement.StartTrial(*trial)
		}

		return true
	})
}

// update applies mutate to the stored account and records the resulting
// state transition.
func (s *Synchronizer) update(ctx context.Context, id uuid.UUID, mutate account.Mutation) error {
	var from, to account.State

	changed := false

	_, err := s.accounts.UpdateSubscription(ctx, id, func(a *account.Account) bool {
		from = a.Entitlement.State
		changed = mutate(a)
		to = a.Entitlement.State

		return changed
	})
	if err != nil {
		return fmt.Errorf("saving entitlement: %w", err)
	}

	if changed {
		s.metrics.Transition(string(from), string(to))
	}

	return nil
}
