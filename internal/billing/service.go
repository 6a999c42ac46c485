package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

var ErrEmailRequired = errors.New("email is required")

//go:generate mockgen -source=service.go -destination=provider_mock.go -package=billing
type Provider interface {
	CreateCustomer(ctx context.Context, name, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	HasActiveSubscription(ctx context.Context, customerID string) (bool, error)
}

type Accounts interface {
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	UpsertCustomer(ctx context.Context, name, email, customerID string, trialFinished bool) (*account.Account, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, mutate account.Mutation) (*account.Account, error)
}

// CheckoutParams describes a subscription-mode checkout. A zero TrialDays
// starts billing immediately.
type CheckoutParams struct {
	CustomerID string
	TrialDays  int64
}

type Session struct {
	ID  string
	URL string
}

type Service struct {
	provider  Provider
	accounts  Accounts
	appURL    string
	trialDays int64
}

func NewService(provider Provider, accounts Accounts, appURL string, trialDays int64) *Service {
	return &Service{
		provider:  provider,
		accounts:  accounts,
		appURL:    strings.TrimRight(appURL, "/"),
		trialDays: trialDays,
	}
}

type StartParams struct {
	Name  string
	Email string
	// TrialFinished is set once the caller has been through a trial cycle.
	TrialFinished bool
	// CustomerID optionally names an existing provider customer.
	CustomerID string
}

// StartSubscription creates a hosted checkout and returns its URL. First-time
// subscribers get a trial; returning ones are billed right away.
func (s *Service) StartSubscription(ctx context.Context, params StartParams) (string, error) {
	if strings.TrimSpace(params.Email) == "" {
		return "", ErrEmailRequired
	}

	if !params.TrialFinished {
		return s.startTrial(ctx, params)
	}

	customerID, err := s.resolveCustomer(ctx, params)
	if err != nil {
		return "", err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{CustomerID: customerID})
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	return session.URL, nil
}

func (s *Service) startTrial(ctx context.Context, params StartParams) (string, error) {
	customerID, err := s.provider.CreateCustomer(ctx, params.Name, params.Email)
	if err != nil {
		return "", fmt.Errorf("creating customer: %w", err)
	}

	acct, err := s.accounts.UpsertCustomer(ctx, params.Name, params.Email, customerID, false)
	if err != nil {
		return "", fmt.Errorf("linking customer: %w", err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{CustomerID: customerID, TrialDays: s.trialDays})
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}

	recordSession := func(a *account.Account) bool {
		a.Billing.CheckoutSessionID = &session.ID
		return true
	}
	if _, err := s.accounts.UpdateSubscription(ctx, acct.ID, recordSession); err != nil {
		return "", fmt.Errorf("recording checkout session: %w", err)
	}

	return session.URL, nil
}

// resolveCustomer prefers the supplied customer id, then the one stored on
// the account, and creates a new customer as a last resort.
func (s *Service) resolveCustomer(ctx context.Context, params StartParams) (string, error) {
	if params.CustomerID != "" {
		return params.CustomerID, nil
	}

	acct, err := s.accounts.GetByEmail(ctx, params.Email)
	switch {
	case err == nil && acct.CustomerID() != "":
		return acct.CustomerID(), nil
	case err != nil && !errors.Is(err, account.ErrNotFound):
		return "", fmt.Errorf("looking up account: %w", err)
	}

	customerID, err := s.provider.CreateCustomer(ctx, params.Name, params.Email)
	if err != nil {
		return "", fmt.Errorf("creating customer: %w", err)
	}

	if _, err := s.accounts.UpsertCustomer(ctx, params.Name, params.Email, customerID, true); err != nil {
		return "", fmt.Errorf("linking customer: %w", err)
	}

	return customerID, nil
}

// BillingPortal opens a self-service portal session for the customer.
func (s *Service) BillingPortal(ctx context.Context, customerID string) (string, error) {
	url, err := s.provider.CreatePortalSession(ctx, customerID, s.appURL+"/profile")
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}

	return url, nil
}
