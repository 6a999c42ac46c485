// Package stripe implements the billing provider on top of stripe-go.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/MrJamesThe3rd/dinherin/internal/billing"
)

type Config struct {
	SecretKey string
	PriceID   string
	Locale    string
	// AppURL is where checkout redirects back to.
	AppURL string
	// BackendURL overrides the API host; empty means the live API.
	BackendURL string
}

type Provider struct {
	api     *client.API
	priceID string
	locale  string
	appURL  string
}

func New(cfg Config) *Provider {
	var backends *stripe.Backends

	if cfg.BackendURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:           stripe.String(cfg.BackendURL),
			LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	return &Provider{
		api:     client.New(cfg.SecretKey, backends),
		priceID: cfg.PriceID,
		locale:  cfg.Locale,
		appURL:  strings.TrimRight(cfg.AppURL, "/"),
	}
}

func (p *Provider) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}

	params.Context = ctx

	cus, err := p.api.Customers.New(params)
	if err != nil {
		logStripeError("CreateCustomer", err)
		return "", fmt.Errorf("stripe: creating customer: %w", err)
	}

	slog.Info("stripe customer created", "customer_id", cus.ID)

	return cus.ID, nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.Session, error) {
	sp := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(params.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Locale:     stripe.String(p.locale),
		SuccessURL: stripe.String(p.appURL + "/app"),
		CancelURL:  stripe.String(p.appURL),
	}

	if params.TrialDays > 0 {
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(params.TrialDays),
		}
	}

	sp.Context = ctx

	sess, err := p.api.CheckoutSessions.New(sp)
	if err != nil {
		logStripeError("CreateCheckoutSession", err)
		return nil, fmt.Errorf("stripe: creating checkout session: %w", err)
	}

	return &billing.Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *Provider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
		Locale:    stripe.String(p.locale),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		logStripeError("CreatePortalSession", err)
		return "", fmt.Errorf("stripe: creating portal session: %w", err)
	}

	return sess.URL, nil
}

// HasActiveSubscription reports whether the customer has a subscription that
// is active or still in its trial.
func (p *Provider) HasActiveSubscription(ctx context.Context, customerID string) (bool, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(100)
	params.Context = ctx

	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		switch iter.Subscription().Status {
		case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
			return true, nil
		}
	}

	if err := iter.Err(); err != nil {
		logStripeError("ListSubscriptions", err)
		return false, fmt.Errorf("stripe: listing subscriptions: %w", err)
	}

	return false, nil
}

func logStripeError(operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		slog.Error("stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)

		return
	}

	slog.Error("stripe operation failed", "operation", operation, "error", err)
}
