package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/metrics"
)

// Reconciler re-checks accounts flagged as subscribed against the provider.
type Reconciler struct {
	accounts Accounts
	provider Provider
	metrics  *metrics.Metrics
}

func NewReconciler(accounts Accounts, provider Provider, m *metrics.Metrics) *Reconciler {
	return &Reconciler{accounts: accounts, provider: provider, metrics: m}
}

// Verify downgrades every subscribed account the provider no longer reports
// as active and returns how many were changed. Accounts are checked one at a
// time; a failure on one is logged and skipped.
func (r *Reconciler) Verify(ctx context.Context) (int, error) {
	accts, err := r.accounts.ListSubscribed(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing subscribed accounts: %w", err)
	}

	updated := 0

	for _, acct := range accts {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		customerID := acct.CustomerID()
		if customerID == "" {
			continue
		}

		active, err := r.provider.HasActiveSubscription(ctx, customerID)
		if err != nil {
			r.metrics.ReconcileFailure()
			slog.Error("failed to verify subscription", "account_id", acct.ID, "customer_id", customerID, "error", err)

			continue
		}

		if active {
			continue
		}

		var (
			from    account.State
			changed bool
		)

		_, err = r.accounts.UpdateSubscription(ctx, acct.ID, func(a *account.Account) bool {
			if !sameSubscription(acct, a) {
				return false
			}

			from = a.Entitlement.State
			a.Entitlement.Lapse()
			changed = true

			return true
		})
		if err != nil {
			r.metrics.ReconcileFailure()
			slog.Error("failed to downgrade account", "account_id", acct.ID, "error", err)

			continue
		}

		if !changed {
			continue
		}

		r.metrics.Transition(string(from), string(account.StateCanceled))
		r.metrics.ReconcileDowngrade()
		slog.Info("downgraded account without active subscription", "account_id", acct.ID, "customer_id", customerID)

		updated++
	}

	return updated, nil
}

// sameSubscription reports whether current still holds the subscription that
// was listed, so a webhook applied in between is never reverted.
func sameSubscription(listed, current *account.Account) bool {
	l, c := listed.Entitlement, current.Entitlement

	return c.SubscriptionActive &&
		c.State == l.State &&
		current.CustomerID() == listed.CustomerID() &&
		sameTime(c.SubscriptionEndAt, l.SubscriptionEndAt) &&
		sameTime(c.TrialEndAt, l.TrialEndAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}

// Run calls Verify every interval until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.Verify(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("subscription reconciliation failed", "error", err)
				continue
			}

			slog.Info("subscription reconciliation completed", "updated", n)
		}
	}
}
