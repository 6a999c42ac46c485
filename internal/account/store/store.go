package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectAccountColumns = `
	id, name, email, password_hash, COALESCE(api_key, ''),
	stripe_customer_id, stripe_checkout_session_id, stripe_billing_portal_url,
	stripe_hosted_invoice_url, stripe_invoice_pdf,
	subscription_state, trial_active, trial_finished, trial_start_at, trial_end_at,
	subscription_active, subscription_start_at, subscription_end_at,
	subscription_canceled, subscription_canceled_feedback, subscription_canceled_reason,
	subscription_canceled_comment, subscription_cancel_at, subscription_canceled_at,
	reset_password_token, reset_password_token_expires_at,
	created_at, updated_at, deleted_at
`

// scanAccount reads a row laid out as selectAccountColumns.
func scanAccount(s scanner) (*account.Account, error) {
	var (
		a     account.Account
		state string
	)

	b := &a.Billing
	e := &a.Entitlement

	if err := s.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.APIKey,
		&b.CustomerID, &b.CheckoutSessionID, &b.PortalURL, &b.HostedInvoiceURL, &b.InvoicePDF,
		&state, &e.TrialActive, &e.TrialFinished, &e.TrialStartAt, &e.TrialEndAt,
		&e.SubscriptionActive, &e.SubscriptionStartAt, &e.SubscriptionEndAt,
		&e.Canceled, &e.CancelFeedback, &e.CancelReason, &e.CancelComment, &e.CancelAt, &e.CanceledAt,
		&a.ResetToken, &a.ResetTokenExpiresAt,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	); err != nil {
		return nil, err
	}

	e.State = account.State(state)

	return &a, nil
}

func (s *Store) getOne(ctx context.Context, op, where string, args ...any) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE ` + where

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (name, email, password_hash, api_key, subscription_state, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		a.Name,
		a.Email,
		a.PasswordHash,
		a.APIKey,
		a.Entitlement.State,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.getOne(ctx, "getting account", `id = $1 AND deleted_at IS NULL`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	return s.getOne(ctx, "getting account by email", `email = $1 AND deleted_at IS NULL`, email)
}

func (s *Store) GetByAPIKey(ctx context.Context, apiKey string) (*account.Account, error) {
	return s.getOne(ctx, "getting account by api key", `api_key = $1 AND deleted_at IS NULL`, apiKey)
}

func (s *Store) GetByCustomerID(ctx context.Context, customerID string) (*account.Account, error) {
	return s.getOne(ctx, "getting account by customer", `stripe_customer_id = $1 AND deleted_at IS NULL`, customerID)
}

func (s *Store) GetByCheckoutSession(ctx context.Context, sessionID string) (*account.Account, error) {
	return s.getOne(ctx, "getting account by checkout session", `stripe_checkout_session_id = $1 AND deleted_at IS NULL`, sessionID)
}

func (s *Store) GetByResetToken(ctx context.Context, token string, now time.Time) (*account.Account, error) {
	return s.getOne(ctx, "getting account by reset token",
		`reset_password_token = $1 AND reset_password_token_expires_at > $2 AND deleted_at IS NULL`, token, now)
}

// ListSubscribed returns every live account that currently holds an active
// subscription flag.
func (s *Store) ListSubscribed(ctx context.Context) ([]*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + `
		FROM accounts
		WHERE subscription_active = TRUE AND deleted_at IS NULL
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing subscribed accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return account.ErrNotFound
	}

	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, name string) error {
	return s.exec(ctx, "updating profile", `
		UPDATE accounts SET name = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`, name, id)
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.exec(ctx, "updating password", `
		UPDATE accounts SET password_hash = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`, passwordHash, id)
}

func (s *Store) UpdateAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error {
	return s.exec(ctx, "updating api key", `
		UPDATE accounts SET api_key = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`, apiKey, id)
}

func (s *Store) UpdateResetToken(ctx context.Context, id uuid.UUID, token *string, expiresAt *time.Time) error {
	return s.exec(ctx, "updating reset token", `
		UPDATE accounts SET reset_password_token = $1, reset_password_token_expires_at = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL`, token, expiresAt, id)
}

// UpdateSubscription locks the account row, hands the stored account to
// mutate and writes the billing and entitlement columns back in the same
// transaction.
func (s *Store) UpdateSubscription(ctx context.Context, id uuid.UUID, mutate account.Mutation) (*account.Account, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	a, err := scanAccount(dbTx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("locking account: %w", err)
	}

	if !mutate(a) {
		return a, nil
	}

	b := a.Billing
	e := a.Entitlement

	updateQuery := `
		UPDATE accounts SET
			stripe_customer_id = $1,
			stripe_checkout_session_id = $2,
			stripe_billing_portal_url = $3,
			stripe_hosted_invoice_url = $4,
			stripe_invoice_pdf = $5,
			subscription_state = $6,
			trial_active = $7,
			trial_finished = $8,
			trial_start_at = $9,
			trial_end_at = $10,
			subscription_active = $11,
			subscription_start_at = $12,
			subscription_end_at = $13,
			subscription_canceled = $14,
			subscription_canceled_feedback = $15,
			subscription_canceled_reason = $16,
			subscription_canceled_comment = $17,
			subscription_cancel_at = $18,
			subscription_canceled_at = $19,
			updated_at = NOW()
		WHERE id = $20`

	if _, err := dbTx.ExecContext(ctx, updateQuery,
		b.CustomerID, b.CheckoutSessionID, b.PortalURL, b.HostedInvoiceURL, b.InvoicePDF,
		e.State, e.TrialActive, e.TrialFinished, e.TrialStartAt, e.TrialEndAt,
		e.SubscriptionActive, e.SubscriptionStartAt, e.SubscriptionEndAt,
		e.Canceled, e.CancelFeedback, e.CancelReason, e.CancelComment, e.CancelAt, e.CanceledAt,
		a.ID,
	); err != nil {
		return nil, fmt.Errorf("updating subscription: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return a, nil
}

// UpsertCustomer inserts a password-less account for the email or, when one
// exists, attaches the customer id to it. The stored row is scanned back into a.
func (s *Store) UpsertCustomer(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (name, email, api_key, stripe_customer_id, subscription_state, trial_finished, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), accounts.name),
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			trial_finished = EXCLUDED.trial_finished,
			updated_at = NOW()
		RETURNING ` + selectAccountColumns

	stored, err := scanAccount(s.db.QueryRowContext(ctx, query,
		a.Name,
		a.Email,
		a.APIKey,
		a.Billing.CustomerID,
		a.Entitlement.State,
		a.Entitlement.TrialFinished,
	))
	if err != nil {
		return fmt.Errorf("upserting customer: %w", err)
	}

	*a = *stored

	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID, deletedEmail string, at time.Time) error {
	return s.exec(ctx, "deleting account", `
		UPDATE accounts SET email = $1, deleted_at = $2, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL`, deletedEmail, at, id)
}
