package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
)

// Store appends provider events to the audit tables. Rows are never updated
// or deleted.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AppendSubscriptionEvent(ctx context.Context, ev entitlement.SubscriptionEvent) error {
	query := `
		INSERT INTO subscription_events (customer_id, customer_name, customer_email, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query,
		ev.CustomerID,
		ev.CustomerName,
		ev.CustomerEmail,
		string(ev.Payload),
	); err != nil {
		return fmt.Errorf("inserting subscription event: %w", err)
	}

	return nil
}

func (s *Store) AppendWebhookLog(ctx context.Context, entry entitlement.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (event_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query,
		entry.EventID,
		entry.EventType,
		string(entry.Payload),
	); err != nil {
		return fmt.Errorf("inserting webhook log: %w", err)
	}

	return nil
}
