package account

import (
	"context"
	"log/slog"
)

// LogNotifier writes outgoing account emails to the structured log instead of
// delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, acct *Account, resetLink string) error {
	n.logger.InfoContext(ctx, "password reset requested",
		"account_id", acct.ID,
		"email", acct.Email,
		"reset_link", resetLink,
	)

	return nil
}
