package auth

import (
	"context"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

type contextKey struct{}

func WithAccount(ctx context.Context, acct *account.Account) context.Context {
	return context.WithValue(ctx, contextKey{}, acct)
}

// AccountFrom returns the caller resolved by one of the middlewares.
func AccountFrom(ctx context.Context) (*account.Account, bool) {
	acct, ok := ctx.Value(contextKey{}).(*account.Account)
	return acct, ok && acct != nil
}
