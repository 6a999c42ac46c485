package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
)

const (
	APIKeyHeader = "API_KEY"
	bearerPrefix = "Bearer "
)

//go:generate mockgen -source=middleware.go -destination=accounts_mock.go -package=auth
type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*account.Account, error)
}

type Middleware struct {
	accounts Accounts
	issuer   *Issuer
	now      func() time.Time
}

func NewMiddleware(accounts Accounts, issuer *Issuer) *Middleware {
	return &Middleware{accounts: accounts, issuer: issuer, now: time.Now}
}

// RequireCaller resolves the caller from the API_KEY header or, failing
// that, from a bearer session token.
func (m *Middleware) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(APIKeyHeader); key != "" {
			acct, err := m.accounts.GetByAPIKey(r.Context(), key)
			if err != nil {
				m.reject(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))

			return
		}

		m.RequireSession(next).ServeHTTP(w, r)
	})
}

// RequireSession only accepts a bearer session token.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, _, err := m.issuer.Validate(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		acct, err := m.accounts.Get(r.Context(), id)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))
	})
}

// RequireEntitlement lets through only callers with paid access. It must run
// after RequireCaller or RequireSession.
func (m *Middleware) RequireEntitlement(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := AccountFrom(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !acct.Entitlement.HasAccess(m.now()) {
			response.Error(w, http.StatusForbidden, "an active subscription is required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, account.ErrNotFound) {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	slog.Error("failed to resolve caller", "path", r.URL.Path, "error", err)
	response.Error(w, http.StatusInternalServerError, "internal error")
}

// RequireSecret guards machine endpoints with a shared bearer secret.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				response.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))

	return token, token != ""
}
