package http

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/http/account"
	"github.com/MrJamesThe3rd/dinherin/internal/http/billing"
	"github.com/MrJamesThe3rd/dinherin/internal/http/cron"
	"github.com/MrJamesThe3rd/dinherin/internal/http/expense"
	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
	"github.com/MrJamesThe3rd/dinherin/internal/http/webhook"
	"github.com/MrJamesThe3rd/dinherin/internal/metrics"
	"github.com/MrJamesThe3rd/dinherin/internal/ratelimit"
)

type Handlers struct {
	Account *account.Handler
	Expense *expense.Handler
	Billing *billing.Handler
	Webhook *webhook.Handler
	Cron    *cron.Handler
}

type Options struct {
	AllowedOrigins []string
	CronSecret     string
	Auth           *auth.Middleware
	Limiter        ratelimit.Limiter
	Metrics        *metrics.Metrics
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			auth.APIKeyHeader,
			account.CheckoutSessionHeader,
			"name",
			"email",
			"stripe_testing_subscription_finished",
			billing.CustomerIDHeader,
		},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", opts.Metrics.Handler())

	limit := ratelimit.Middleware(opts.Limiter, callerKey, opts.Metrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", h.Expense.Categories)

		r.Route("/webhook", h.Webhook.Routes)

		r.Route("/cron", func(r chi.Router) {
			r.Use(auth.RequireSecret(opts.CronSecret))
			h.Cron.Routes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(limit)
			h.Billing.PublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.RequireSession)
			h.Billing.Routes(r)
		})

		r.Route("/account", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limit)
				h.Account.PublicRoutes(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(opts.Auth.RequireSession)
				h.Account.Routes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.RequireCaller)
			r.Use(limit)
			r.Use(opts.Auth.RequireEntitlement)

			r.Route("/expenses", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				h.Expense.Routes(r)
			})

			r.Get("/statistics", h.Expense.Statistics)
		})
	})

	return router
}

// callerKey counts identified callers per account and everyone else per
// client address.
func callerKey(r *http.Request) string {
	if acct, ok := auth.AccountFrom(r.Context()); ok {
		return "account:" + acct.ID.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	return "ip:" + host
}
