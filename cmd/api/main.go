package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
	accountStore "github.com/MrJamesThe3rd/dinherin/internal/account/store"
	"github.com/MrJamesThe3rd/dinherin/internal/auth"
	"github.com/MrJamesThe3rd/dinherin/internal/billing"
	"github.com/MrJamesThe3rd/dinherin/internal/billing/stripe"
	"github.com/MrJamesThe3rd/dinherin/internal/config"
	"github.com/MrJamesThe3rd/dinherin/internal/database"
	"github.com/MrJamesThe3rd/dinherin/internal/entitlement"
	entitlementStore "github.com/MrJamesThe3rd/dinherin/internal/entitlement/store"
	"github.com/MrJamesThe3rd/dinherin/internal/expense"
	expenseStore "github.com/MrJamesThe3rd/dinherin/internal/expense/store"
	dinherinHttp "github.com/MrJamesThe3rd/dinherin/internal/http"
	accountHandler "github.com/MrJamesThe3rd/dinherin/internal/http/account"
	billingHandler "github.com/MrJamesThe3rd/dinherin/internal/http/billing"
	cronHandler "github.com/MrJamesThe3rd/dinherin/internal/http/cron"
	expenseHandler "github.com/MrJamesThe3rd/dinherin/internal/http/expense"
	webhookHandler "github.com/MrJamesThe3rd/dinherin/internal/http/webhook"
	"github.com/MrJamesThe3rd/dinherin/internal/metrics"
	"github.com/MrJamesThe3rd/dinherin/internal/ratelimit"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	m := metrics.New()

	provider := stripe.New(stripe.Config{
		SecretKey: cfg.Stripe.SecretKey,
		PriceID:   cfg.Stripe.PriceID,
		Locale:    cfg.Stripe.Locale,
		AppURL:    cfg.App.URL,
	})

	var (
		accountService = account.NewService(
			accountStore.New(db),
			account.NewLogNotifier(slog.Default()),
			cfg.App.URL,
			account.WithAPIKeyCacheTTL(cfg.Auth.APIKeyCacheTTL),
		)
		expenseService = expense.NewService(expenseStore.New(db))
		billingService = billing.NewService(provider, accountService, cfg.App.URL, cfg.Stripe.TrialDays)
		synchronizer   = entitlement.NewSynchronizer(accountService, provider, entitlementStore.New(db), m, cfg.App.URL)
		reconciler     = entitlement.NewReconciler(accountService, provider, m)
		issuer         = auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.App.Name)
	)

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	router := dinherinHttp.New(dinherinHttp.Handlers{
		Account: accountHandler.NewHandler(accountService, issuer),
		Expense: expenseHandler.NewHandler(expenseService),
		Billing: billingHandler.NewHandler(billingService),
		Webhook: webhookHandler.NewHandler(stripe.NewVerifier(cfg.Stripe.WebhookSecret), synchronizer, cfg.Stripe.RetryOnFailure),
		Cron:    cronHandler.NewHandler(reconciler),
	}, dinherinHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CronSecret:     cfg.Cron.Secret,
		Auth:           auth.NewMiddleware(accountService, issuer),
		Limiter:        limiter,
		Metrics:        m,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "port", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		slog.Info("shutting down server")

		return server.Shutdown(shutdownCtx)
	})

	if cfg.Cron.Interval > 0 {
		g.Go(func() error {
			slog.Info("starting subscription reconciliation loop", "interval", cfg.Cron.Interval)
			return reconciler.Run(ctx, cfg.Cron.Interval)
		})
	}

	return g.Wait()
}

// newLimiter shares counters through Redis when an address is configured and
// keeps them in process otherwise.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, func()) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemory(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	slog.Info("using redis rate limiter", "addr", cfg.Redis.Addr)

	return ratelimit.NewRedis(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window), func() {
		if err := client.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
}
