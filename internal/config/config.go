package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Dinherin"`
		Port int    `envconfig:"PORT" default:"8080"`
		// Public URL of the web client, used for provider redirect targets.
		URL string `envconfig:"APP_URL" default:"http://localhost:3000"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"dinherin"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	Stripe struct {
		SecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
		PriceID       string `envconfig:"STRIPE_PRICE_ID"`
		WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
		TrialDays     int64  `envconfig:"STRIPE_TRIAL_DAYS" default:"7"`
		Locale        string `envconfig:"STRIPE_LOCALE" default:"en"`
		// Answer failed webhook deliveries with 500 so the provider redelivers them.
		RetryOnFailure bool `envconfig:"STRIPE_WEBHOOK_RETRY_ON_FAILURE" default:"false"`
	}

	Auth struct {
		JWTSecret      string        `envconfig:"AUTH_JWT_SECRET"`
		TokenTTL       time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
		// APIKeyCacheTTL bounds how long another instance may keep serving a
		// deleted or lapsed account by API key. Zero disables the cache.
		APIKeyCacheTTL time.Duration `envconfig:"AUTH_API_KEY_CACHE_TTL" default:"5m"`
	}

	Cron struct {
		Secret   string        `envconfig:"CRON_SECRET"`
		Interval time.Duration `envconfig:"CRON_INTERVAL" default:"0"`
	}

	RateLimit struct {
		MaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
		Window      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) validate() error {
	var errs []error

	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}

	if c.Stripe.PriceID == "" {
		errs = append(errs, errors.New("STRIPE_PRICE_ID is required"))
	}

	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}

	if c.Cron.Secret == "" {
		errs = append(errs, errors.New("CRON_SECRET is required"))
	}

	return errors.Join(errs...)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
