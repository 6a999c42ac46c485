package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	apiKeyPrefix       = "api_key_dinherin_"
	deletedEmailPrefix = "deleted_"
	resetTokenLength   = 32
	resetTokenTTL      = time.Hour
	passwordHashCost   = 12
	defaultAPIKeyTTL   = 5 * time.Minute
	minNameLength      = 4
	maxNameLength      = 16
	minPasswordLength  = 8
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, acct *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Account, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Account, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*Account, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*Account, error)
	ListSubscribed(ctx context.Context) ([]*Account, error)

	UpdateProfile(ctx context.Context, id uuid.UUID, name string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error
	UpdateResetToken(ctx context.Context, id uuid.UUID, token *string, expiresAt *time.Time) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, mutate Mutation) (*Account, error)
	UpsertCustomer(ctx context.Context, acct *Account) error
	SoftDelete(ctx context.Context, id uuid.UUID, deletedEmail string, at time.Time) error
}

// Mutation changes the billing linkage or entitlement of an account read
// under a row lock. Returning false leaves the stored row untouched.
type Mutation func(acct *Account) bool

// Notifier delivers account emails.
type Notifier interface {
	SendPasswordReset(ctx context.Context, acct *Account, resetLink string) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	appURL   string
	apiKeys  *cache.Cache
	now      func() time.Time
}

type Option func(s *Service)

// WithAPIKeyCacheTTL sets how long resolved API keys are served from memory.
// A ttl of zero or less turns the cache off.
func WithAPIKeyCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl <= 0 {
			s.apiKeys = nil
			return
		}

		s.apiKeys = cache.New(ttl, 2*ttl)
	}
}

func NewService(repo Repository, notifier Notifier, appURL string, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		appURL:   strings.TrimRight(appURL, "/"),
		apiKeys:  cache.New(defaultAPIKeyTTL, 2*defaultAPIKeyTTL),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type SignUpParams struct {
	Name     string
	Email    string
	Password string
}

func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*Account, error) {
	email := normalizeEmail(params.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Fields: []string{"email"}, Details: []string{"a valid email is required"}}
	}

	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Name:         strings.TrimSpace(params.Name),
		Email:        email,
		PasswordHash: &hash,
		APIKey:       NewAPIKey(),
		Entitlement:  Entitlement{State: StateNone},
	}
	if err := s.repo.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}

	return acct, nil
}

// Authenticate verifies an email/password pair. Soft-deleted accounts never
// match because their email has been rewritten and the store filters them.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if acct.Deleted() {
		return nil, ErrInvalidCredentials
	}

	if !acct.HasPassword() {
		return nil, ErrNoPassword
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return acct, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) GetByCustomerID(ctx context.Context, customerID string) (*Account, error) {
	return s.repo.GetByCustomerID(ctx, customerID)
}

// GetByCheckoutSession finds the account a completed checkout was recorded on.
func (s *Service) GetByCheckoutSession(ctx context.Context, sessionID string) (*Account, error) {
	return s.repo.GetByCheckoutSession(ctx, sessionID)
}

// GetByAPIKey resolves an API key, serving repeated lookups from memory.
// The cache is local to the process.
func (s *Service) GetByAPIKey(ctx context.Context, apiKey string) (*Account, error) {
	if s.apiKeys == nil {
		return s.repo.GetByAPIKey(ctx, apiKey)
	}

	if cached, ok := s.apiKeys.Get(apiKey); ok {
		acct := *cached.(*Account)
		return &acct, nil
	}

	acct, err := s.repo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	snapshot := *acct
	s.apiKeys.SetDefault(apiKey, &snapshot)

	return acct, nil
}

func (s *Service) ListSubscribed(ctx context.Context) ([]*Account, error) {
	return s.repo.ListSubscribed(ctx)
}

// UpdateProfile validates and title-cases the display name before storing it.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return "", &ValidationError{
			Fields:  []string{"name"},
			Details: []string{fmt.Sprintf("name must be between %d and %d characters", minNameLength, maxNameLength)},
		}
	}

	formatted := cases.Title(language.Und).String(name)

	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateProfile(ctx, id, formatted); err != nil {
		return "", err
	}

	s.forget(acct)

	return formatted, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	return s.repo.UpdatePassword(ctx, id, hash)
}

func (s *Service) RegenerateAPIKey(ctx context.Context, id uuid.UUID) (string, error) {
	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return "", err
	}

	key := NewAPIKey()
	if err := s.repo.UpdateAPIKey(ctx, id, key); err != nil {
		return "", err
	}

	s.forget(acct)

	return key, nil
}

// Delete soft-deletes the account and frees its email for reuse.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	deletedEmail := fmt.Sprintf("%s%d_%s", deletedEmailPrefix, now.UnixMilli(), acct.Email)

	if err := s.repo.SoftDelete(ctx, id, deletedEmail, now); err != nil {
		return err
	}

	s.forget(acct)

	return nil
}

// RequestPasswordReset issues a reset token and hands the link to the
// notifier. Unknown emails succeed silently so the endpoint cannot be used to
// probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return fmt.Errorf("looking up account: %w", err)
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	expiresAt := s.now().Add(resetTokenTTL)

	if err := s.repo.UpdateResetToken(ctx, acct.ID, &token, &expiresAt); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)
	if err := s.notifier.SendPasswordReset(ctx, acct, link); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}

	return nil
}

func (s *Service) VerifyResetToken(ctx context.Context, token string) error {
	_, err := s.accountForResetToken(ctx, token)
	return err
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	acct, err := s.accountForResetToken(ctx, token)
	if err != nil {
		return err
	}

	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, acct.ID, hash); err != nil {
		return err
	}

	return s.repo.UpdateResetToken(ctx, acct.ID, nil, nil)
}

func (s *Service) accountForResetToken(ctx context.Context, token string) (*Account, error) {
	if len(token) != resetTokenLength {
		return nil, ErrInvalidResetToken
	}

	acct, err := s.repo.GetByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidResetToken
		}

		return nil, err
	}

	return acct, nil
}

// UpdateSubscription applies mutate to the current stored state of the
// account and persists the result. Concurrent updates of one account are
// serialized, so a mutation never overwrites changes it did not read.
func (s *Service) UpdateSubscription(ctx context.Context, id uuid.UUID, mutate Mutation) (*Account, error) {
	acct, err := s.repo.UpdateSubscription(ctx, id, mutate)
	if err != nil {
		return nil, err
	}

	s.forget(acct)

	return acct, nil
}

// UpsertCustomer links a billing customer to the account with the given
// email, creating a password-less account when none exists yet.
func (s *Service) UpsertCustomer(ctx context.Context, name, email, customerID string, trialFinished bool) (*Account, error) {
	acct := &Account{
		Name:        strings.TrimSpace(name),
		Email:       normalizeEmail(email),
		APIKey:      NewAPIKey(),
		Billing:     Billing{CustomerID: &customerID},
		Entitlement: Entitlement{State: StateNone, TrialFinished: trialFinished},
	}
	if err := s.repo.UpsertCustomer(ctx, acct); err != nil {
		return nil, err
	}

	s.forget(acct)

	return acct, nil
}

func (s *Service) forget(acct *Account) {
	if s.apiKeys != nil && acct != nil && acct.APIKey != "" {
		s.apiKeys.Delete(acct.APIKey)
	}
}

// NewAPIKey returns a fresh random API key.
func NewAPIKey() string {
	return apiKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return string(hash), nil
}

func validatePassword(password string) error {
	var upper, lower, digit, special bool

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			special = true
		}
	}

	var details []string

	if utf8.RuneCountInString(password) < minPasswordLength {
		details = append(details, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if !upper {
		details = append(details, "password must contain at least one uppercase letter")
	}

	if !lower {
		details = append(details, "password must contain at least one lowercase letter")
	}

	if !digit {
		details = append(details, "password must contain at least one number")
	}

	if !special {
		details = append(details, "password must contain at least one special character")
	}

	if len(details) > 0 {
		return &ValidationError{Fields: []string{"password"}, Details: details}
	}

	return nil
}
