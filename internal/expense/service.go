package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=expense
type Repository interface {
	CreateExpense(ctx context.Context, e *Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	ListExpenses(ctx context.Context, filter ListFilter) ([]*Expense, error)
	CategoryTotals(ctx context.Context, filter ListFilter) (map[Category]int64, error)
}

type Service struct {
	repo      Repository
	validator *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: newValidator()}
}

type CreateParams struct {
	Title    string   `json:"title" validate:"required"`
	Amount   int64    `json:"amount" validate:"gt=0"`
	Category Category `json:"category_id" validate:"required,category"`
	Date     string   `json:"date" validate:"required,day"`
}

// UpdateParams holds a partial update; nil fields are left unchanged.
type UpdateParams struct {
	Title    *string   `json:"title" validate:"omitnil,min=1"`
	Amount   *int64    `json:"amount" validate:"omitnil,gt=0"`
	Category *Category `json:"category_id" validate:"omitnil,category"`
	Date     *string   `json:"date" validate:"omitnil,day"`
}

type ListFilter struct {
	OwnerEmail string
	Category   *Category
	StartDate  *time.Time
	EndDate    *time.Time
}

func (s *Service) Create(ctx context.Context, ownerEmail string, params CreateParams) (*Expense, error) {
	params.Title = strings.TrimSpace(params.Title)
	if err := s.validate(params); err != nil {
		return nil, err
	}

	e := &Expense{
		OwnerEmail: ownerEmail,
		Title:      params.Title,
		Amount:     params.Amount,
		Category:   params.Category,
		Date:       mustParseDay(params.Date),
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

// Get returns the expense if it is owned by ownerEmail.
func (s *Service) Get(ctx context.Context, ownerEmail string, id uuid.UUID) (*Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.OwnerEmail != ownerEmail {
		return nil, ErrForbidden
	}

	return e, nil
}

func (s *Service) Update(ctx context.Context, ownerEmail string, id uuid.UUID, params UpdateParams) (*Expense, error) {
	if params.Title != nil {
		params.Title = new(strings.TrimSpace(*params.Title))
	}

	if err := s.validate(params); err != nil {
		return nil, err
	}

	e, err := s.Get(ctx, ownerEmail, id)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		e.Title = *params.Title
	}

	if params.Amount != nil {
		e.Amount = *params.Amount
	}

	if params.Category != nil {
		e.Category = *params.Category
	}

	if params.Date != nil {
		e.Date = mustParseDay(*params.Date)
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Delete(ctx context.Context, ownerEmail string, id uuid.UUID) error {
	if _, err := s.Get(ctx, ownerEmail, id); err != nil {
		return err
	}

	return s.repo.DeleteExpense(ctx, id)
}

// List returns the owner's expenses, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Expense, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, &ValidationError{
			Fields:  []string{"category"},
			Details: []string{"category must be one of the known categories"},
		}
	}

	return s.repo.ListExpenses(ctx, filter)
}

// ParseDay accepts a plain date or a full RFC 3339 timestamp and returns the
// calendar day in UTC.
func ParseDay(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
}

// mustParseDay is only called on input that passed the day rule.
func mustParseDay(s string) time.Time {
	t, _ := ParseDay(s)
	return t
}
