package expense

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("expense not found")
	ErrForbidden = errors.New("expense belongs to another account")
)

// Expense is a single spending record. Amounts are integer cents.
type Expense struct {
	ID         uuid.UUID
	OwnerEmail string
	Title      string
	Amount     int64
	Category   Category
	Date       time.Time
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Major returns the amount in major currency units.
func (e *Expense) Major() decimal.Decimal {
	return decimal.New(e.Amount, -2)
}
