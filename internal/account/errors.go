package account

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPassword         = errors.New("account has no password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// ValidationError lists the input fields that were rejected.
type ValidationError struct {
	Fields  []string
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid " + strings.Join(e.Fields, ", ") + ": " + strings.Join(e.Details, "; ")
}
