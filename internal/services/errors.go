package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadCreds      = errors.New("invalid username or password")
	ErrUsernameTaken = errors.New("username already taken")
	ErrNotFound      = errors.New("not found")
	ErrOutOfStock    = errors.New("product out of stock")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrUnknownAction = errors.New("unknown cart action")
	ErrInvalidToken  = errors.New("invalid or expired payment token")
	ErrOrderState    = errors.New("order is not in a state that allows this")
	ErrForbidden     = errors.New("forbidden")

	ErrNotPaid        = errors.New("payment not completed")
	ErrAmountMismatch = fmt.Errorf("%w: cart differs from the amount charged", ErrOrderState)
)

// ValidationError carries one user facing message per invalid form field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string { return "validation: " + strings.Join(e.Messages, "; ") }

func (e *ValidationError) add(msg string) { e.Messages = append(e.Messages, msg) }

func (e *ValidationError) orNil() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}
