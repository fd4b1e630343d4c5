package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrProvider = errors.New("payment provider error")

// SessionRequest describes a hosted checkout for one order: a single line
// item charging Amount minor units of Currency.
type SessionRequest struct {
	OrderID     string
	Currency    string
	ProductName string
	Amount      int64
	SuccessURL  string
	CancelURL   string
}

// Session is the provider's answer: where to send the customer.
type Session struct {
	ID  string
	URL string
}

// PaymentState is the provider's view of a session. Amount is 0 when the
// provider does not report it.
type PaymentState struct {
	Paid   bool
	Amount int64
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	SessionStatus(ctx context.Context, sessionID string) (PaymentState, error)
}

// MinorUnits converts a decimal amount to cents, rounding half away from zero.
func MinorUnits(total decimal.Decimal) int64 {
	return total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// SandboxProvider completes every session immediately. Used when no
// gateway key is configured (development and tests).
type SandboxProvider struct{}

const sandboxPrefix = "sandbox_"

func (SandboxProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if req.Amount <= 0 {
		return Session{}, errors.New("sandbox: amount must be positive")
	}
	return Session{ID: sandboxPrefix + uuid.NewString(), URL: req.SuccessURL}, nil
}

// SessionStatus reports every session this provider issued as paid.
func (SandboxProvider) SessionStatus(ctx context.Context, sessionID string) (PaymentState, error) {
	if err := ctx.Err(); err != nil {
		return PaymentState{}, err
	}
	return PaymentState{Paid: strings.HasPrefix(sessionID, sandboxPrefix)}, nil
}
