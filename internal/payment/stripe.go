package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// StripeProvider creates Stripe Checkout Sessions. Outbound calls are
// throttled so a burst of checkouts cannot exhaust the API quota.
type StripeProvider struct {
	api     *client.API
	limiter *rate.Limiter
}

// NewStripeProvider builds a provider for key. backends may be nil to use
// Stripe's default endpoints.
func NewStripeProvider(key string, perSec float64, backends *stripe.Backends) *StripeProvider {
	if perSec <= 0 {
		perSec = 5
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return &StripeProvider{
		api:     client.New(key, backends),
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	ctx, span := otel.Tracer("totembo/payment").Start(ctx, "stripe.checkout_session.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.Int64("payment.amount", req.Amount),
		attribute.String("payment.currency", req.Currency),
	)

	if err := p.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "throttled")
		return Session{}, fmt.Errorf("stripe: wait: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ProductName),
				},
				UnitAmount: stripe.Int64(req.Amount),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stripe error")
		return Session{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	span.SetAttributes(attribute.String("payment.session_id", s.ID))
	return Session{ID: s.ID, URL: s.URL}, nil
}

// SessionStatus fetches the session and reports it paid only once Stripe
// has captured the payment.
func (p *StripeProvider) SessionStatus(ctx context.Context, sessionID string) (PaymentState, error) {
	ctx, span := otel.Tracer("totembo/payment").Start(ctx, "stripe.checkout_session.get")
	defer span.End()
	span.SetAttributes(attribute.String("payment.session_id", sessionID))

	if err := p.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "throttled")
		return PaymentState{}, fmt.Errorf("stripe: wait: %w", err)
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stripe error")
		return PaymentState{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	span.SetAttributes(attribute.String("payment.status", string(s.PaymentStatus)))
	return PaymentState{
		Paid:   s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Amount: s.AmountTotal,
	}, nil
}
