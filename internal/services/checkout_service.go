package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"totembo/internal/domain"
	"totembo/internal/metrics"
	"totembo/internal/payment"
	"totembo/internal/repos"
	"totembo/internal/telemetry"
	"totembo/internal/validate"
)

type CheckoutForm struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	Region    string
	Phone     string
}

type CheckoutView struct {
	Cart     domain.Cart
	Customer domain.Customer
}

type CheckoutService struct {
	DB        *sqlx.DB
	Customers *repos.CustomerRepo
	Orders    *repos.OrderRepo
	Carts     *CartService
	Provider  payment.Provider
	Tokens    *payment.TokenSigner
	Metrics   *metrics.Metrics

	BaseURL     string
	Currency    string
	ProductName string
}

func (s *CheckoutService) Checkout(userID string) (CheckoutView, error) {
	cart, err := s.Carts.Info(userID)
	if err != nil {
		return CheckoutView{}, err
	}
	c, err := s.Customers.ByUser(userID)
	if err != nil {
		return CheckoutView{}, err
	}
	return CheckoutView{Cart: cart, Customer: c}, nil
}

func (f CheckoutForm) validate() (CheckoutForm, error) {
	var verr ValidationError
	var ok bool
	if f.FirstName, ok = validate.Name(f.FirstName); !ok {
		verr.add("Укажите имя.")
	}
	if f.LastName, ok = validate.Name(f.LastName); !ok {
		verr.add("Укажите фамилию.")
	}
	if f.Address, ok = validate.Text(f.Address, 300); !ok {
		verr.add("Укажите адрес доставки.")
	}
	if f.City, ok = validate.Name(f.City); !ok {
		verr.add("Укажите город.")
	}
	if f.Region, ok = validate.Name(f.Region); !ok {
		verr.add("Укажите регион.")
	}
	if f.Phone, ok = validate.Phone(f.Phone); !ok {
		verr.add("Укажите номер телефона.")
	}
	return f, verr.orNil()
}

// CreateSession stores the customer and shipping details, then asks the
// payment provider for a hosted checkout charging the whole cart as one
// line item. It returns the URL to redirect the customer to. The order
// stays OPEN until the payment is confirmed.
func (s *CheckoutService) CreateSession(ctx context.Context, userID string, form CheckoutForm) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "checkout.create_session")
	defer span.End()

	form, err := form.validate()
	if err != nil {
		return "", err
	}

	var cart domain.Cart
	err = repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		c, o, err := s.Carts.openOrder(tx, userID)
		if err != nil {
			return err
		}
		lines, err := s.Orders.Lines(tx, o.ID)
		if err != nil {
			return err
		}
		cart = domain.NewCart(o, lines)
		if cart.Empty() {
			return ErrEmptyCart
		}
		if err := s.Customers.UpdateNames(tx, c.ID, form.FirstName, form.LastName); err != nil {
			return err
		}
		return s.Orders.AddShipping(tx, domain.ShippingAddress{
			CustomerID: c.ID,
			OrderID:    o.ID,
			Address:    form.Address,
			City:       form.City,
			Region:     form.Region,
			Phone:      form.Phone,
		})
	})
	if err != nil {
		return "", err
	}

	amount := payment.MinorUnits(cart.TotalPrice)
	span.SetAttributes(
		attribute.String("order.id", cart.Order.ID),
		attribute.Int("order.items", cart.TotalQuantity),
		attribute.Int64("payment.amount", amount),
	)

	token, err := s.Tokens.Sign(cart.Order.ID, userID, amount)
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(s.BaseURL, "/")
	sess, err := s.Provider.CreateCheckoutSession(ctx, payment.SessionRequest{
		OrderID:     cart.Order.ID,
		Currency:    s.Currency,
		ProductName: s.ProductName,
		Amount:      amount,
		SuccessURL:  base + "/payment/success?token=" + url.QueryEscape(token),
		CancelURL:   base + "/checkout",
	})
	if err != nil {
		s.Metrics.CheckoutSession("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider")
		return "", fmt.Errorf("checkout session: %w", err)
	}
	if err := s.Orders.SetPaymentRef(s.DB, cart.Order.ID, sess.ID); err != nil {
		return "", err
	}
	s.Metrics.CheckoutSession("ok")
	return sess.URL, nil
}

// ConfirmPayment marks the order behind token as PAID, snapshotting its
// prices. The provider must report the order's session as paid, and the
// cart must still total the amount that was charged. The customer's next
// cart access starts a new OPEN order. Confirming an already paid order
// succeeds without changes.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, token string) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "checkout.confirm_payment")
	defer span.End()

	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	span.SetAttributes(
		attribute.String("order.id", claims.OrderID),
		attribute.Int64("payment.amount", claims.Amount),
	)

	owner, err := s.Orders.OwnerID(claims.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if owner != claims.Subject {
		return "", ErrInvalidToken
	}

	o, err := s.Orders.Get(claims.OrderID)
	if err != nil {
		return "", err
	}
	switch {
	case o.Status == domain.OrderPaid || o.Status == domain.OrderShipped:
		return o.ID, nil
	case o.Status != domain.OrderOpen || o.PaymentRef == "":
		return "", ErrOrderState
	}

	st, err := s.Provider.SessionStatus(ctx, o.PaymentRef)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider")
		return "", fmt.Errorf("payment status: %w", err)
	}
	if !st.Paid {
		return "", ErrNotPaid
	}
	if st.Amount != 0 && st.Amount != claims.Amount {
		return "", ErrAmountMismatch
	}

	var changed bool
	err = repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		cur, err := repos.OrderByID(tx, o.ID)
		if err != nil {
			return err
		}
		if cur.Status == domain.OrderPaid || cur.Status == domain.OrderShipped {
			return nil
		}
		if cur.Status != domain.OrderOpen || cur.PaymentRef != o.PaymentRef {
			return ErrOrderState
		}
		lines, err := s.Orders.Lines(tx, o.ID)
		if err != nil {
			return err
		}
		cart := domain.NewCart(cur, lines)
		if cart.Empty() || payment.MinorUnits(cart.TotalPrice) != claims.Amount {
			return ErrAmountMismatch
		}
		changed, err = s.Orders.MarkPaid(tx, o.ID)
		return err
	})
	if err != nil {
		return "", err
	}
	if changed {
		s.Metrics.PaymentConfirmed()
	}
	return o.ID, nil
}
