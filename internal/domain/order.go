package domain

import "github.com/shopspring/decimal"

// Order statuses. The single OPEN order of a customer is the cart.
const (
	OrderOpen     = "OPEN"
	OrderPaid     = "PAID"
	OrderShipped  = "SHIPPED"
	OrderCanceled = "CANCELED"
)

var OrderStatuses = []string{OrderOpen, OrderPaid, OrderShipped, OrderCanceled}

type Order struct {
	ID         string `db:"id"`
	CustomerID string `db:"customer_id"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
	Shipping   bool   `db:"shipping"`
	Status     string `db:"status"`
	PaymentRef string `db:"payment_ref"`
	PaidAt     string `db:"paid_at"`
}

// OrderLine is an OrderProduct row joined with its product.
type OrderLine struct {
	ID        string          `db:"id"`
	OrderID   string          `db:"order_id"`
	ProductID string          `db:"product_id"`
	Title     string          `db:"title"`
	Slug      string          `db:"slug"`
	Image     string          `db:"image"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"` // snapshot once paid, live product price before
	AddedAt   string          `db:"added_at"`
}

func (l OrderLine) TotalPrice() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l OrderLine) Photo() string {
	if l.Image == "" {
		return PlaceholderImage
	}
	return "/media/" + l.Image
}

type ShippingAddress struct {
	ID         string `db:"id"`
	CustomerID string `db:"customer_id"`
	OrderID    string `db:"order_id"`
	Address    string `db:"address"`
	City       string `db:"city"`
	Region     string `db:"region"`
	Phone      string `db:"phone"`
	CreatedAt  string `db:"created_at"`
}

// Cart is an order with its lines and derived totals.
type Cart struct {
	Order         Order
	Products      []OrderLine
	TotalQuantity int
	TotalPrice    decimal.Decimal
}

func NewCart(o Order, lines []OrderLine) Cart {
	c := Cart{Order: o, Products: lines, TotalPrice: decimal.Zero}
	for _, l := range lines {
		c.TotalQuantity += l.Quantity
		c.TotalPrice = c.TotalPrice.Add(l.TotalPrice())
	}
	return c
}

func (c Cart) Empty() bool { return len(c.Products) == 0 }
