package repos

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"totembo/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// sqliteTime is the layout of CURRENT_TIMESTAMP.
const sqliteTime = "2006-01-02 15:04:05"

const orderCols = `o.id, COALESCE(o.customer_id,'') AS customer_id, COALESCE(o.created_at,'') AS created_at,
    COALESCE(o.updated_at,'') AS updated_at, o.shipping, o.status,
    COALESCE(o.payment_ref,'') AS payment_ref, COALESCE(o.paid_at,'') AS paid_at`

// linePrice is the snapshot once the order left OPEN, the live price before.
// A deleted product counts as 0.
const linePrice = `CASE WHEN o.status = 'OPEN' THEN COALESCE(p.price, 0)
                        ELSE COALESCE(op.unit_price, p.price, 0) END`

// ---------- Admin/profile list summary ----------
type OrderSummary struct {
	domain.Order
	Customer string          `db:"customer"`
	Items    int             `db:"items"`
	Total    decimal.Decimal `db:"total"`
}

const summaryQuery = `
	SELECT ` + orderCols + `,
	       COALESCE(u.username, '') AS customer,
	       COALESCE((SELECT SUM(op.quantity) FROM order_products op WHERE op.order_id = o.id), 0) AS items,
	       COALESCE((SELECT SUM(op.quantity * ` + linePrice + `)
	                 FROM order_products op LEFT JOIN products p ON p.id = op.product_id
	                 WHERE op.order_id = o.id), 0) AS total
	FROM orders o
	LEFT JOIN customers c ON c.id = o.customer_id
	LEFT JOIN users u ON u.id = c.user_id`

// EnsureOpen returns the customer's OPEN order (the cart), creating one if needed.
func (r *OrderRepo) EnsureOpen(q DBTX, customerID string) (domain.Order, error) {
	var o domain.Order
	err := q.Get(&o, `SELECT `+orderCols+` FROM orders o
	  WHERE o.customer_id = ? AND o.status = 'OPEN'
	  ORDER BY o.created_at DESC LIMIT 1`, customerID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, err
	}
	id := uuid.NewString()
	if _, err := q.Exec(`
	  INSERT INTO orders(id, customer_id, status, created_at, updated_at)
	  VALUES(?, ?, 'OPEN', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, id, customerID); err != nil {
		return domain.Order{}, err
	}
	err = q.Get(&o, `SELECT `+orderCols+` FROM orders o WHERE o.id = ?`, id)
	return o, err
}

// Lines returns the order's lines joined with their products.
func (r *OrderRepo) Lines(q DBTX, orderID string) ([]domain.OrderLine, error) {
	out := []domain.OrderLine{}
	err := q.Select(&out, `
	  SELECT op.id, op.order_id, COALESCE(op.product_id,'') AS product_id,
	         COALESCE(p.title,'') AS title, COALESCE(p.slug,'') AS slug,
	         COALESCE((SELECT g.image FROM gallery g WHERE g.product_id = p.id ORDER BY g.id LIMIT 1),'') AS image,
	         op.quantity, `+linePrice+` AS price, COALESCE(op.added_at,'') AS added_at
	  FROM order_products op
	  JOIN orders o ON o.id = op.order_id
	  LEFT JOIN products p ON p.id = op.product_id
	  WHERE op.order_id = ?
	  ORDER BY op.added_at, op.rowid
	`, orderID)
	return out, err
}

// LineQty is the quantity of productID in the order, 0 without a line.
func (r *OrderRepo) LineQty(q DBTX, orderID, productID string) (int, error) {
	var n int
	err := q.Get(&n, `SELECT quantity FROM order_products WHERE order_id=? AND product_id=?`, orderID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (r *OrderRepo) SetLineQty(q DBTX, orderID, productID string, qty int) error {
	_, err := q.Exec(`
	  INSERT INTO order_products(id, product_id, order_id, quantity, added_at)
	  VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(order_id, product_id) DO UPDATE SET quantity = excluded.quantity
	`, uuid.NewString(), productID, orderID, qty)
	return err
}

func (r *OrderRepo) DeleteLine(q DBTX, orderID, productID string) error {
	_, err := q.Exec(`DELETE FROM order_products WHERE order_id=? AND product_id=?`, orderID, productID)
	return err
}

func (r *OrderRepo) DeleteLines(q DBTX, orderID string) error {
	_, err := q.Exec(`DELETE FROM order_products WHERE order_id=?`, orderID)
	return err
}

// Touch marks the cart as recently used.
func (r *OrderRepo) Touch(q DBTX, orderID string) error {
	_, err := q.Exec(`UPDATE orders SET updated_at=CURRENT_TIMESTAMP WHERE id=?`, orderID)
	return err
}

// SetPaymentRef records the provider session of an OPEN order.
func (r *OrderRepo) SetPaymentRef(q DBTX, orderID, ref string) error {
	_, err := q.Exec(`UPDATE orders SET payment_ref=?, updated_at=CURRENT_TIMESTAMP WHERE id=? AND status='OPEN'`, ref, orderID)
	return err
}

// MarkPaid moves an OPEN order to PAID and snapshots line prices.
// changed is false when the order was not OPEN (already confirmed).
func (r *OrderRepo) MarkPaid(q DBTX, orderID string) (changed bool, err error) {
	if _, err := q.Exec(`
	  UPDATE order_products
	  SET unit_price = COALESCE((SELECT price FROM products WHERE id = order_products.product_id), 0)
	  WHERE order_id = ? AND EXISTS (SELECT 1 FROM orders WHERE id = ? AND status = 'OPEN')
	`, orderID, orderID); err != nil {
		return false, err
	}
	res, err := q.Exec(`
	  UPDATE orders SET status='PAID', paid_at=CURRENT_TIMESTAMP, updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND status='OPEN'
	`, orderID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *OrderRepo) Get(orderID string) (domain.Order, error) {
	return OrderByID(r.db, orderID)
}

// OrderByID reads an order through q, which may be an open transaction.
func OrderByID(q DBTX, orderID string) (domain.Order, error) {
	var o domain.Order
	err := q.Get(&o, `SELECT `+orderCols+` FROM orders o WHERE o.id = ?`, orderID)
	return o, err
}

// OwnerID returns the user id behind the order's customer ("" once unlinked).
func (r *OrderRepo) OwnerID(orderID string) (string, error) {
	var id string
	err := r.db.Get(&id, `
	  SELECT COALESCE(c.user_id,'') FROM orders o
	  LEFT JOIN customers c ON c.id = o.customer_id
	  WHERE o.id = ?`, orderID)
	return id, err
}

// ListByCustomer returns the order history (everything but the cart).
func (r *OrderRepo) ListByCustomer(customerID string) ([]OrderSummary, error) {
	out := []OrderSummary{}
	err := r.db.Select(&out, summaryQuery+`
	  WHERE o.customer_id = ? AND o.status <> 'OPEN'
	  ORDER BY o.created_at DESC, o.rowid DESC`, customerID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []OrderSummary{}
	err := r.db.Select(&out, summaryQuery+`
	  ORDER BY o.created_at DESC, o.rowid DESC
	  LIMIT ?`, limit)
	return out, err
}

func (r *OrderRepo) UpdateStatus(id, status string) error {
	res, err := r.db.Exec(`UPDATE orders SET status = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// StaleOpen lists OPEN orders holding lines that were not touched since before.
func (r *OrderRepo) StaleOpen(before time.Time) ([]string, error) {
	var ids []string
	err := r.db.Select(&ids, `
	  SELECT o.id FROM orders o
	  WHERE o.status = 'OPEN' AND o.updated_at < ?
	    AND EXISTS (SELECT 1 FROM order_products op WHERE op.order_id = o.id)
	  ORDER BY o.updated_at
	`, before.UTC().Format(sqliteTime))
	return ids, err
}

func (r *OrderRepo) AddShipping(q DBTX, a domain.ShippingAddress) error {
	_, err := q.Exec(`
	  INSERT INTO shipping_addresses(id, customer_id, order_id, address, city, region, phone, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, uuid.NewString(), a.CustomerID, a.OrderID, a.Address, a.City, a.Region, a.Phone)
	return err
}

// Shipping returns the latest address recorded for the order.
func (r *OrderRepo) Shipping(orderID string) (domain.ShippingAddress, error) {
	var a domain.ShippingAddress
	err := r.db.Get(&a, `
	  SELECT id, COALESCE(customer_id,'') AS customer_id, COALESCE(order_id,'') AS order_id,
	         address, city, region, phone, COALESCE(created_at,'') AS created_at
	  FROM shipping_addresses
	  WHERE order_id = ?
	  ORDER BY created_at DESC, rowid DESC
	  LIMIT 1
	`, orderID)
	return a, err
}

// DB returns the pool for read paths outside a transaction.
func (r *OrderRepo) DB() *sqlx.DB { return r.db }
