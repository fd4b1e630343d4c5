package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrOutOfStock is returned by Take when fewer than the requested units remain.
var ErrOutOfStock = errors.New("out of stock")

// StockRepo keeps products.quantity, the number of units left to sell.
type StockRepo struct{ db *sqlx.DB }

func NewStockRepo(db *sqlx.DB) *StockRepo { return &StockRepo{db: db} }

// Qty returns current stock for a product.
// If the product does not exist, it returns sql.ErrNoRows from sqlx.Get.
func (r *StockRepo) Qty(productID string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT quantity FROM products WHERE id = ?`, productID)
	return qty, err
}

// Take atomically subtracts n units if enough stock exists.
func (r *StockRepo) Take(q DBTX, productID string, n int) error {
	res, err := q.Exec(`
		UPDATE products
		SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?
	`, n, productID, n)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrOutOfStock
	}
	return nil
}

// Put returns n units to stock. Deleted products are ignored.
func (r *StockRepo) Put(q DBTX, productID string, n int) error {
	_, err := q.Exec(`UPDATE products SET quantity = quantity + ? WHERE id = ?`, n, productID)
	return err
}

// Set overwrites the stock level (admin).
func (r *StockRepo) Set(productID string, qty int) error {
	res, err := r.db.Exec(`UPDATE products SET quantity = ? WHERE id = ?`, qty, productID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
