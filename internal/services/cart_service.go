package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
	applog "totembo/internal/log"
	"totembo/internal/metrics"
	"totembo/internal/repos"
	"totembo/internal/validate"
)

// CartService keeps a customer's OPEN order and product stock in step:
// every unit in a cart has been taken from stock.
type CartService struct {
	DB        *sqlx.DB
	Customers *repos.CustomerRepo
	Orders    *repos.OrderRepo
	Stock     *repos.StockRepo
	Metrics   *metrics.Metrics
}

func NewCartService(db *sqlx.DB, customers *repos.CustomerRepo, orders *repos.OrderRepo, stock *repos.StockRepo, m *metrics.Metrics) *CartService {
	return &CartService{DB: db, Customers: customers, Orders: orders, Stock: stock, Metrics: m}
}

func (s *CartService) openOrder(tx *sqlx.Tx, userID string) (domain.Customer, domain.Order, error) {
	c, err := s.Customers.Ensure(tx, userID)
	if err != nil {
		return domain.Customer{}, domain.Order{}, fmt.Errorf("customer: %w", err)
	}
	o, err := s.Orders.EnsureOpen(tx, c.ID)
	if err != nil {
		return domain.Customer{}, domain.Order{}, fmt.Errorf("open order: %w", err)
	}
	return c, o, nil
}

// Info returns the user's cart, creating the customer and OPEN order on first use.
func (s *CartService) Info(userID string) (domain.Cart, error) {
	var cart domain.Cart
	err := repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		_, o, err := s.openOrder(tx, userID)
		if err != nil {
			return err
		}
		lines, err := s.Orders.Lines(tx, o.ID)
		if err != nil {
			return err
		}
		cart = domain.NewCart(o, lines)
		return nil
	})
	return cart, err
}

// Apply adds or removes one unit of productID. Adding takes a unit from
// stock and fails with ErrOutOfStock when none is left; deleting returns it.
// Deleting a product that is not in the cart changes nothing.
func (s *CartService) Apply(userID, productID, action string) (domain.Cart, error) {
	action, ok := validate.Action(action)
	if !ok {
		s.Metrics.CartAction("unknown", "rejected")
		return domain.Cart{}, ErrUnknownAction
	}

	var cart domain.Cart
	err := repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		if _, err := repos.ProductByID(tx, productID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, o, err := s.openOrder(tx, userID)
		if err != nil {
			return err
		}
		qty, err := s.Orders.LineQty(tx, o.ID, productID)
		if err != nil {
			return err
		}

		switch action {
		case validate.ActionAdd:
			if err := s.Stock.Take(tx, productID, 1); err != nil {
				if errors.Is(err, repos.ErrOutOfStock) {
					return ErrOutOfStock
				}
				return err
			}
			if err := s.Orders.SetLineQty(tx, o.ID, productID, qty+1); err != nil {
				return err
			}
		case validate.ActionDelete:
			if qty == 0 {
				break
			}
			if err := s.Stock.Put(tx, productID, 1); err != nil {
				return err
			}
			if qty-1 <= 0 {
				err = s.Orders.DeleteLine(tx, o.ID, productID)
			} else {
				err = s.Orders.SetLineQty(tx, o.ID, productID, qty-1)
			}
			if err != nil {
				return err
			}
		}

		if err := s.Orders.Touch(tx, o.ID); err != nil {
			return err
		}
		lines, err := s.Orders.Lines(tx, o.ID)
		if err != nil {
			return err
		}
		cart = domain.NewCart(o, lines)
		return nil
	})

	switch {
	case err == nil:
		s.Metrics.CartAction(action, "ok")
	case errors.Is(err, ErrOutOfStock):
		s.Metrics.CartAction(action, "out_of_stock")
	default:
		s.Metrics.CartAction(action, "error")
	}
	return cart, err
}

// Release empties the cart and puts every unit back into stock.
// It returns the number of units released.
func (s *CartService) Release(userID string) (int, error) {
	var n int
	err := repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
		_, o, err := s.openOrder(tx, userID)
		if err != nil {
			return err
		}
		n, err = s.releaseOrder(tx, o.ID)
		return err
	})
	if err == nil {
		s.Metrics.CartAction("clear", "ok")
	}
	return n, err
}

func (s *CartService) releaseOrder(tx *sqlx.Tx, orderID string) (int, error) {
	lines, err := s.Orders.Lines(tx, orderID)
	if err != nil {
		return 0, err
	}
	units := 0
	for _, l := range lines {
		if l.ProductID != "" {
			if err := s.Stock.Put(tx, l.ProductID, l.Quantity); err != nil {
				return 0, err
			}
		}
		units += l.Quantity
	}
	if err := s.Orders.DeleteLines(tx, orderID); err != nil {
		return 0, err
	}
	return units, s.Orders.Touch(tx, orderID)
}

// ReleaseStale releases every non-empty OPEN order untouched since before.
// Carts used again in the meantime are skipped.
func (s *CartService) ReleaseStale(before time.Time) (int, error) {
	ids, err := s.Orders.StaleOpen(before)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, id := range ids {
		err := repos.WithTx(s.DB, func(tx *sqlx.Tx) error {
			o, err := repos.OrderByID(tx, id)
			if err != nil {
				return err
			}
			if o.Status != domain.OrderOpen || o.UpdatedAt >= before.UTC().Format("2006-01-02 15:04:05") {
				return nil
			}
			units, err := s.releaseOrder(tx, id)
			if err != nil {
				return err
			}
			released++
			applog.Info(nil, "cart.release_stale", map[string]any{"order": id, "units": units})
			return nil
		})
		if err != nil {
			return released, fmt.Errorf("release %s: %w", id, err)
		}
	}
	s.Metrics.CartsReleased(released)
	return released, nil
}
