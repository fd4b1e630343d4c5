package services

import (
	"database/sql"
	"errors"
	"slices"

	"totembo/internal/domain"
	"totembo/internal/repos"
)

type OrderService struct {
	Orders    *repos.OrderRepo
	Customers *repos.CustomerRepo
}

func NewOrderService(orders *repos.OrderRepo, customers *repos.CustomerRepo) *OrderService {
	return &OrderService{Orders: orders, Customers: customers}
}

// OrderDetail is an order with its lines, totals and delivery address.
type OrderDetail struct {
	domain.Cart
	Shipping *domain.ShippingAddress
}

// History lists the user's orders other than the current cart.
func (s *OrderService) History(userID string) ([]repos.OrderSummary, error) {
	c, err := s.Customers.ByUser(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return []repos.OrderSummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Orders.ListByCustomer(c.ID)
}

// Detail returns an order for its owner or an admin.
func (s *OrderService) Detail(orderID string, viewer *domain.User) (OrderDetail, error) {
	owner, err := s.Orders.OwnerID(orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderDetail{}, ErrNotFound
	}
	if err != nil {
		return OrderDetail{}, err
	}
	if viewer == nil || (!viewer.IsAdmin() && owner != viewer.ID) {
		return OrderDetail{}, ErrForbidden
	}

	o, err := s.Orders.Get(orderID)
	if err != nil {
		return OrderDetail{}, err
	}
	lines, err := s.Orders.Lines(s.Orders.DB(), orderID)
	if err != nil {
		return OrderDetail{}, err
	}
	d := OrderDetail{Cart: domain.NewCart(o, lines)}
	a, err := s.Orders.Shipping(orderID)
	switch {
	case err == nil:
		d.Shipping = &a
	case !errors.Is(err, sql.ErrNoRows):
		return OrderDetail{}, err
	}
	return d, nil
}

func (s *OrderService) Latest(limit int) ([]repos.OrderSummary, error) {
	return s.Orders.ListLatest(limit)
}

// UpdateStatus is the admin transition. OPEN is reserved for carts.
func (s *OrderService) UpdateStatus(orderID, status string) error {
	if status == domain.OrderOpen || !slices.Contains(domain.OrderStatuses, status) {
		return &ValidationError{Messages: []string{"invalid status"}}
	}
	o, err := s.Orders.Get(orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if o.Status == domain.OrderOpen {
		return ErrOrderState
	}
	return s.Orders.UpdateStatus(orderID, status)
}
