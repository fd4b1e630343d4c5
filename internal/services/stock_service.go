package services

import (
	"database/sql"
	"errors"

	"totembo/internal/domain"
	"totembo/internal/repos"
)

type StockService struct {
	Stock *repos.StockRepo
	Prods *repos.ProductRepo
}

func NewStockService(stock *repos.StockRepo, prods *repos.ProductRepo) *StockService {
	return &StockService{Stock: stock, Prods: prods}
}

// CheckAvailability converts qty → IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *StockService) CheckAvailability(slug string) (domain.Availability, error) {
	p, err := s.Prods.BySlug(slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Availability{}, ErrNotFound
	}
	if err != nil {
		return domain.Availability{}, err
	}
	return availability(p.Quantity), nil
}

func availability(qty int) domain.Availability {
	status := domain.StockOut
	switch {
	case qty >= 5:
		status = domain.StockIn
	case qty > 0:
		status = domain.StockLow
	}
	return domain.Availability{Status: status, Qty: qty}
}

// Levels lists every product with its stock (admin).
func (s *StockService) Levels() ([]domain.Product, error) {
	return s.Prods.All()
}

func (s *StockService) SetStock(productID string, qty int) error {
	if qty < 0 {
		return &ValidationError{Messages: []string{"quantity must be >= 0"}}
	}
	err := s.Stock.Set(productID, qty)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
