package services

import (
	"database/sql"
	"errors"

	"totembo/internal/domain"
	"totembo/internal/repos"
)

type FavouriteService struct {
	Repo  *repos.FavouriteRepo
	Prods *repos.ProductRepo
}

func NewFavouriteService(r *repos.FavouriteRepo, prods *repos.ProductRepo) *FavouriteService {
	return &FavouriteService{Repo: r, Prods: prods}
}

// Toggle flips the (user, product) favourite and reports whether it is now set.
func (s *FavouriteService) Toggle(userID, slug string) (bool, error) {
	p, err := s.Prods.BySlug(slug)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return s.Repo.Toggle(userID, p.ID)
}

func (s *FavouriteService) List(userID string) ([]domain.Product, error) {
	return s.Repo.List(userID)
}

// Contains reports whether productID is among the user's favourites.
func (s *FavouriteService) Contains(userID, productID string) (bool, error) {
	return s.Repo.Exists(userID, productID)
}
