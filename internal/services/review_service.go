package services

import (
	"database/sql"
	"errors"

	"totembo/internal/repos"
	"totembo/internal/validate"
)

const ReviewMaxLen = 1000

type ReviewService struct {
	Reviews *repos.ReviewRepo
	Prods   *repos.ProductRepo
}

// Save stores a review and returns the product slug to redirect back to.
// The slug is returned even when the text is rejected.
func (s *ReviewService) Save(userID, productID, text string) (string, error) {
	p, err := s.Prods.ByID(productID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	text, ok := validate.Text(text, ReviewMaxLen)
	if !ok {
		return p.Slug, &ValidationError{Messages: []string{"Отзыв не может быть пустым или длиннее 1000 символов."}}
	}
	if _, err := s.Reviews.Create(userID, p.ID, text); err != nil {
		return p.Slug, err
	}
	return p.Slug, nil
}
