package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
)

type ReviewRepo struct{ db *sqlx.DB }

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func (r *ReviewRepo) Create(authorID, productID, text string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(`
	  INSERT INTO reviews(id, text, author_id, product_id, created_at)
	  VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, id, text, authorID, productID)
	return id, err
}

// ByProduct lists reviews newest first, with the author's username.
func (r *ReviewRepo) ByProduct(productID string) ([]domain.Review, error) {
	out := []domain.Review{}
	err := r.db.Select(&out, `
	  SELECT rv.id, rv.text, rv.author_id, u.username AS author, rv.product_id,
	         COALESCE(rv.created_at,'') AS created_at
	  FROM reviews rv
	  JOIN users u ON u.id = rv.author_id
	  WHERE rv.product_id = ?
	  ORDER BY rv.created_at DESC, rv.rowid DESC
	`, productID)
	return out, err
}
