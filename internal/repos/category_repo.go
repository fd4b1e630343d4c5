package repos

import (
	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id, title, COALESCE(slug,'') AS slug, COALESCE(image,'') AS image, COALESCE(parent_id,'') AS parent_id`

// Roots returns the top level categories (no parent).
func (r *CategoryRepo) Roots() ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
	  SELECT `+categoryCols+`
	  FROM categories
	  WHERE parent_id IS NULL
	  ORDER BY title
	`)
	return out, err
}

func (r *CategoryRepo) Children(parentID string) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
	  SELECT `+categoryCols+`
	  FROM categories
	  WHERE parent_id = ?
	  ORDER BY title
	`, parentID)
	return out, err
}

func (r *CategoryRepo) BySlug(slug string) (domain.Category, error) {
	var c domain.Category
	err := r.db.Get(&c, `SELECT `+categoryCols+` FROM categories WHERE slug = ?`, slug)
	return c, err
}
