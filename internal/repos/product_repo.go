package repos

import (
	"github.com/jmoiron/sqlx"

	"totembo/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    p.id, p.category_id, p.title, COALESCE(p.slug,'') AS slug, p.description, p.price,
    p.quantity, p.size, p.color, COALESCE(p.created_at,'') AS created_at,
    COALESCE((SELECT g.image FROM gallery g WHERE g.product_id = p.id ORDER BY g.id LIMIT 1),'') AS first_image`

// orderBy turns a validated ORDER BY clause into SQL; empty keeps insertion order.
func orderBy(clause string) string {
	if clause == "" {
		return ` ORDER BY p.created_at, p.id`
	}
	return ` ORDER BY p.` + clause + `, p.id`
}

func (r *ProductRepo) BySlug(slug string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products p WHERE p.slug = ?`, slug)
	return p, err
}

func (r *ProductRepo) ByID(id string) (domain.Product, error) {
	return ProductByID(r.db, id)
}

// ProductByID reads a product through q, which may be an open transaction.
func ProductByID(q DBTX, id string) (domain.Product, error) {
	var p domain.Product
	err := q.Get(&p, `SELECT `+productCols+` FROM products p WHERE p.id = ?`, id)
	return p, err
}

// ListByCategories pages through products of any of the given categories.
// sort must come from validate.Sort.
func (r *ProductRepo) ListByCategories(ids []string, sort string, limit, offset int) ([]domain.Product, error) {
	out := []domain.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+productCols+` FROM products p WHERE p.category_id IN (?)`+orderBy(sort)+` LIMIT ? OFFSET ?`,
		ids, limit, offset)
	if err != nil {
		return nil, err
	}
	err = r.db.Select(&out, query, args...)
	return out, err
}

func (r *ProductRepo) CountByCategories(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM products WHERE category_id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.Get(&n, query, args...)
	return n, err
}

func (r *ProductRepo) CountByCategorySlug(slug string) (int, error) {
	var n int
	err := r.db.Get(&n, `
	  SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id
	  WHERE c.slug = ?
	`, slug)
	return n, err
}

// ListByCategorySlug pages through the products of one (sub)category.
func (r *ProductRepo) ListByCategorySlug(slug, sort string, limit, offset int) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products p JOIN categories c ON c.id = p.category_id
	  WHERE c.slug = ?`+orderBy(sort)+` LIMIT ? OFFSET ?`, slug, limit, offset)
	return out, err
}

// Random picks up to n distinct products other than excludeID.
func (r *ProductRepo) Random(n int, excludeID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products p
	  WHERE p.id <> ?
	  ORDER BY RANDOM()
	  LIMIT ?
	`, excludeID, n)
	return out, err
}

// Search matches q against title or description, ignoring case.
func (r *ProductRepo) Search(q string, limit int) ([]domain.Product, error) {
	like := containsPattern(q)
	out := []domain.Product{}
	err := r.db.Select(&out, `
	  SELECT `+productCols+`
	  FROM products p
	  WHERE fold(p.title) LIKE ? ESCAPE '\' OR fold(p.description) LIKE ? ESCAPE '\'
	  ORDER BY p.title
	  LIMIT ?
	`, like, like, limit)
	return out, err
}

func (r *ProductRepo) Images(productID string) ([]domain.GalleryImage, error) {
	out := []domain.GalleryImage{}
	err := r.db.Select(&out, `SELECT id, product_id, image FROM gallery WHERE product_id = ? ORDER BY id`, productID)
	return out, err
}

// All is used by the admin stock page and export.
func (r *ProductRepo) All() ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, `SELECT `+productCols+` FROM products p ORDER BY p.title`)
	return out, err
}
