package services

import (
	"database/sql"
	"errors"
	"fmt"

	"totembo/internal/domain"
	"totembo/internal/repos"
	"totembo/internal/validate"
)

const (
	CategoryPageSize = 3
	RelatedProducts  = 5
	SearchLimit      = 50
)

type CatalogService struct {
	Cats    *repos.CategoryRepo
	Prods   *repos.ProductRepo
	Reviews *repos.ReviewRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo, reviews *repos.ReviewRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods, Reviews: reviews}
}

// Home returns the root categories with their subcategories.
func (s *CatalogService) Home() ([]domain.Category, error) {
	roots, err := s.Cats.Roots()
	if err != nil {
		return nil, err
	}
	for i := range roots {
		kids, err := s.Cats.Children(roots[i].ID)
		if err != nil {
			return nil, err
		}
		roots[i].Subcategories = kids
	}
	return roots, nil
}

type CategoryPage struct {
	Category domain.Category
	Products []domain.Product
	Sort     string
	Type     string
	Page     int
	Pages    int
	Total    int
}

func (p CategoryPage) HasPrev() bool { return p.Page > 1 }
func (p CategoryPage) HasNext() bool { return p.Page < p.Pages }
func (p CategoryPage) PrevPage() int { return p.Page - 1 }
func (p CategoryPage) NextPage() int { return p.Page + 1 }

// CategoryPage lists the products of a main category's subcategories, or of
// the subcategory named by typeSlug. Unknown sort fields are ignored; pages
// past the end show the last page.
func (s *CatalogService) CategoryPage(slug, sortField, typeSlug string, page int) (CategoryPage, error) {
	cat, err := s.Cats.BySlug(slug)
	if errors.Is(err, sql.ErrNoRows) {
		return CategoryPage{}, ErrNotFound
	}
	if err != nil {
		return CategoryPage{}, err
	}
	subs, err := s.Cats.Children(cat.ID)
	if err != nil {
		return CategoryPage{}, err
	}
	cat.Subcategories = subs

	out := CategoryPage{Category: cat}
	order, ok := validate.Sort(sortField)
	if ok {
		out.Sort = sortField
	}
	if page < 1 {
		page = 1
	}

	if t, ok := validate.Slug(typeSlug); ok && typeSlug != "" {
		out.Type = t
		total, err := s.Prods.CountByCategorySlug(t)
		if err != nil {
			return CategoryPage{}, err
		}
		out.Total = total
		out.Page, out.Pages = clampPage(page, total)
		out.Products, err = s.Prods.ListByCategorySlug(t, order, CategoryPageSize, (out.Page-1)*CategoryPageSize)
		if err != nil {
			return CategoryPage{}, err
		}
		return out, nil
	}

	ids := make([]string, 0, len(subs))
	for _, sc := range subs {
		ids = append(ids, sc.ID)
	}
	total, err := s.Prods.CountByCategories(ids)
	if err != nil {
		return CategoryPage{}, err
	}
	out.Total = total
	out.Page, out.Pages = clampPage(page, total)
	out.Products, err = s.Prods.ListByCategories(ids, order, CategoryPageSize, (out.Page-1)*CategoryPageSize)
	if err != nil {
		return CategoryPage{}, err
	}
	return out, nil
}

func clampPage(page, total int) (int, int) {
	pages := (total + CategoryPageSize - 1) / CategoryPageSize
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	return page, pages
}

type ProductDetail struct {
	Product  domain.Product
	Images   []domain.GalleryImage
	Related  []domain.Product
	Reviews  []domain.Review
	Category domain.Category
}

func (s *CatalogService) ProductDetail(slug string) (ProductDetail, error) {
	p, err := s.Prods.BySlug(slug)
	if errors.Is(err, sql.ErrNoRows) {
		return ProductDetail{}, ErrNotFound
	}
	if err != nil {
		return ProductDetail{}, err
	}
	d := ProductDetail{Product: p}
	if d.Images, err = s.Prods.Images(p.ID); err != nil {
		return ProductDetail{}, fmt.Errorf("images: %w", err)
	}
	if d.Related, err = s.Prods.Random(RelatedProducts, p.ID); err != nil {
		return ProductDetail{}, fmt.Errorf("related: %w", err)
	}
	if d.Reviews, err = s.Reviews.ByProduct(p.ID); err != nil {
		return ProductDetail{}, fmt.Errorf("reviews: %w", err)
	}
	return d, nil
}

// Search returns products whose title or description contains q.
// An invalid query yields no results.
func (s *CatalogService) Search(q string) ([]domain.Product, error) {
	q, ok := validate.Q(q)
	if !ok {
		return []domain.Product{}, nil
	}
	return s.Prods.Search(q, SearchLimit)
}
