package domain

import (
	"github.com/shopspring/decimal"
)

// PlaceholderImage is shown for categories and products without pictures.
const PlaceholderImage = "https://cdn5.vectorstock.com/i/1000x1000/74/09/no-watch-not-allow-smart-red-circle-vector-31667409.jpg"

type Category struct {
	ID       string `db:"id"`
	Title    string `db:"title"`
	Slug     string `db:"slug"`
	Image    string `db:"image"`
	ParentID string `db:"parent_id"` // empty for root categories

	Subcategories []Category `db:"-"`
}

func (c Category) ImageURL() string {
	if c.Image == "" {
		return PlaceholderImage
	}
	return "/media/" + c.Image
}

func (c Category) IsRoot() bool { return c.ParentID == "" }

type Product struct {
	ID          string          `db:"id"`
	CategoryID  string          `db:"category_id"`
	Title       string          `db:"title"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Quantity    int             `db:"quantity"`
	Size        int             `db:"size"`
	Color       string          `db:"color"`
	CreatedAt   string          `db:"created_at"`
	FirstImage  string          `db:"first_image"`
}

// FirstPhoto is the first gallery picture or the placeholder.
func (p Product) FirstPhoto() string {
	if p.FirstImage == "" {
		return PlaceholderImage
	}
	return "/media/" + p.FirstImage
}

type GalleryImage struct {
	ID        string `db:"id"`
	ProductID string `db:"product_id"`
	Image     string `db:"image"`
}

func (g GalleryImage) URL() string { return "/media/" + g.Image }

type Review struct {
	ID        string `db:"id"`
	Text      string `db:"text"`
	AuthorID  string `db:"author_id"`
	Author    string `db:"author"`
	ProductID string `db:"product_id"`
	CreatedAt string `db:"created_at"`
}

const (
	StockIn  = "IN_STOCK"
	StockLow = "LOW_STOCK"
	StockOut = "OUT_OF_STOCK"
)

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
