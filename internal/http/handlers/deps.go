package handlers

import (
	"time"

	"github.com/jmoiron/sqlx"

	"totembo/internal/config"
	"totembo/internal/metrics"
	"totembo/internal/payment"
	"totembo/internal/repos"
	"totembo/internal/services"
)

// PaymentTokenTTL bounds how long a success link stays valid.
const PaymentTokenTTL = 24 * time.Hour

type Deps struct {
	Auth      *services.AuthService
	Carts     *services.CartService
	AuthH     *AuthHandler
	Category  *CategoryHandler
	Product   *ProductHandler
	Search    *SearchHandler
	Inventory *InventoryHandler
	Favourite *FavouriteHandler
	Cart      *CartHandler
	Checkout  *CheckoutHandler
	Order     *OrderHandler
	Admin     *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, provider payment.Provider, m *metrics.Metrics) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	stockRepo := repos.NewStockRepo(db)
	reviewRepo := repos.NewReviewRepo(db)
	favRepo := repos.NewFavouriteRepo(db)
	userRepo := repos.NewUserRepo(db)
	custRepo := repos.NewCustomerRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	authSvc := &services.AuthService{Users: userRepo}
	catalogSvc := services.NewCatalogService(catRepo, prodRepo, reviewRepo)
	reviewSvc := &services.ReviewService{Reviews: reviewRepo, Prods: prodRepo}
	stockSvc := services.NewStockService(stockRepo, prodRepo)
	favSvc := services.NewFavouriteService(favRepo, prodRepo)
	cartSvc := services.NewCartService(db, custRepo, orderRepo, stockRepo, m)
	orderSvc := services.NewOrderService(orderRepo, custRepo)
	checkoutSvc := &services.CheckoutService{
		DB:          db,
		Customers:   custRepo,
		Orders:      orderRepo,
		Carts:       cartSvc,
		Provider:    provider,
		Tokens:      payment.NewTokenSigner(cfg.PaymentTokenSecret, PaymentTokenTTL),
		Metrics:     m,
		BaseURL:     cfg.BaseURL,
		Currency:    cfg.PaymentCurrency,
		ProductName: cfg.PaymentProductName,
	}

	return &Deps{
		Auth:      authSvc,
		Carts:     cartSvc,
		AuthH:     &AuthHandler{Auth: authSvc, SecureCookie: cfg.CookieSecure},
		Category:  &CategoryHandler{Catalog: catalogSvc},
		Product:   &ProductHandler{Catalog: catalogSvc, Reviews: reviewSvc, Favs: favSvc},
		Search:    &SearchHandler{Catalog: catalogSvc},
		Inventory: &InventoryHandler{Stock: stockSvc},
		Favourite: &FavouriteHandler{Favs: favSvc},
		Cart:      &CartHandler{Cart: cartSvc},
		Checkout:  &CheckoutHandler{Checkout: checkoutSvc},
		Order:     &OrderHandler{Orders: orderSvc, Customers: custRepo},
		Admin:     &AdminHandler{Orders: orderSvc, Stock: stockSvc, Users: userRepo, Prods: prodRepo},
	}
}
