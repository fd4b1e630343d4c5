package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"totembo/internal/http/handlers"
	"totembo/internal/metrics"
	"totembo/internal/payment"
	"totembo/internal/repos"
)

func TestAnonymousToCartRedirectsToLogin(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	cl := newClient(t, app)

	resp := cl.post("/to_cart/p-seiko-5/add", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login_registration", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.follow(resp)), "Авторизуйтесь что бы совершить покупку!")
	assert.Equal(t, 8, stockOf(t, db, "p-seiko-5"))

	// Anonymous visitors see an empty cart.
	resp = cl.get("/cart")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Корзина пуста.")
	assert.JSONEq(t, `{"cart_total_quantity":0,"cart_total_price":"0.00"}`, body(t, cl.get("/api/v1/cart")))
}

func TestCartAddDeleteAndClear(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	cl := newClient(t, app)
	cl.login("alice")

	for i := 0; i < 2; i++ {
		resp := cl.post("/to_cart/p-seiko-5/add", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/cart", resp.Header.Get("Location"))
	}
	cl.post("/to_cart/p-nato-strap/add", nil)
	assert.Equal(t, 6, stockOf(t, db, "p-seiko-5"))
	assert.Equal(t, 39, stockOf(t, db, "p-nato-strap"))
	assert.JSONEq(t, `{"cart_total_quantity":3,"cart_total_price":"597.90"}`, body(t, cl.get("/api/v1/cart")))

	page := body(t, cl.get("/cart"))
	assert.Contains(t, page, "Seiko 5 Sports")
	assert.Contains(t, page, "597.90")

	cl.post("/to_cart/p-seiko-5/delete", nil)
	assert.Equal(t, 7, stockOf(t, db, "p-seiko-5"))

	// Deleting something not in the cart is a no-op.
	cl.post("/to_cart/p-garmin-venu-2/delete", nil)
	assert.Equal(t, 5, stockOf(t, db, "p-garmin-venu-2"))

	resp := cl.post("/clear_cart", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 8, stockOf(t, db, "p-seiko-5"))
	assert.Equal(t, 40, stockOf(t, db, "p-nato-strap"))
	assert.JSONEq(t, `{"cart_total_quantity":0,"cart_total_price":"0.00"}`, body(t, cl.get("/api/v1/cart")))
}

func TestOutOfStockAddShowsFlash(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	cl := newClient(t, app)
	cl.login("alice")

	resp := cl.post("/to_cart/p-tissot-prx/add", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, body(t, cl.follow(resp)), "Товара нет в наличии.")
	assert.Equal(t, 0, stockOf(t, db, "p-tissot-prx"))
}

func TestFavouriteToggle(t *testing.T) {
	app, _ := newApp(t, handlers.Options{})
	cl := newClient(t, app)

	// Anonymous toggles are ignored.
	resp := cl.post("/favourite/seiko-5-sports", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	cl.login("alice")
	resp = cl.post("/favourite/seiko-5-sports", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/product/seiko-5-sports", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.get("/favourites")), "Seiko 5 Sports")
	assert.Contains(t, body(t, cl.get("/product/seiko-5-sports")), "Убрать из избранного")

	cl.post("/favourite/seiko-5-sports", nil)
	assert.NotContains(t, body(t, cl.get("/favourites")), "Seiko 5 Sports")

	resp = cl.post("/favourite/no-such-watch", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckoutAndPaymentFlow(t *testing.T) {
	m := metrics.New()
	app, db := newApp(t, handlers.Options{Metrics: m})
	cl := newClient(t, app)
	cl.login("alice")

	// Empty cart goes back to the cart page.
	resp := cl.get("/checkout")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))

	cl.post("/to_cart/p-orient-bambino/add", nil)
	cl.post("/to_cart/p-orient-bambino/add", nil)
	resp = cl.get("/checkout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "331.00")

	// Invalid form stays on checkout with messages.
	resp = cl.post("/checkout/session", url.Values{"first_name": {"Alice"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/checkout", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.follow(resp)), "Укажите номер телефона.")

	resp = cl.post("/checkout/session", url.Values{
		"first_name": {"Alice"},
		"last_name":  {"Liddell"},
		"address":    {"Abay 1"},
		"city":       {"Almaty"},
		"region":     {"Almaty"},
		"phone":      {"+7 701 555 12 34"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "http://localhost:8081/payment/success?token="), loc)

	var status, ref string
	require.NoError(t, db.QueryRow(`
		SELECT o.status, COALESCE(o.payment_ref,'') FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE c.user_id = 'u-alice'`).Scan(&status, &ref))
	assert.Equal(t, "OPEN", status)
	assert.True(t, strings.HasPrefix(ref, "sandbox_"), ref)

	resp = cl.follow(resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.follow(resp)), "Оплата прошла успешно")

	var orderID string
	require.NoError(t, db.QueryRow(`
		SELECT o.id, o.status FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE c.user_id = 'u-alice'`).Scan(&orderID, &status))
	assert.Equal(t, "PAID", status)
	assert.Equal(t, 1, stockOf(t, db, "p-orient-bambino"))

	// The paid order shows in the profile and the cart starts over.
	profile := body(t, cl.get("/profile"))
	assert.Contains(t, profile, orderID)
	assert.Contains(t, profile, "Alice Liddell")
	assert.JSONEq(t, `{"cart_total_quantity":0,"cart_total_price":"0.00"}`, body(t, cl.get("/api/v1/cart")))

	order := body(t, cl.get("/order/" + orderID))
	assert.Contains(t, order, "Abay 1")
	assert.Contains(t, order, "PAID")

	// Replaying the link is harmless; a forged token is rejected.
	u, _ := url.Parse(loc)
	resp = cl.get(u.RequestURI())
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	var entries []logEntry
	entries = captureLogs(t, func() {
		resp = cl.get("/payment/success?token=forged")
	})
	assert.Contains(t, body(t, cl.follow(resp)), "Не удалось подтвердить оплату.")
	assert.True(t, hasAction(entries, "payment.confirm.reject"))

	admin := newClient(t, app)
	admin.login("admin")
	resp = admin.post("/admin/orders/"+orderID+"/status", url.Values{"status": {"SHIPPED"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp = admin.post("/admin/orders/"+orderID+"/status", url.Values{"status": {"OPEN"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, db.Get(&status, `SELECT status FROM orders WHERE id = ?`, orderID))
	assert.Equal(t, "SHIPPED", status)

	metricsBody := body(t, cl.get("/metrics"))
	assert.Contains(t, metricsBody, "totembo_http_requests_total")
	assert.Contains(t, metricsBody, `route="/to_cart/:id/:action"`)
}

type failingProvider struct{}

func (failingProvider) CreateCheckoutSession(context.Context, payment.SessionRequest) (payment.Session, error) {
	return payment.Session{}, errors.Join(payment.ErrProvider, errors.New("gateway down"))
}

func (failingProvider) SessionStatus(context.Context, string) (payment.PaymentState, error) {
	return payment.PaymentState{}, errors.Join(payment.ErrProvider, errors.New("gateway down"))
}

func TestCheckoutProviderFailureKeepsCart(t *testing.T) {
	app, db := newApp(t, handlers.Options{Provider: failingProvider{}})
	cl := newClient(t, app)
	cl.login("bob")
	cl.post("/to_cart/p-apple-watch-se/add", nil)

	resp := cl.post("/checkout/session", url.Values{
		"first_name": {"Bob"},
		"last_name":  {"Builder"},
		"address":    {"Main st 2"},
		"city":       {"Astana"},
		"region":     {"Astana"},
		"phone":      {"+7 702 000 00 00"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/checkout", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.follow(resp)), "Платёжный сервис недоступен")
	assert.Equal(t, 11, stockOf(t, db, "p-apple-watch-se"))
	assert.JSONEq(t, `{"cart_total_quantity":1,"cart_total_price":"249.00"}`, body(t, cl.get("/api/v1/cart")))
}

func TestCatalogPages(t *testing.T) {
	app, _ := newApp(t, handlers.Options{})
	cl := newClient(t, app)

	home := body(t, cl.get("/"))
	assert.Contains(t, home, "Watches")
	assert.Contains(t, home, "/category/watches?type=mechanical")

	page := body(t, cl.get("/category/watches?sort=price"))
	// Cheapest three of the five watches, in price order.
	i1 := strings.Index(page, "Orient Bambino")
	i2 := strings.Index(page, "Apple Watch SE")
	i3 := strings.Index(page, "Seiko 5 Sports")
	require.True(t, i1 > 0 && i2 > 0 && i3 > 0)
	assert.True(t, i1 < i2 && i2 < i3)
	assert.NotContains(t, page, "Tissot PRX")
	assert.Contains(t, page, "1 / 2")

	page = body(t, cl.get("/category/watches?type=smart&page=9"))
	assert.Contains(t, page, "Garmin Venu 2")
	assert.NotContains(t, page, "Seiko 5 Sports")

	detail := body(t, cl.get("/product/seiko-5-sports"))
	assert.Contains(t, detail, "/media/products/seiko-5-sports/side.jpg")
	assert.Contains(t, detail, "289.00")

	search := body(t, cl.get("/search?q=garmin"))
	assert.Contains(t, search, "Garmin Venu 2")
	assert.NotContains(t, search, "Seiko 5 Sports")
}

func TestAdminExportProducts(t *testing.T) {
	app, _ := newApp(t, handlers.Options{})
	admin := newClient(t, app)
	admin.login("admin")

	resp := admin.get("/admin/products.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "products.xlsx")

	raw := []byte(body(t, resp))
	f, err := xlsx.OpenReaderAt(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 7)
	assert.Equal(t, "Title", rows[0].Cells[1].Value)
	assert.Equal(t, "p-apple-watch-se", rows[1].Cells[0].Value)
	assert.Equal(t, "249.00", rows[1].Cells[3].Value)
}

// unconfirmedProvider issues sandbox sessions but cannot report their status.
type unconfirmedProvider struct{ payment.SandboxProvider }

func (unconfirmedProvider) SessionStatus(context.Context, string) (payment.PaymentState, error) {
	return payment.PaymentState{}, errors.Join(payment.ErrProvider, errors.New("gateway down"))
}

func TestPaymentSuccessWaitsForProviderStatus(t *testing.T) {
	app, db := newApp(t, handlers.Options{Provider: unconfirmedProvider{}})
	cl := newClient(t, app)
	cl.login("bob")
	cl.post("/to_cart/p-apple-watch-se/add", nil)

	resp := cl.post("/checkout/session", url.Values{
		"first_name": {"Bob"},
		"last_name":  {"Builder"},
		"address":    {"Main st 2"},
		"city":       {"Astana"},
		"region":     {"Astana"},
		"phone":      {"+7 702 000 00 00"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = cl.follow(resp)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Contains(t, body(t, cl.follow(resp)), "Платёжный сервис недоступен")

	var paid int
	require.NoError(t, db.Get(&paid, `SELECT COUNT(*) FROM orders WHERE status = 'PAID'`))
	assert.Equal(t, 0, paid)
}

func TestSharedDepsServeRoutesAndJobs(t *testing.T) {
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deps := handlers.NewDeps(db, cfg, payment.SandboxProvider{}, nil)
	app := handlers.New(cfg, db, handlers.Options{Deps: deps})
	cl := newClient(t, app)
	cl.login("alice")
	before := stockOf(t, db, "p-seiko-5")
	cl.post("/to_cart/p-seiko-5/add", nil)

	cart, err := deps.Carts.Info("u-alice")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.TotalQuantity)

	n, err := deps.Carts.ReleaseStale(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before, stockOf(t, db, "p-seiko-5"))
}
