package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"totembo/internal/http/handlers"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app, _ := newApp(t, handlers.Options{})

	anon := newClient(t, app)
	resp := anon.get("/admin/orders")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login_registration", resp.Header.Get("Location"))

	user := newClient(t, app)
	user.login("alice")
	entries := captureLogs(t, func() {
		resp = user.get("/admin/orders")
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Access denied")
	assert.True(t, hasAction(entries, "access.denied.admin"))

	admin := newClient(t, app)
	admin.login("admin")
	for _, path := range []string{"/admin", "/admin/orders", "/admin/stock", "/admin/users"} {
		resp = admin.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestAdminStockUpdateIsAudited(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	admin := newClient(t, app)
	admin.login("admin")

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = admin.post("/admin/stock", url.Values{"product_id": {"p-tissot-prx"}, "qty": {"4"}})
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 4, stockOf(t, db, "p-tissot-prx"))
	assert.True(t, hasAction(entries, "admin.stock.save"))

	resp = admin.post("/admin/stock", url.Values{"product_id": {"p-tissot-prx"}, "qty": {"-1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = admin.post("/admin/stock", url.Values{"product_id": {"p-missing"}, "qty": {"1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminDeleteUserRestoresCartStock(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	bob := newClient(t, app)
	bob.login("bob")
	bob.post("/to_cart/p-orient-bambino/add", nil)
	require.Equal(t, 2, stockOf(t, db, "p-orient-bambino"))

	admin := newClient(t, app)
	admin.login("admin")
	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = admin.post("/admin/users/u-bob/delete", nil)
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, hasAction(entries, "admin.users.delete"))
	assert.Equal(t, 3, stockOf(t, db, "p-orient-bambino"))
	assert.NotContains(t, body(t, admin.get("/admin/users")), "bob@totembo.test")

	resp = admin.post("/admin/users/u-admin/delete", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderVisibleToOwnerAndAdminOnly(t *testing.T) {
	app, db := newApp(t, handlers.Options{})
	alice := newClient(t, app)
	alice.login("alice")
	alice.post("/to_cart/p-seiko-5/add", nil)

	var orderID string
	require.NoError(t, db.Get(&orderID, `
		SELECT o.id FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE c.user_id = 'u-alice' AND o.status = 'OPEN'`))

	resp := alice.get("/order/" + orderID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Seiko 5 Sports")

	bob := newClient(t, app)
	bob.login("bob")
	entries := captureLogs(t, func() {
		resp = bob.get("/order/" + orderID)
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, body(t, resp), "Seiko 5 Sports")
	assert.True(t, hasAction(entries, "access.denied.order"))

	resp = bob.get("/order/no-such-order")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	admin := newClient(t, app)
	admin.login("admin")
	resp = admin.get("/order/" + orderID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
