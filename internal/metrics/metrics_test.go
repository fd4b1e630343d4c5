package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	m := New()
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/product/:slug", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", m.Handler())

	for _, slug := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/product/"+slug, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/product/:slug", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `totembo_http_requests_total{method="GET",route="/product/:slug",status="200"} 2`)
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.CartAction("add", "ok")
	m.CartAction("add", "out_of_stock")
	m.CartAction("add", "ok")
	m.CheckoutSession("ok")
	m.PaymentConfirmed()
	m.CartsReleased(3)
	m.CartsReleased(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cartActions.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkoutSessions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsConfirmed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cartsReleased))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CartAction("add", "ok")
		m.CheckoutSession("error")
		m.PaymentConfirmed()
		m.CartsReleased(1)
	})
}
