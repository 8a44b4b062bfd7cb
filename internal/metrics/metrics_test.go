package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCountsBusinessEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.OrderCreated()
	c.OrderCreated()
	c.OrderRejected("insufficient_stock")
	c.WebhookEvent("payment_intent.succeeded", "processed")
	c.EmailSent("order_shipped", nil)
	c.EmailSent("order_shipped", errors.New("ses down"))
	c.PointsCredited(39)
	c.PointsDebited(10)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ordersRejected.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.webhookEvents.WithLabelValues("payment_intent.succeeded", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emails.WithLabelValues("order_shipped", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emails.WithLabelValues("order_shipped", "failed")))
	assert.Equal(t, 39.0, testutil.ToFloat64(c.pointsCredited))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.pointsDebited))
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/api/products/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/products/:id", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.OrderCreated()

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "oiko_orders_created_total 1"))
}
