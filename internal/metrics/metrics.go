// Package metrics exposes Prometheus counters for the storefront.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report business events through.
type Recorder interface {
	OrderCreated()
	OrderRejected(reason string)
	WebhookEvent(eventType, outcome string)
	EmailSent(template string, err error)
	PointsCredited(points int)
	PointsDebited(points int)
}

type Collector struct {
	ordersCreated  prometheus.Counter
	ordersRejected *prometheus.CounterVec
	webhookEvents  *prometheus.CounterVec
	emails         *prometheus.CounterVec
	pointsCredited prometheus.Counter
	pointsDebited  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oiko_orders_created_total",
			Help: "Orders persisted at checkout.",
		}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oiko_orders_rejected_total",
			Help: "Order submissions rejected, by reason.",
		}, []string{"reason"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oiko_payment_webhook_events_total",
			Help: "Payment webhook events, by type and outcome.",
		}, []string{"type", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oiko_emails_total",
			Help: "Transactional emails, by template and result.",
		}, []string{"template", "result"}),
		pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oiko_fragment_points_credited_total",
			Help: "Fragment points added to user balances.",
		}),
		pointsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oiko_fragment_points_debited_total",
			Help: "Fragment points removed from user balances.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oiko_http_requests_total",
			Help: "HTTP requests, by route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oiko_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.ordersCreated,
		c.ordersRejected,
		c.webhookEvents,
		c.emails,
		c.pointsCredited,
		c.pointsDebited,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) OrderCreated() {
	c.ordersCreated.Inc()
}

func (c *Collector) OrderRejected(reason string) {
	c.ordersRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) WebhookEvent(eventType, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) EmailSent(template string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	c.emails.WithLabelValues(template, result).Inc()
}

func (c *Collector) PointsCredited(points int) {
	c.pointsCredited.Add(float64(points))
}

func (c *Collector) PointsDebited(points int) {
	c.pointsDebited.Add(float64(points))
}

// Middleware records request counts and latency per matched route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every event.
type Nop struct{}

func (Nop) OrderCreated() {}
func (Nop) OrderRejected(string) {}
func (Nop) WebhookEvent(string, string) {}
func (Nop) EmailSent(string, error) {}
func (Nop) PointsCredited(int) {}
func (Nop) PointsDebited(int) {}
