package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oiko/internal/checkout"
	"oiko/internal/middleware"
	"oiko/internal/models"
	"oiko/internal/orders"
	"oiko/internal/payments"
	"oiko/internal/store"
)

const maxWebhookBytes = 64 << 10

/* =========================
   REQUEST DTOs
========================= */

type createOrderItemRequest struct {
	ProductID   string  `json:"productId" binding:"required"`
	ProductName string  `json:"productName"`
	Name        string  `json:"name"`
	Price       float64 `json:"price" binding:"gte=0"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
	Size        string  `json:"size"`
	Color       string  `json:"color"`
	Image       string  `json:"image"`
}

type createOrderCustomerRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type paymentIntentRequest struct {
	Items    []createOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Email    string                   `json:"email"`
	OrderRef string                   `json:"orderRef"`
}

// createOrderRequest accepts status fields for compatibility with older
// clients; they are ignored and every order starts pending.
type createOrderRequest struct {
	OrderRef        string                     `json:"orderRef"`
	Items           []createOrderItemRequest   `json:"items" binding:"required,min=1,dive"`
	CustomerInfo    createOrderCustomerRequest `json:"customerInfo" binding:"required"`
	PaymentIntentID string                     `json:"paymentIntentId"`
	Status          string                     `json:"status"`
	PaymentStatus   string                     `json:"paymentStatus"`
}

/* =========================
   PAYMENT INTENT
========================= */

func CreatePaymentIntent(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/checkout/payment-intent"
		defer handlePanic(c, route)

		var req paymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.TrimSpace(req.Email)
		if user, ok := currentUserEmail(c); ok && email == "" {
			email = user
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*requestTimeout)
		defer cancel()

		result, err := svc.CreatePaymentIntent(ctx, checkout.IntentInput{
			UserID:   optionalUserID(c),
			Email:    email,
			OrderRef: req.OrderRef,
			Items:    orderItems(req.Items),
		})
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}
		respondData(c, http.StatusOK, result)
	}
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		order, err := svc.CreateOrder(ctx, checkout.OrderInput{
			OrderRef:        sanitizeText(req.OrderRef),
			UserID:          optionalUserID(c),
			Items:           orderItems(req.Items),
			CustomerInfo:    req.CustomerInfo.toCustomerInfo(),
			PaymentIntentID: req.PaymentIntentID,
		})
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Order created successfully", "data": order})
	}
}

/* =========================
   GET ORDERS
========================= */

func GetOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}
		page, ok := pageFromQuery(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		list, total, err := svc.ListForUser(ctx, user.ID, page)
		if err != nil {
			respondInternal(c, route, err)
			return
		}
		respondList(c, list, len(list), page, total, nil)
	}
}

func GetOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		user, ok := requireUser(c, route)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := svc.Get(ctx, id, user)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}
		respondData(c, http.StatusOK, order)
	}
}

/* =========================
   STRIPE WEBHOOK
========================= */

// WebhookParser verifies a provider payload and turns it into an event.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payments.Event, error)
}

func StripeWebhook(parser WebhookParser, svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/webhooks/stripe"
		defer handlePanic(c, route)

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondWithError(c, http.StatusRequestEntityTooLarge, route, "payload too large")
				return
			}
			respondWithError(c, http.StatusBadRequest, route, "could not read body")
			return
		}

		event, err := parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if errors.Is(err, payments.ErrNotConfigured) {
				respondWithError(c, http.StatusServiceUnavailable, route, err.Error())
				return
			}
			zap.L().Warn("webhook rejected", zap.String("component", "webhook"), zap.Error(err))
			respondWithError(c, http.StatusBadRequest, route, "invalid signature")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*requestTimeout)
		defer cancel()

		outcome, err := svc.Reconcile(ctx, event)
		if err != nil {
			// a 5xx makes the provider retry the delivery
			respondInternal(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
	}
}

/* =========================
   HELPERS
========================= */

func orderItems(reqs []createOrderItemRequest) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		name := r.ProductName
		if strings.TrimSpace(name) == "" {
			name = r.Name
		}
		items = append(items, models.OrderItem{
			ProductID:   strings.TrimSpace(r.ProductID),
			ProductName: sanitizeText(name),
			Price:       r.Price,
			Category:    strings.ToLower(strings.TrimSpace(r.Category)),
			Quantity:    r.Quantity,
			Size:        strings.TrimSpace(r.Size),
			Color:       strings.TrimSpace(r.Color),
			Image:       strings.TrimSpace(r.Image),
		})
	}
	return items
}

func (r createOrderCustomerRequest) toCustomerInfo() models.CustomerInfo {
	return models.CustomerInfo{
		Name:       sanitizeText(r.Name),
		Email:      strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:      strings.TrimSpace(r.Phone),
		Line1:      sanitizeText(r.Line1),
		Line2:      sanitizeText(r.Line2),
		City:       sanitizeText(r.City),
		State:      sanitizeText(r.State),
		PostalCode: strings.TrimSpace(r.PostalCode),
		Country:    sanitizeText(r.Country),
	}
}

func currentUserEmail(c *gin.Context) (string, bool) {
	user, ok := middleware.CurrentUser(c)
	return user.Email, ok
}

func respondCheckoutError(c *gin.Context, route string, err error) {
	var (
		stockErr      *store.InsufficientStockError
		validationErr *checkout.ValidationError
	)
	switch {
	case errors.As(err, &stockErr):
		respondWithError(c, http.StatusBadRequest, route, stockErr.Error())
	case errors.As(err, &validationErr):
		respondWithError(c, http.StatusBadRequest, route, validationErr.Message)
	case errors.Is(err, checkout.ErrPaymentProvider):
		respondWithError(c, http.StatusBadGateway, route, "payment provider unavailable, please try again")
	default:
		respondInternal(c, route, err)
	}
}

func respondOrderError(c *gin.Context, route string, err error) {
	var statusErr *orders.InvalidStatusError
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, "order not found")
	case errors.Is(err, orders.ErrForbidden):
		respondWithError(c, http.StatusForbidden, route, "forbidden")
	case errors.As(err, &statusErr):
		respondWithError(c, http.StatusBadRequest, route, statusErr.Error())
	default:
		respondInternal(c, route, err)
	}
}
