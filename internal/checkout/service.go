// Package checkout prices carts, starts card payments, persists orders and
// reconciles asynchronous payment outcomes.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"oiko/internal/logger"
	"oiko/internal/metrics"
	"oiko/internal/models"
	"oiko/internal/payments"
	"oiko/internal/rewards"
	"oiko/internal/store"
)

var ErrPaymentProvider = errors.New("payment provider error")

// ValidationError is a malformed checkout request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Gateway interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error)
}

type Notifier interface {
	OrderReceived(ctx context.Context, order models.Order)
	PaymentConfirmed(ctx context.Context, order models.Order)
}

type Config struct {
	ShippingFee float64
	Currency    string
}

type Service struct {
	users    store.UserStore
	products store.ProductStore
	orders   store.OrderStore
	gateway  Gateway
	mail     Notifier
	metrics  metrics.Recorder
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
}

func NewService(users store.UserStore, products store.ProductStore, orders store.OrderStore,
	gateway Gateway, mail Notifier, rec metrics.Recorder, cfg Config) *Service {
	return &Service{
		users:    users,
		products: products,
		orders:   orders,
		gateway:  gateway,
		mail:     mail,
		metrics:  rec,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Component("checkout"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Quote struct {
	Subtotal     float64 `json:"subtotal"`
	Shipping     float64 `json:"shipping"`
	Total        float64 `json:"total"`
	PointsEarned int     `json:"pointsEarned"`
}

// Price totals the client-supplied item snapshots and adds the flat
// shipping fee.
func (s *Service) Price(items []models.OrderItem) Quote {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = roundMoney(subtotal)
	return Quote{
		Subtotal:     subtotal,
		Shipping:     s.cfg.ShippingFee,
		Total:        roundMoney(subtotal + s.cfg.ShippingFee),
		PointsEarned: rewards.PointsForOrder(items),
	}
}

type IntentInput struct {
	UserID   *primitive.ObjectID
	Email    string
	OrderRef string
	Items    []models.OrderItem
}

type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Quote
}

func (s *Service) CreatePaymentIntent(ctx context.Context, in IntentInput) (*IntentResult, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	catalog, err := s.lookup(ctx, in.Items)
	if err != nil {
		s.log.Warn("catalog lookup failed, pricing from client snapshot", zap.Error(err))
	}
	items := s.resolveCatalog(in.Items, catalog)
	quote := s.Price(items)

	metadata := map[string]string{
		"itemCount":    strconv.Itoa(len(items)),
		"pointsEarned": strconv.Itoa(quote.PointsEarned),
	}
	if in.UserID != nil {
		metadata["userId"] = in.UserID.Hex()
	}
	if ref := strings.TrimSpace(in.OrderRef); ref != "" {
		metadata["orderRef"] = ref
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.IntentRequest{
		Amount:       quote.Total,
		Currency:     s.cfg.Currency,
		ReceiptEmail: in.Email,
		Metadata:     metadata,
	})
	if err != nil {
		s.log.Error("payment intent failed", zap.Float64("total", quote.Total), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	s.log.Info("payment intent created", zap.String("paymentIntentId", intent.ID), zap.Float64("total", quote.Total))
	return &IntentResult{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID, Quote: quote}, nil
}

type OrderInput struct {
	OrderRef        string
	UserID          *primitive.ObjectID
	Items           []models.OrderItem
	CustomerInfo    models.CustomerInfo
	PaymentIntentID string
}

// CreateOrder persists an order after reserving stock for every item that
// resolves to a catalog product. Items with ids outside the catalog skip the
// stock check. Points are not credited here; that happens on payment.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error) {
	if err := validateItems(in.Items); err != nil {
		s.metrics.OrderRejected("validation")
		return nil, err
	}
	if strings.TrimSpace(in.CustomerInfo.Name) == "" || strings.TrimSpace(in.CustomerInfo.Email) == "" {
		s.metrics.OrderRejected("validation")
		return nil, &ValidationError{Message: "customer name and email are required"}
	}

	now := s.now()
	ref := strings.TrimSpace(in.OrderRef)
	if ref == "" {
		ref = fmt.Sprintf("OIKO-%d", now.UnixMilli())
	}

	catalog, err := s.lookup(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	items := s.resolveCatalog(in.Items, catalog)
	requests := stockRequests(items, catalog)
	if err := s.products.ReserveStock(ctx, requests); err != nil {
		var stockErr *store.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.OrderRejected("insufficient_stock")
			s.log.Warn("order rejected, insufficient stock",
				zap.String("orderRef", ref),
				zap.String("productId", stockErr.ProductID),
				zap.Int("available", stockErr.Available),
				zap.Int("requested", stockErr.Requested))
		}
		return nil, err
	}

	quote := s.Price(items)
	order := models.Order{
		OrderRef:        ref,
		UserID:          in.UserID,
		Items:           items,
		CustomerInfo:    in.CustomerInfo,
		Subtotal:        quote.Subtotal,
		Shipping:        quote.Shipping,
		Total:           quote.Total,
		PointsEarned:    quote.PointsEarned,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentIntentID: strings.TrimSpace(in.PaymentIntentID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		if releaseErr := s.products.ReleaseStock(ctx, requests); releaseErr != nil {
			s.log.Error("releasing stock after failed order insert", zap.String("orderRef", ref), zap.Error(releaseErr))
		}
		if errors.Is(err, store.ErrDuplicate) {
			s.metrics.OrderRejected("duplicate_ref")
			return nil, &ValidationError{Message: "an order with this reference already exists"}
		}
		return nil, err
	}

	s.metrics.OrderCreated()
	s.log.Info("order created", zap.String("orderRef", ref), zap.Float64("total", order.Total))

	s.mail.OrderReceived(ctx, order)

	if order.UserID != nil {
		if err := s.users.SetCart(ctx, *order.UserID, nil); err != nil {
			s.log.Warn("clearing cart failed", zap.String("userId", order.UserID.Hex()), zap.Error(err))
		}
	}
	return &order, nil
}

// resolveCatalog fills in missing categories and images from the catalog and
// logs, without rejecting, items whose price differs from the catalog price.
func (s *Service) resolveCatalog(items []models.OrderItem, catalog map[string]models.Product) []models.OrderItem {
	out := append([]models.OrderItem(nil), items...)
	for i := range out {
		product, ok := catalog[strings.ToLower(out[i].ProductID)]
		if !ok {
			continue
		}
		if out[i].Category == "" {
			out[i].Category = product.Category
		}
		if out[i].ProductName == "" {
			out[i].ProductName = product.Name
		}
		if out[i].Image == "" && len(product.Images) > 0 {
			out[i].Image = product.Images[0].URL
		}
		if out[i].Size != "" && len(product.Sizes) > 0 && !product.Sizes.Contains(out[i].Size) {
			s.log.Warn("size not offered for product",
				zap.String("productId", out[i].ProductID),
				zap.String("size", out[i].Size))
		}
		if math.Abs(product.Price-out[i].Price) > 0.005 {
			s.log.Warn("client price differs from catalog",
				zap.String("productId", out[i].ProductID),
				zap.Float64("clientPrice", out[i].Price),
				zap.Float64("catalogPrice", product.Price))
		}
	}
	return out
}

// lookup loads the catalog products behind items whose id looks like a
// database identifier, keyed by hex id.
func (s *Service) lookup(ctx context.Context, items []models.OrderItem) (map[string]models.Product, error) {
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		if id, err := primitive.ObjectIDFromHex(item.ProductID); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Product, len(products))
	for _, p := range products {
		out[p.ID.Hex()] = p
	}
	return out, nil
}

func stockRequests(items []models.OrderItem, catalog map[string]models.Product) []store.StockRequest {
	var requests []store.StockRequest
	for _, item := range items {
		product, ok := catalog[strings.ToLower(item.ProductID)]
		if !ok {
			continue
		}
		requests = append(requests, store.StockRequest{ProductID: product.ID, Quantity: item.Quantity})
	}
	return requests
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return &ValidationError{Message: "at least one item is required"}
	}
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return &ValidationError{Message: "every item needs a productId"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Message: "quantity must be greater than zero"}
		}
		if item.Price < 0 {
			return &ValidationError{Message: "price cannot be negative"}
		}
	}
	return nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
