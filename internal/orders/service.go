// Package orders serves order history to customers and the order desk to
// admins. Admin status changes are free-form; shipped and delivered
// notifications fire only when the status actually changes.
package orders

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"oiko/internal/logger"
	"oiko/internal/models"
	"oiko/internal/store"
)

var ErrForbidden = errors.New("order belongs to another user")

type InvalidStatusError struct {
	Field string
	Value string
}

func (e *InvalidStatusError) Error() string {
	return "invalid " + e.Field + ": " + e.Value
}

type Notifier interface {
	OrderShipped(ctx context.Context, order models.Order)
	OrderDelivered(ctx context.Context, order models.Order)
}

type Service struct {
	orders store.OrderStore
	mail   Notifier
	log    *zap.Logger
}

func NewService(orders store.OrderStore, mail Notifier) *Service {
	return &Service{orders: orders, mail: mail, log: logger.Component("orders")}
}

func (s *Service) ListForUser(ctx context.Context, userID primitive.ObjectID, page store.Page) ([]models.Order, int64, error) {
	return s.orders.List(ctx, store.OrderFilter{UserID: &userID}, page)
}

// Get returns the order when actor owns it or is an admin.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID, actor models.User) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return order, nil
	}
	if order.UserID == nil || *order.UserID != actor.ID {
		return nil, ErrForbidden
	}
	return order, nil
}

type AdminList struct {
	Orders []models.Order
	Total  int64
	Stats  store.OrderStats
}

func (s *Service) AdminList(ctx context.Context, filter store.OrderFilter, page store.Page) (*AdminList, error) {
	if filter.Status != "" && !contains(models.OrderStatuses, filter.Status) {
		return nil, &InvalidStatusError{Field: "status", Value: filter.Status}
	}
	list, total, err := s.orders.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminList{Orders: list, Total: total, Stats: stats}, nil
}

// Update applies an admin change and returns the stored result.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, update store.OrderUpdate) (*models.Order, error) {
	if update.Status != nil {
		*update.Status = strings.ToLower(strings.TrimSpace(*update.Status))
		if !contains(models.OrderStatuses, *update.Status) {
			return nil, &InvalidStatusError{Field: "status", Value: *update.Status}
		}
	}
	if update.PaymentStatus != nil {
		*update.PaymentStatus = strings.ToLower(strings.TrimSpace(*update.PaymentStatus))
		if !contains(models.PaymentStatuses, *update.PaymentStatus) {
			return nil, &InvalidStatusError{Field: "paymentStatus", Value: *update.PaymentStatus}
		}
	}
	if update.TrackingNumber != nil {
		*update.TrackingNumber = strings.TrimSpace(*update.TrackingNumber)
	}

	before, err := s.orders.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	after := *before
	if update.Status != nil {
		after.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		after.PaymentStatus = *update.PaymentStatus
	}
	if update.TrackingNumber != nil {
		after.TrackingNumber = *update.TrackingNumber
	}

	if after.Status != before.Status {
		s.log.Info("order status changed",
			zap.String("orderRef", after.OrderRef),
			zap.String("from", before.Status),
			zap.String("to", after.Status))

		switch after.Status {
		case models.OrderStatusShipped:
			s.mail.OrderShipped(ctx, after)
		case models.OrderStatusDelivered:
			s.mail.OrderDelivered(ctx, after)
		}
	}
	return &after, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("order deleted", zap.String("orderId", id.Hex()))
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
