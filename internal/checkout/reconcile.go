package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"oiko/internal/models"
	"oiko/internal/payments"
	"oiko/internal/store"
)

// Webhook outcomes, also used as metric labels.
const (
	OutcomeProcessed = "processed"
	OutcomeUnmatched = "unmatched"
	OutcomeIgnored   = "ignored"
	// OutcomeStale marks an event that arrived after a later payment state.
	OutcomeStale = "stale"
)

// Reconcile applies a verified payment event to the order that carries its
// payment intent id. Unknown intents are acknowledged without changes so the
// provider stops retrying.
func (s *Service) Reconcile(ctx context.Context, ev payments.Event) (string, error) {
	outcome, err := s.reconcile(ctx, ev)
	if err != nil {
		s.metrics.WebhookEvent(ev.Type, "error")
		return "", err
	}
	s.metrics.WebhookEvent(ev.Type, outcome)
	return outcome, nil
}

func (s *Service) reconcile(ctx context.Context, ev payments.Event) (string, error) {
	if ev.Kind == payments.EventIgnored || ev.PaymentIntentID == "" {
		return OutcomeIgnored, nil
	}

	order, err := s.orders.FindByPaymentIntent(ctx, ev.PaymentIntentID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("webhook for unknown payment intent",
			zap.String("eventType", ev.Type),
			zap.String("paymentIntentId", ev.PaymentIntentID))
		return OutcomeUnmatched, nil
	}
	if err != nil {
		return "", err
	}

	switch ev.Kind {
	case payments.EventPaymentSucceeded:
		return s.markPaid(ctx, order)
	case payments.EventPaymentFailed:
		return s.markFailed(ctx, order)
	case payments.EventRefunded:
		return OutcomeProcessed, s.markRefunded(ctx, order)
	}
	return OutcomeIgnored, nil
}

// setStatus writes both statuses. When from is non-empty the write only
// happens if the stored paymentStatus is one of from.
func (s *Service) setStatus(ctx context.Context, order *models.Order, status, paymentStatus string, from ...string) error {
	before, err := s.orders.Update(ctx, order.ID, store.OrderUpdate{
		Status:            &status,
		PaymentStatus:     &paymentStatus,
		FromPaymentStatus: from,
	})
	if err != nil {
		return err
	}
	*order = *before
	s.log.Info("order payment status changed",
		zap.String("orderRef", order.OrderRef),
		zap.String("from", before.PaymentStatus),
		zap.String("to", paymentStatus))
	return nil
}

func (s *Service) staleEvent(order *models.Order, wanted string) {
	s.log.Warn("out of order payment event skipped",
		zap.String("orderRef", order.OrderRef),
		zap.String("paymentStatus", order.PaymentStatus),
		zap.String("eventStatus", wanted))
}

// markPaid credits the order's points once, guarded by the pointsCredited
// flag, and sends the confirmation only on the first paid transition. A
// refunded order stays refunded.
func (s *Service) markPaid(ctx context.Context, order *models.Order) (string, error) {
	if order.PaymentStatus == models.PaymentStatusRefunded {
		s.staleEvent(order, models.PaymentStatusPaid)
		return OutcomeStale, nil
	}

	firstPaid := false
	status := order.Status
	if order.PaymentStatus != models.PaymentStatusPaid {
		// fulfilment statuses set by an admin are never moved backwards
		if status == models.OrderStatusPending || status == models.OrderStatusCancelled {
			status = models.OrderStatusProcessing
		}
		err := s.setStatus(ctx, order, status, models.PaymentStatusPaid,
			models.PaymentStatusPending, models.PaymentStatusFailed)
		switch {
		case errors.Is(err, store.ErrPaymentState):
			current, err := s.orders.FindByID(ctx, order.ID)
			if err != nil {
				return "", err
			}
			if current.PaymentStatus != models.PaymentStatusPaid {
				s.staleEvent(current, models.PaymentStatusPaid)
				return OutcomeStale, nil
			}
			*order = *current
		case err != nil:
			return "", err
		default:
			firstPaid = true
		}
	}

	if order.UserID != nil && order.PointsEarned > 0 {
		credited, err := s.orders.SetPointsCredited(ctx, order.ID, true)
		if err != nil {
			return "", err
		}
		if credited {
			if err := s.users.AddPoints(ctx, *order.UserID, order.PointsEarned); err != nil {
				return "", err
			}
			s.metrics.PointsCredited(order.PointsEarned)
		}
	}

	if firstPaid {
		order.Status = status
		order.PaymentStatus = models.PaymentStatusPaid
		s.mail.PaymentConfirmed(ctx, *order)
	}
	return OutcomeProcessed, nil
}

// markFailed cancels an unpaid order. Paid and refunded orders ignore late
// failure events.
func (s *Service) markFailed(ctx context.Context, order *models.Order) (string, error) {
	err := s.setStatus(ctx, order, models.OrderStatusCancelled, models.PaymentStatusFailed,
		models.PaymentStatusPending, models.PaymentStatusFailed)
	if errors.Is(err, store.ErrPaymentState) {
		s.staleEvent(order, models.PaymentStatusFailed)
		return OutcomeStale, nil
	}
	if err != nil {
		return "", err
	}
	return OutcomeProcessed, nil
}

// markRefunded reverses previously credited points, flooring the balance at
// zero.
func (s *Service) markRefunded(ctx context.Context, order *models.Order) error {
	if err := s.setStatus(ctx, order, models.OrderStatusCancelled, models.PaymentStatusRefunded); err != nil {
		return err
	}
	if order.UserID == nil || order.PointsEarned <= 0 {
		return nil
	}

	reversed, err := s.orders.SetPointsCredited(ctx, order.ID, false)
	if err != nil {
		return err
	}
	if !reversed {
		return nil
	}
	if err := s.users.DeductPoints(ctx, *order.UserID, order.PointsEarned); err != nil {
		return err
	}
	s.metrics.PointsDebited(order.PointsEarned)
	return nil
}
