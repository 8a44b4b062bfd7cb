package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"oiko/internal/mailer"
	"oiko/internal/metrics"
	"oiko/internal/models"
	"oiko/internal/store"
	"oiko/internal/store/memstore"
)

func setup(t *testing.T) (*memstore.Store, *mailer.Outbox, *Service, models.Order) {
	t.Helper()
	db := memstore.New()
	outbox := &mailer.Outbox{}
	svc := NewService(db.Orders(), mailer.New(outbox, "", metrics.Nop{}))

	owner := primitive.NewObjectID()
	order := models.Order{
		OrderRef:      "OIKO-42",
		UserID:        &owner,
		CustomerInfo:  models.CustomerInfo{Name: "Asha", Email: "asha@example.com"},
		Status:        models.OrderStatusProcessing,
		PaymentStatus: models.PaymentStatusPaid,
		Total:         2598,
	}
	require.NoError(t, db.Orders().Create(context.Background(), &order))
	return db, outbox, svc, order
}

func ptr(s string) *string { return &s }

func TestShippedEmailOncePerTransition(t *testing.T) {
	_, outbox, svc, order := setup(t)
	ctx := context.Background()

	updated, err := svc.Update(ctx, order.ID, store.OrderUpdate{Status: ptr("shipped"), TrackingNumber: ptr(" DL123 ")})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)
	assert.Equal(t, "DL123", updated.TrackingNumber)

	_, err = svc.Update(ctx, order.ID, store.OrderUpdate{Status: ptr("shipped")})
	require.NoError(t, err)

	shipped := outbox.WithSubjectPrefix("Your order has shipped")
	require.Len(t, shipped, 1)
	assert.Contains(t, shipped[0].HTML, "DL123")
}

func TestDeliveredEmailAndNoEmailForOtherStatuses(t *testing.T) {
	_, outbox, svc, order := setup(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, order.ID, store.OrderUpdate{Status: ptr("cancelled")})
	require.NoError(t, err)
	assert.Empty(t, outbox.Messages())

	_, err = svc.Update(ctx, order.ID, store.OrderUpdate{Status: ptr("Delivered")})
	require.NoError(t, err)
	assert.Len(t, outbox.WithSubjectPrefix("Your order has been delivered"), 1)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	_, outbox, svc, order := setup(t)

	_, err := svc.Update(context.Background(), order.ID, store.OrderUpdate{Status: ptr("lost")})
	var invalid *InvalidStatusError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "status", invalid.Field)

	_, err = svc.Update(context.Background(), order.ID, store.OrderUpdate{PaymentStatus: ptr("maybe")})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "paymentStatus", invalid.Field)
	assert.Empty(t, outbox.Messages())
}

func TestUpdateMissingOrder(t *testing.T) {
	_, _, svc, _ := setup(t)
	_, err := svc.Update(context.Background(), primitive.NewObjectID(), store.OrderUpdate{Status: ptr("shipped")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetChecksOwnership(t *testing.T) {
	_, _, svc, order := setup(t)
	ctx := context.Background()

	got, err := svc.Get(ctx, order.ID, models.User{ID: *order.UserID, Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "OIKO-42", got.OrderRef)

	_, err = svc.Get(ctx, order.ID, models.User{ID: primitive.NewObjectID(), Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, order.ID, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
	assert.NoError(t, err)
}

func TestAdminListIncludesStats(t *testing.T) {
	_, _, svc, _ := setup(t)

	list, err := svc.AdminList(context.Background(), store.OrderFilter{Search: "oiko-4"}, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(1), list.Stats.Total)
	assert.Equal(t, 2598.0, list.Stats.Revenue)
	assert.Equal(t, int64(1), list.Stats.ByStatus[models.OrderStatusProcessing])

	_, err = svc.AdminList(context.Background(), store.OrderFilter{Status: "bogus"}, store.Page{})
	var invalid *InvalidStatusError
	assert.ErrorAs(t, err, &invalid)
}
