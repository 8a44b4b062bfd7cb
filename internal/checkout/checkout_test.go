package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"oiko/internal/mailer"
	"oiko/internal/metrics"
	"oiko/internal/models"
	"oiko/internal/payments"
	"oiko/internal/store"
	"oiko/internal/store/memstore"
)

type fakeGateway struct {
	last payments.IntentRequest
	err  error
}

func (g *fakeGateway) CreateIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &payments.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type fixture struct {
	db      *memstore.Store
	outbox  *mailer.Outbox
	gateway *fakeGateway
	svc     *Service
}

var fixedNow = time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

func newFixture() fixture {
	db := memstore.New()
	outbox := &mailer.Outbox{}
	gw := &fakeGateway{}
	svc := NewService(db.Users(), db.Products(), db.Orders(), gw,
		mailer.New(outbox, "", metrics.Nop{}), metrics.Nop{},
		Config{ShippingFee: 99, Currency: "inr"}).
		WithClock(func() time.Time { return fixedNow })
	return fixture{db: db, outbox: outbox, gateway: gw, svc: svc}
}

func (f fixture) addProduct(t *testing.T, name, category string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Slug: name, Category: category, Price: price, Stock: stock, IsActive: true}
	require.NoError(t, f.db.Products().Create(context.Background(), &p))
	return p
}

func (f fixture) addUser(t *testing.T, points int) primitive.ObjectID {
	t.Helper()
	u := models.User{Email: primitive.NewObjectID().Hex() + "@example.com", FragmentPoints: points,
		Cart: []models.CartItem{{ID: "line-1", ProductID: "x", Quantity: 1}}}
	require.NoError(t, f.db.Users().Create(context.Background(), &u))
	return u.ID
}

func (f fixture) user(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := f.db.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func customer() models.CustomerInfo {
	return models.CustomerInfo{Name: "Asha", Email: "asha@example.com", Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001", Country: "IN"}
}

func TestPrice(t *testing.T) {
	f := newFixture()
	q := f.svc.Price([]models.OrderItem{
		{Category: "hoodies", Price: 2499, Quantity: 2},
		{Category: "hats", Price: 799.5, Quantity: 1},
	})

	assert.Equal(t, 5797.5, q.Subtotal)
	assert.Equal(t, 99.0, q.Shipping)
	assert.Equal(t, 5896.5, q.Total)
	assert.Equal(t, 39, q.PointsEarned)
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newFixture()
	hoodie := f.addProduct(t, "hoodie", "hoodies", 2499, 10)
	userID := f.addUser(t, 0)

	res, err := f.svc.CreatePaymentIntent(context.Background(), IntentInput{
		UserID: &userID,
		Email:  "asha@example.com",
		Items:  []models.OrderItem{{ProductID: hoodie.ID.Hex(), Price: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_test_secret", res.ClientSecret)
	assert.Equal(t, "pi_test", res.PaymentIntentID)
	// Client price is trusted; the mismatch is only logged.
	assert.Equal(t, 100.0, res.Total)
	assert.Equal(t, 18, res.PointsEarned)

	assert.Equal(t, "inr", f.gateway.last.Currency)
	assert.Equal(t, 100.0, f.gateway.last.Amount)
	assert.Equal(t, userID.Hex(), f.gateway.last.Metadata["userId"])
	assert.Equal(t, "18", f.gateway.last.Metadata["pointsEarned"])
}

func TestCreatePaymentIntentProviderFailure(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("card network down")

	_, err := f.svc.CreatePaymentIntent(context.Background(), IntentInput{
		Items: []models.OrderItem{{ProductID: "legacy-1", Price: 10, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrPaymentProvider)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOrder(context.Background(), OrderInput{CustomerInfo: customer()})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.CreateOrder(context.Background(), OrderInput{
		Items: []models.OrderItem{{ProductID: "legacy-1", Price: 10, Quantity: 1}},
	})
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.CreateOrder(context.Background(), OrderInput{
		CustomerInfo: customer(),
		Items:        []models.OrderItem{{ProductID: "legacy-1", Price: 10, Quantity: 0}},
	})
	require.ErrorAs(t, err, &verr)
}

func TestCreateOrderRejectsInsufficientStock(t *testing.T) {
	f := newFixture()
	tee := f.addProduct(t, "Fragment Tee", "tshirts", 1299, 5)

	_, err := f.svc.CreateOrder(context.Background(), OrderInput{
		CustomerInfo: customer(),
		Items:        []models.OrderItem{{ProductID: tee.ID.Hex(), ProductName: "Fragment Tee", Price: 1299, Quantity: 6}},
	})

	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Contains(t, err.Error(), "Fragment Tee")
	assert.Contains(t, err.Error(), "Available: 5, Requested: 6")
	assert.Equal(t, 5, f.db.Products().Stock(tee.ID))

	orders, total, err := f.db.Orders().List(context.Background(), store.OrderFilter{}, store.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
}

func TestCreateOrderReservesStock(t *testing.T) {
	f := newFixture()
	tee := f.addProduct(t, "Fragment Tee", "tshirts", 1299, 5)
	userID := f.addUser(t, 0)

	order, err := f.svc.CreateOrder(context.Background(), OrderInput{
		UserID:          &userID,
		CustomerInfo:    customer(),
		PaymentIntentID: "pi_abc",
		Items: []models.OrderItem{
			{ProductID: tee.ID.Hex(), ProductName: "Fragment Tee", Price: 1299, Quantity: 5},
			{ProductID: "legacy-socks", ProductName: "Socks", Category: "socks", Price: 299, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.db.Products().Stock(tee.ID))
	assert.Equal(t, "OIKO-1777629600000", order.OrderRef)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "tshirts", order.Items[0].Category)
	assert.Equal(t, 12*5+3, order.PointsEarned)
	assert.False(t, order.PointsCredited)
	assert.Equal(t, 6794.0+99, order.Total)

	u := f.user(t, userID)
	assert.Empty(t, u.Cart)
	assert.Equal(t, 0, u.FragmentPoints)

	assert.Len(t, f.outbox.WithSubjectPrefix("Order received"), 1)
}

func TestCreateOrderReleasesStockWhenInsertFails(t *testing.T) {
	f := newFixture()
	tee := f.addProduct(t, "Fragment Tee", "tshirts", 1299, 5)
	f.db.FailOrderCreate = errors.New("primary stepped down")

	_, err := f.svc.CreateOrder(context.Background(), OrderInput{
		CustomerInfo: customer(),
		Items:        []models.OrderItem{{ProductID: tee.ID.Hex(), Price: 1299, Quantity: 2}},
	})

	require.Error(t, err)
	assert.Equal(t, 5, f.db.Products().Stock(tee.ID))
	assert.Empty(t, f.outbox.Messages())
}

func (f fixture) placeOrder(t *testing.T, userID primitive.ObjectID, intentID string, points int, credited bool) models.Order {
	t.Helper()
	order := models.Order{
		OrderRef:        "OIKO-" + intentID,
		UserID:          &userID,
		CustomerInfo:    customer(),
		PointsEarned:    points,
		PointsCredited:  credited,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentIntentID: intentID,
	}
	require.NoError(t, f.db.Orders().Create(context.Background(), &order))
	return order
}

func (f fixture) order(t *testing.T, id primitive.ObjectID) *models.Order {
	t.Helper()
	o, err := f.db.Orders().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestReconcilePaymentSucceeded(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 5)
	order := f.placeOrder(t, userID, "pi_ok", 39, false)
	ev := payments.Event{Type: "payment_intent.succeeded", Kind: payments.EventPaymentSucceeded, PaymentIntentID: "pi_ok"}

	outcome, err := f.svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	stored := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	assert.True(t, stored.PointsCredited)
	assert.Equal(t, 44, f.user(t, userID).FragmentPoints)
	assert.Len(t, f.outbox.WithSubjectPrefix("Payment confirmed"), 1)

	// Provider retries must not credit twice or resend.
	_, err = f.svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, 44, f.user(t, userID).FragmentPoints)
	assert.Len(t, f.outbox.WithSubjectPrefix("Payment confirmed"), 1)
}

func TestReconcileReplayKeepsFulfilmentStatus(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 0)
	order := f.placeOrder(t, userID, "pi_ship", 18, false)
	ev := payments.Event{Kind: payments.EventPaymentSucceeded, PaymentIntentID: "pi_ship"}

	_, err := f.svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)

	shipped := models.OrderStatusShipped
	_, err = f.db.Orders().Update(context.Background(), order.ID, store.OrderUpdate{Status: &shipped})
	require.NoError(t, err)

	_, err = f.svc.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, f.order(t, order.ID).Status)
	assert.Equal(t, 18, f.user(t, userID).FragmentPoints)
}

func TestReconcileSuccessAfterRefundIsStale(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 0)
	order := f.placeOrder(t, userID, "pi_late", 18, false)
	paid := payments.Event{Kind: payments.EventPaymentSucceeded, PaymentIntentID: "pi_late"}

	_, err := f.svc.Reconcile(context.Background(), paid)
	require.NoError(t, err)
	_, err = f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventRefunded, PaymentIntentID: "pi_late"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.user(t, userID).FragmentPoints)

	outcome, err := f.svc.Reconcile(context.Background(), paid)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)

	stored := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.False(t, stored.PointsCredited)
	assert.Equal(t, 0, f.user(t, userID).FragmentPoints)
	assert.Len(t, f.outbox.WithSubjectPrefix("Payment confirmed"), 1)
}

func TestReconcileFailureAfterSuccessIsStale(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 0)
	order := f.placeOrder(t, userID, "pi_flap", 18, false)

	_, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventPaymentSucceeded, PaymentIntentID: "pi_flap"})
	require.NoError(t, err)

	outcome, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventPaymentFailed, PaymentIntentID: "pi_flap"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)

	stored := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	assert.True(t, stored.PointsCredited)
	assert.Equal(t, 18, f.user(t, userID).FragmentPoints)
}

func TestReconcileFailureAfterRefundIsStale(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 0)
	order := f.placeOrder(t, userID, "pi_gone", 18, true)

	_, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventRefunded, PaymentIntentID: "pi_gone"})
	require.NoError(t, err)

	outcome, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventPaymentFailed, PaymentIntentID: "pi_gone"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)
	assert.Equal(t, models.PaymentStatusRefunded, f.order(t, order.ID).PaymentStatus)
}

func TestReconcileAccrualIsNotCapped(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 95)
	f.placeOrder(t, userID, "pi_big", 36, false)

	_, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventPaymentSucceeded, PaymentIntentID: "pi_big"})
	require.NoError(t, err)
	assert.Equal(t, 131, f.user(t, userID).FragmentPoints)
}

func TestReconcilePaymentFailed(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 0)
	order := f.placeOrder(t, userID, "pi_fail", 18, false)

	_, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventPaymentFailed, PaymentIntentID: "pi_fail"})
	require.NoError(t, err)

	stored := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, 0, f.user(t, userID).FragmentPoints)
}

func TestReconcileRefundFloorsBalanceAtZero(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 10)
	order := f.placeOrder(t, userID, "pi_refund", 40, true)

	_, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventRefunded, PaymentIntentID: "pi_refund"})
	require.NoError(t, err)

	stored := f.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.False(t, stored.PointsCredited)
	assert.Equal(t, 0, f.user(t, userID).FragmentPoints)
}

func TestReconcileRefundWithoutCreditLeavesBalance(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, 25)
	f.placeOrder(t, userID, "pi_unpaid", 40, false)

	_, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventRefunded, PaymentIntentID: "pi_unpaid"})
	require.NoError(t, err)
	assert.Equal(t, 25, f.user(t, userID).FragmentPoints)
}

func TestReconcileUnknownIntent(t *testing.T) {
	f := newFixture()

	outcome, err := f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventPaymentSucceeded, PaymentIntentID: "pi_nobody"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmatched, outcome)

	outcome, err = f.svc.Reconcile(context.Background(), payments.Event{Kind: payments.EventIgnored, Type: "customer.created"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}
