package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oiko/internal/metrics"
	"oiko/internal/models"
)

func sampleOrder() models.Order {
	return models.Order{
		OrderRef: "OIKO-1700000000000",
		Items: []models.OrderItem{
			{ProductName: "Fragment Hoodie", Price: 2499, Quantity: 2, Size: "L", Color: "Black"},
		},
		CustomerInfo: models.CustomerInfo{
			Name:       "Asha",
			Email:      "asha@example.com",
			Line1:      "12 MG Road",
			City:       "Bengaluru",
			PostalCode: "560001",
		},
		Shipping:       99,
		Total:          5097,
		PointsEarned:   36,
		TrackingNumber: "DL123",
	}
}

func TestOrderEmailsRenderOrderDetails(t *testing.T) {
	outbox := &Outbox{}
	m := New(outbox, "", metrics.Nop{})
	ctx := context.Background()

	m.OrderReceived(ctx, sampleOrder())
	m.OrderShipped(ctx, sampleOrder())

	msgs := outbox.Messages()
	require.Len(t, msgs, 2)

	assert.Equal(t, []string{"asha@example.com"}, msgs[0].To)
	assert.Equal(t, "Order received: OIKO-1700000000000", msgs[0].Subject)
	assert.Contains(t, msgs[0].HTML, "Fragment Hoodie (L, Black) x 2")
	assert.Contains(t, msgs[0].HTML, "₹5097.00")
	assert.Contains(t, msgs[0].HTML, "36 fragment points")

	assert.Contains(t, msgs[1].HTML, "DL123")
	assert.Contains(t, msgs[1].HTML, "12 MG Road")
}

func TestRewardClaimedCopiesAdmin(t *testing.T) {
	outbox := &Outbox{}
	m := New(outbox, "team@oiko.in", metrics.Nop{})

	m.RewardClaimed(context.Background(),
		models.User{Name: "Ravi", Email: "ravi@example.com"},
		models.RewardClaim{Points: 100, Tier: "free", ClaimedAt: time.Now()})

	msgs := outbox.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []string{"ravi@example.com"}, msgs[0].To)
	assert.Equal(t, []string{"team@oiko.in"}, msgs[1].To)
	assert.Contains(t, msgs[1].HTML, "ravi@example.com")
}

func TestSendFailureIsSwallowed(t *testing.T) {
	outbox := &Outbox{Err: errors.New("throttled")}
	m := New(outbox, "", metrics.Nop{})

	assert.NotPanics(t, func() { m.WelcomeSubscriber(context.Background(), "a@b.co") })
	assert.Empty(t, outbox.Messages())
}

func TestMissingRecipientSkipsSend(t *testing.T) {
	outbox := &Outbox{}
	m := New(outbox, "", metrics.Nop{})

	m.TrialReceived(context.Background(), models.TrialRequest{Name: "No Email"})
	assert.Empty(t, outbox.Messages())
}

func TestTemplatesEscapeUserInput(t *testing.T) {
	html, err := render("trial_received", models.TrialRequest{Name: "<script>x</script>", City: "Bengaluru"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

type fakeSES struct {
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{}, nil
}

func TestSESSenderBuildsRequest(t *testing.T) {
	api := &fakeSES{}
	sender := &SESSender{client: api, from: "orders@oiko.in"}

	err := sender.Send(context.Background(), Message{To: []string{"x@y.z"}, Subject: "Hi", HTML: "<p>Hi</p>"})
	require.NoError(t, err)

	require.NotNil(t, api.input)
	assert.Equal(t, "orders@oiko.in", *api.input.Source)
	assert.Equal(t, []string{"x@y.z"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", *api.input.Message.Subject.Data)
	assert.Equal(t, "<p>Hi</p>", *api.input.Message.Body.Html.Data)
	assert.Nil(t, api.input.Message.Body.Text)
}
