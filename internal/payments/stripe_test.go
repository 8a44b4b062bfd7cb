package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhookPaymentSucceeded(t *testing.T) {
	s := NewStripe("", testSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)

	ev, err := s.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, EventPaymentSucceeded, ev.Kind)
	assert.Equal(t, "pi_123", ev.PaymentIntentID)
	assert.Equal(t, "evt_1", ev.ID)
}

func TestParseWebhookPaymentFailed(t *testing.T) {
	s := NewStripe("", testSecret)
	payload := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_9","object":"payment_intent"}}}`)

	ev, err := s.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Kind)
	assert.Equal(t, "pi_9", ev.PaymentIntentID)
}

func TestParseWebhookRefundCarriesIntent(t *testing.T) {
	s := NewStripe("", testSecret)
	payload := []byte(`{"id":"evt_3","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_77"}}}`)

	ev, err := s.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventRefunded, ev.Kind)
	assert.Equal(t, "pi_77", ev.PaymentIntentID)
}

func TestParseWebhookIgnoresOtherEvents(t *testing.T) {
	s := NewStripe("", testSecret)
	payload := []byte(`{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	ev, err := s.ParseWebhook(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, ev.Kind)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	s := NewStripe("", testSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	_, err := s.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.ParseWebhook(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.ParseWebhook(payload, sign(payload, testSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestUnconfiguredProvider(t *testing.T) {
	s := NewStripe("", "")

	_, err := s.CreateIntent(context.Background(), IntentRequest{Amount: 10, Currency: "inr"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = s.ParseWebhook([]byte(`{}`), "t=1,v1=00")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(509700), MinorUnits(5097))
	assert.Equal(t, int64(1999), MinorUnits(19.99))
	assert.Equal(t, int64(0), MinorUnits(0))
}
