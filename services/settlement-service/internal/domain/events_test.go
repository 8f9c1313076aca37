package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/eventfoundry/pkg/apperr"
)

const capturedBody = `{
  "event": "payment.captured",
  "payload": {
    "payment": {
      "entity": {
        "id": "pay_abc",
        "order_id": "order_xyz",
        "amount": 100000,
        "method": "upi"
      }
    }
  }
}`

func TestParsePaymentCaptured(t *testing.T) {
	ev, err := ParseGatewayEvent([]byte(capturedBody), "evt_1")
	require.NoError(t, err)

	pc, ok := ev.(PaymentCaptured)
	require.True(t, ok)
	assert.Equal(t, "evt_1", pc.ID)
	assert.Equal(t, "order_xyz", pc.OrderID)
	assert.Equal(t, "pay_abc", pc.PaymentID)
	assert.Equal(t, int64(100000), pc.Amount)
	assert.Equal(t, "upi", pc.Method)
}

func TestParseHeaderIDWinsOverBody(t *testing.T) {
	body := `{"id":"evt_body","event":"order.paid","payload":{"order":{"entity":{"id":"order_1","amount_paid":5000}}}}`

	ev, err := ParseGatewayEvent([]byte(body), "evt_header")
	require.NoError(t, err)
	assert.Equal(t, "evt_header", ev.EventID())

	ev, err = ParseGatewayEvent([]byte(body), "")
	require.NoError(t, err)
	assert.Equal(t, "evt_body", ev.EventID())
}

func TestParsePayoutEvents(t *testing.T) {
	processed := `{"event":"payout.processed","payload":{"payout":{"entity":{"id":"pout_1","amount":90000,"utr":"UTR123"}}}}`
	ev, err := ParseGatewayEvent([]byte(processed), "evt_2")
	require.NoError(t, err)
	pp, ok := ev.(PayoutProcessed)
	require.True(t, ok)
	assert.Equal(t, "pout_1", pp.PayoutID)
	assert.Equal(t, "UTR123", pp.UTR)

	reversed := `{"event":"payout.reversed","payload":{"payout":{"entity":{"id":"pout_1","failure_reason":"beneficiary account closed"}}}}`
	ev, err = ParseGatewayEvent([]byte(reversed), "evt_3")
	require.NoError(t, err)
	pr, ok := ev.(PayoutReversed)
	require.True(t, ok)
	assert.Equal(t, "beneficiary account closed", pr.Reason)
}

func TestParseRefundCreated(t *testing.T) {
	body := `{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_abc","amount":25000}}}}`
	ev, err := ParseGatewayEvent([]byte(body), "evt_4")
	require.NoError(t, err)
	r, ok := ev.(RefundCreated)
	require.True(t, ok)
	assert.Equal(t, "rfnd_1", r.RefundID)
	assert.Equal(t, "pay_abc", r.PaymentID)
	assert.Equal(t, int64(25000), r.Amount)
}

func TestParseUnknownKindIsNotAnError(t *testing.T) {
	body := `{"event":"invoice.paid","payload":{}}`
	ev, err := ParseGatewayEvent([]byte(body), "evt_5")
	require.NoError(t, err)
	u, ok := ev.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "invoice.paid", u.Kind())
}

func TestParseRejectsBadDeliveries(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseGatewayEvent([]byte(`{not json`), "evt_x")
		assert.True(t, apperr.IsValidation(err))
	})
	t.Run("no event id anywhere", func(t *testing.T) {
		_, err := ParseGatewayEvent([]byte(`{"event":"payment.captured"}`), "")
		assert.True(t, apperr.IsValidation(err))
	})
	t.Run("no kind", func(t *testing.T) {
		_, err := ParseGatewayEvent([]byte(`{"id":"evt_1"}`), "")
		assert.True(t, apperr.IsValidation(err))
	})
	t.Run("missing entity for kind", func(t *testing.T) {
		_, err := ParseGatewayEvent([]byte(`{"event":"payment.captured","payload":{}}`), "evt_1")
		assert.True(t, apperr.IsValidation(err))
	})
}
