package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/services/settlement-service/internal/domain"
)

const testSecret = "whsec_test"

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type countingDispatcher struct {
	calls int
	err   error
	last  domain.GatewayEvent
}

func (d *countingDispatcher) Dispatch(_ context.Context, _ domain.Ledger, ev domain.GatewayEvent) error {
	d.calls++
	d.last = ev
	return d.err
}

var capturedWebhook = []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":100000,"method":"upi"}}}}`)

func TestIngestVerifiesThenDispatches(t *testing.T) {
	led := newFakeLedger()
	disp := &countingDispatcher{}
	gate := NewIngestionGate(led, disp, testSecret)

	err := gate.Ingest(context.Background(), capturedWebhook, signBody(capturedWebhook), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, 1, disp.calls)

	ev, ok := disp.last.(domain.PaymentCaptured)
	require.True(t, ok)
	assert.Equal(t, "evt_1", ev.ID)
	assert.True(t, led.deliveries["evt_1"].Processed)
}

func TestIngestRejectsTamperedSignatureBeforeAnyWork(t *testing.T) {
	led := newFakeLedger()
	disp := &countingDispatcher{}
	gate := NewIngestionGate(led, disp, testSecret)

	err := gate.Ingest(context.Background(), capturedWebhook, "deadbeef", "evt_1")
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Zero(t, disp.calls)
	assert.Empty(t, led.deliveries)
	assert.Zero(t, led.mutations)
}

func TestIngestDuplicateDeliveryShortCircuits(t *testing.T) {
	led := newFakeLedger()
	disp := &countingDispatcher{}
	gate := NewIngestionGate(led, disp, testSecret)
	ctx := context.Background()
	sig := signBody(capturedWebhook)

	require.NoError(t, gate.Ingest(ctx, capturedWebhook, sig, "evt_1"))
	require.NoError(t, gate.Ingest(ctx, capturedWebhook, sig, "evt_1"))
	assert.Equal(t, 1, disp.calls)
}

func TestIngestHandlerFailureLeavesDeliveryUnprocessed(t *testing.T) {
	led := newFakeLedger()
	disp := &countingDispatcher{err: errors.New("db down")}
	gate := NewIngestionGate(led, disp, testSecret)
	ctx := context.Background()
	sig := signBody(capturedWebhook)

	err := gate.Ingest(ctx, capturedWebhook, sig, "evt_1")
	require.Error(t, err)
	require.Contains(t, led.deliveries, "evt_1")
	assert.False(t, led.deliveries["evt_1"].Processed)

	// the gateway retry succeeds once the handler recovers
	disp.err = nil
	require.NoError(t, gate.Ingest(ctx, capturedWebhook, sig, "evt_1"))
	assert.True(t, led.deliveries["evt_1"].Processed)
	assert.Equal(t, 2, disp.calls)
}

func TestIngestRejectsUnparseableBody(t *testing.T) {
	led := newFakeLedger()
	disp := &countingDispatcher{}
	gate := NewIngestionGate(led, disp, testSecret)
	body := []byte(`{"payload":{}}`) // no kind

	err := gate.Ingest(context.Background(), body, signBody(body), "evt_1")
	assert.True(t, apperr.IsValidation(err))
	assert.NotErrorIs(t, err, ErrSignatureMismatch)
	assert.Zero(t, disp.calls)
}

func TestIngestEndToEndIdempotence(t *testing.T) {
	led := newFakeLedger()
	led.seedContractedPayment()
	svc, _ := newTestSvc(led, &fakeGateway{})
	gate := NewIngestionGate(led, svc, testSecret)
	ctx := context.Background()
	sig := signBody(capturedWebhook)

	require.NoError(t, gate.Ingest(ctx, capturedWebhook, sig, "evt_1"))
	after := led.mutations

	// identical redelivery changes nothing
	require.NoError(t, gate.Ingest(ctx, capturedWebhook, sig, "evt_1"))
	assert.Equal(t, after, led.mutations)
	assert.Equal(t, domain.PaymentStatusCompleted, led.payments["p1"].Status)
	assert.Equal(t, int64(10_000), led.payments["p1"].CommissionCollected)
	assert.Equal(t, int64(90_000), led.payments["p1"].VendorPayable)
}
