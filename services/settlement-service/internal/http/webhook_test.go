package httpx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/services/settlement-service/internal/domain"
	"github.com/you/eventfoundry/services/settlement-service/internal/service"
)

const testSecret = "whsec_test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type memDeliveries struct {
	recs map[string]*domain.WebhookDelivery
}

func (m *memDeliveries) RecordDelivery(_ context.Context, id, kind string, payload []byte) error {
	if _, ok := m.recs[id]; !ok {
		m.recs[id] = &domain.WebhookDelivery{GatewayEventID: id, Kind: kind, Payload: payload, ReceivedAt: time.Now()}
	}
	return nil
}

func (m *memDeliveries) ProcessDelivery(_ context.Context, id string, apply func(domain.Ledger) error) (bool, error) {
	d := m.recs[id]
	if d.Processed {
		return true, nil
	}
	if err := apply(nil); err != nil {
		return false, err
	}
	d.Processed = true
	return false, nil
}

type stubDispatcher struct{ err error }

func (d *stubDispatcher) Dispatch(context.Context, domain.Ledger, domain.GatewayEvent) error {
	return d.err
}

func post(t *testing.T, h http.Handler, body []byte, sig, eventID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", sig)
	req.Header.Set("X-Razorpay-Event-Id", eventID)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newHandler(disp service.Dispatcher) (*memDeliveries, http.Handler) {
	store := &memDeliveries{recs: map[string]*domain.WebhookDelivery{}}
	gate := service.NewIngestionGate(store, disp, testSecret)
	return store, NewWebhookServer(gate, nil).Routes()
}

var body = []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":100000}}}}`)

func TestWebhookAccepts(t *testing.T) {
	store, h := newHandler(&stubDispatcher{})

	w := post(t, h, body, sign(body), "evt_1")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, store.recs, "evt_1")
	assert.True(t, store.recs["evt_1"].Processed)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store, h := newHandler(&stubDispatcher{})

	w := post(t, h, body, "deadbeef", "evt_1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, store.recs)
}

func TestWebhookSignedButMalformedBodyIs400(t *testing.T) {
	store, h := newHandler(&stubDispatcher{})
	malformed := []byte(`{"payload":{}}`) // no event kind

	w := post(t, h, malformed, sign(malformed), "evt_1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.recs)
}

func TestWebhookInvariantViolationIs422(t *testing.T) {
	_, h := newHandler(&stubDispatcher{err: apperr.Invariantf("refund exceeds captured amount")})

	w := post(t, h, body, sign(body), "evt_1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWebhookTransientFailureAsksForRetry(t *testing.T) {
	_, h := newHandler(&stubDispatcher{err: errors.New("db down")})

	w := post(t, h, body, sign(body), "evt_1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	_, h := newHandler(&stubDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/webhooks/razorpay", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRefundEndpointRejectsBadRequests(t *testing.T) {
	_, h := newHandler(&stubDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/internal/refunds", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/internal/refunds", bytes.NewReader([]byte("not json")))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
