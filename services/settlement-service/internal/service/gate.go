package service

import (
	"context"
	"log"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/services/settlement-service/internal/domain"
	"github.com/you/eventfoundry/services/settlement-service/internal/razorpay"
)

// Dispatcher applies a parsed gateway event against a transaction-bound
// ledger.
type Dispatcher interface {
	Dispatch(ctx context.Context, led domain.Ledger, ev domain.GatewayEvent) error
}

// ErrSignatureMismatch is returned before any parsing or ledger work when the
// webhook signature check fails. The HTTP layer answers it with 401, unlike
// other validation errors.
var ErrSignatureMismatch = apperr.Validationf("webhook signature mismatch")

// IngestionGate is the webhook front door: verify the signature over the raw
// body, parse, record the delivery, then process it exactly once.
type IngestionGate struct {
	deliveries domain.DeliveryStore
	disp       Dispatcher
	secret     string
}

func NewIngestionGate(deliveries domain.DeliveryStore, disp Dispatcher, webhookSecret string) *IngestionGate {
	return &IngestionGate{deliveries: deliveries, disp: disp, secret: webhookSecret}
}

// Ingest handles one webhook delivery. Redeliveries of an already-processed
// gateway event id succeed without touching the ledger again. Any error means
// nothing was marked processed and the gateway should retry.
func (g *IngestionGate) Ingest(ctx context.Context, body []byte, signature, headerEventID string) error {
	if !razorpay.VerifyWebhookSignature(body, signature, g.secret) {
		return ErrSignatureMismatch
	}

	ev, err := domain.ParseGatewayEvent(body, headerEventID)
	if err != nil {
		return err
	}

	if err := g.deliveries.RecordDelivery(ctx, ev.EventID(), ev.Kind(), body); err != nil {
		return err
	}

	already, err := g.deliveries.ProcessDelivery(ctx, ev.EventID(), func(led domain.Ledger) error {
		return g.disp.Dispatch(ctx, led, ev)
	})
	if err != nil {
		return err
	}
	if already {
		log.Printf("[settlement] duplicate delivery %s (%s), skipping", ev.EventID(), ev.Kind())
	}
	return nil
}
