package domain

import (
	"encoding/json"

	"github.com/you/eventfoundry/pkg/apperr"
)

// Gateway webhook kinds this service settles on.
const (
	KindPaymentAuthorized = "payment.authorized"
	KindPaymentCaptured   = "payment.captured"
	KindPaymentFailed     = "payment.failed"
	KindOrderPaid         = "order.paid"
	KindRefundCreated     = "refund.created"
	KindPayoutProcessed   = "payout.processed"
	KindPayoutReversed    = "payout.reversed"
)

// GatewayEvent is the parsed webhook as a tagged variant: one concrete type
// per kind, carrying only the fields that kind needs. The dispatcher switches
// on the concrete type; gateway kinds we don't know map to Unknown and are
// acknowledged without effects.
type GatewayEvent interface {
	Kind() string
	EventID() string
}

type PaymentAuthorized struct {
	ID        string
	OrderID   string
	PaymentID string
	Amount    int64
	Method    string
}

func (e PaymentAuthorized) Kind() string    { return KindPaymentAuthorized }
func (e PaymentAuthorized) EventID() string { return e.ID }

type PaymentCaptured struct {
	ID        string
	OrderID   string
	PaymentID string
	Amount    int64
	Method    string
}

func (e PaymentCaptured) Kind() string    { return KindPaymentCaptured }
func (e PaymentCaptured) EventID() string { return e.ID }

type PaymentFailed struct {
	ID        string
	OrderID   string
	PaymentID string
	Reason    string
}

func (e PaymentFailed) Kind() string    { return KindPaymentFailed }
func (e PaymentFailed) EventID() string { return e.ID }

type OrderPaid struct {
	ID      string
	OrderID string
	Amount  int64
}

func (e OrderPaid) Kind() string    { return KindOrderPaid }
func (e OrderPaid) EventID() string { return e.ID }

type RefundCreated struct {
	ID        string
	RefundID  string
	PaymentID string
	Amount    int64
}

func (e RefundCreated) Kind() string    { return KindRefundCreated }
func (e RefundCreated) EventID() string { return e.ID }

type PayoutProcessed struct {
	ID       string
	PayoutID string
	Amount   int64
	UTR      string
}

func (e PayoutProcessed) Kind() string    { return KindPayoutProcessed }
func (e PayoutProcessed) EventID() string { return e.ID }

type PayoutReversed struct {
	ID       string
	PayoutID string
	Reason   string
}

func (e PayoutReversed) Kind() string    { return KindPayoutReversed }
func (e PayoutReversed) EventID() string { return e.ID }

type Unknown struct {
	ID      string
	RawKind string
}

func (e Unknown) Kind() string    { return e.RawKind }
func (e Unknown) EventID() string { return e.ID }

// wire shapes of the Razorpay envelope

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

type orderEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type payoutEntity struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	UTR           string `json:"utr"`
	FailureReason string `json:"failure_reason"`
}

type envelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
		Payout *struct {
			Entity payoutEntity `json:"entity"`
		} `json:"payout"`
	} `json:"payload"`
}

// ParseGatewayEvent decodes a verified webhook body. headerEventID is the
// gateway's delivery id header and wins over any id in the body, since the
// envelope itself carries none on some gateway versions.
func ParseGatewayEvent(body []byte, headerEventID string) (GatewayEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperr.Validationf("malformed webhook body: %v", err)
	}
	id := headerEventID
	if id == "" {
		id = env.ID
	}
	if id == "" {
		return nil, apperr.Validationf("webhook delivery carries no event id")
	}
	if env.Event == "" {
		return nil, apperr.Validationf("webhook delivery carries no event kind")
	}

	switch env.Event {
	case KindPaymentAuthorized:
		p, err := env.payment()
		if err != nil {
			return nil, err
		}
		return PaymentAuthorized{ID: id, OrderID: p.OrderID, PaymentID: p.ID, Amount: p.Amount, Method: p.Method}, nil
	case KindPaymentCaptured:
		p, err := env.payment()
		if err != nil {
			return nil, err
		}
		return PaymentCaptured{ID: id, OrderID: p.OrderID, PaymentID: p.ID, Amount: p.Amount, Method: p.Method}, nil
	case KindPaymentFailed:
		p, err := env.payment()
		if err != nil {
			return nil, err
		}
		return PaymentFailed{ID: id, OrderID: p.OrderID, PaymentID: p.ID, Reason: p.ErrorDescription}, nil
	case KindOrderPaid:
		if env.Payload.Order == nil {
			return nil, apperr.Validationf("%s event without order entity", env.Event)
		}
		o := env.Payload.Order.Entity
		return OrderPaid{ID: id, OrderID: o.ID, Amount: o.AmountPaid}, nil
	case KindRefundCreated:
		if env.Payload.Refund == nil {
			return nil, apperr.Validationf("%s event without refund entity", env.Event)
		}
		r := env.Payload.Refund.Entity
		return RefundCreated{ID: id, RefundID: r.ID, PaymentID: r.PaymentID, Amount: r.Amount}, nil
	case KindPayoutProcessed:
		p, err := env.payout()
		if err != nil {
			return nil, err
		}
		return PayoutProcessed{ID: id, PayoutID: p.ID, Amount: p.Amount, UTR: p.UTR}, nil
	case KindPayoutReversed:
		p, err := env.payout()
		if err != nil {
			return nil, err
		}
		return PayoutReversed{ID: id, PayoutID: p.ID, Reason: p.FailureReason}, nil
	default:
		return Unknown{ID: id, RawKind: env.Event}, nil
	}
}

func (env *envelope) payment() (paymentEntity, error) {
	if env.Payload.Payment == nil {
		return paymentEntity{}, apperr.Validationf("%s event without payment entity", env.Event)
	}
	return env.Payload.Payment.Entity, nil
}

func (env *envelope) payout() (payoutEntity, error) {
	if env.Payload.Payout == nil {
		return payoutEntity{}, apperr.Validationf("%s event without payout entity", env.Event)
	}
	return env.Payload.Payout.Entity, nil
}
