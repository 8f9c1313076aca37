package domain

import (
	"context"
	"time"
)

// Ledger is the transactional mutation surface settlement handlers run on.
// Inside webhook processing it is bound to the delivery transaction; the
// repository implements it, tests use in-memory fakes.
type Ledger interface {
	PaymentByID(ctx context.Context, id string) (*Payment, error)
	PaymentByOrderID(ctx context.Context, orderID string) (*Payment, error)
	PaymentByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*Payment, error)

	MarkPaymentProcessing(ctx context.Context, orderID, gatewayPaymentID, method string) error
	MarkPaymentCaptured(ctx context.Context, paymentID, gatewayPaymentID, method string, commission, vendorPayable int64, paidAt, payoutAt time.Time) error
	MarkPaymentFailed(ctx context.Context, orderID, reason string) error
	MarkOrderPaid(ctx context.Context, orderID string) error
	AddRefund(ctx context.Context, paymentID string, amount int64) error

	RecordRevenue(ctx context.Context, rev CommissionRevenue) error
	ContractByID(ctx context.Context, id string) (*Contract, error)
	SetContractStatus(ctx context.Context, contractID, status string) error
	SetEventForgeStatus(ctx context.Context, eventID, status string) error

	PayoutByGatewayID(ctx context.Context, gatewayPayoutID string) (*VendorPayout, error)
	TransitionPayout(ctx context.Context, payoutID string, to PayoutStatus, reason string) error
	MarkVendorPaid(ctx context.Context, paymentID, gatewayPayoutID string, at time.Time) error
}

// DeliveryStore guards at-most-once application of webhook deliveries.
type DeliveryStore interface {
	// RecordDelivery creates the audit/idempotency row on first sight; a
	// duplicate id is not an error.
	RecordDelivery(ctx context.Context, id, kind string, payload []byte) error
	// ProcessDelivery serializes on the delivery row, returns
	// alreadyProcessed without calling apply when effects were applied
	// before, and marks the row processed only if apply succeeds.
	ProcessDelivery(ctx context.Context, id string, apply func(led Ledger) error) (alreadyProcessed bool, err error)
}

// SettlementStore is the full storage capability of the settlement service:
// the ledger outside any delivery transaction plus payout/payment bookkeeping
// for the outbound flows.
type SettlementStore interface {
	Ledger

	CreatePayment(ctx context.Context, p *Payment) error
	PaymentExistsForContract(ctx context.Context, contractID string) (bool, error)
	CreatePayout(ctx context.Context, p *VendorPayout) error
	DuePayments(ctx context.Context, now time.Time) ([]Payment, error)

	// ClaimForPayout ties the payment to an in-flight payout before any
	// gateway call. The claim is conditional on the payment being unclaimed;
	// a lost race returns a conflict.
	ClaimForPayout(ctx context.Context, paymentID, ref string) error
	// ReleasePayoutClaim frees a claim whose gateway call never went through.
	ReleasePayoutClaim(ctx context.Context, paymentID, ref string) error
}
