package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/services/settlement-service/internal/domain"
	"github.com/you/eventfoundry/services/settlement-service/internal/razorpay"
)

// Publisher is the slice of pkg/mq the settlement service publishes through.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// FundAccounts resolves a vendor's RazorpayX fund account. Vendors register
// their account during onboarding; settlement only looks it up.
type FundAccounts interface {
	FundAccountID(ctx context.Context, vendorID string) (string, error)
}

// StaticFundAccounts is a fixed vendor -> fund account map, enough for
// deployments where onboarding writes the mapping into config.
type StaticFundAccounts map[string]string

func (m StaticFundAccounts) FundAccountID(_ context.Context, vendorID string) (string, error) {
	id, ok := m[vendorID]
	if !ok || id == "" {
		return "", apperr.Validationf("no fund account registered for vendor %s", vendorID)
	}
	return id, nil
}

type SettlementSvc struct {
	store         domain.SettlementStore
	gw            razorpay.Gateway
	pub           Publisher
	accounts      FundAccounts
	payoutAccount string // RazorpayX source account number
	payoutDelay   time.Duration
	now           func() time.Time
}

func NewSettlementSvc(store domain.SettlementStore, gw razorpay.Gateway, pub Publisher, accounts FundAccounts, payoutAccount string, payoutDelay time.Duration) *SettlementSvc {
	return &SettlementSvc{
		store:         store,
		gw:            gw,
		pub:           pub,
		accounts:      accounts,
		payoutAccount: payoutAccount,
		payoutDelay:   payoutDelay,
		now:           time.Now,
	}
}

// Dispatch applies one gateway event against the ledger. It runs inside
// ProcessDelivery's transaction, so a returned error rolls the whole delivery
// back and the gateway retries it. Events referencing payments this system
// never created are acknowledged and dropped.
func (s *SettlementSvc) Dispatch(ctx context.Context, led domain.Ledger, ev domain.GatewayEvent) error {
	switch e := ev.(type) {
	case domain.PaymentAuthorized:
		return s.onAuthorized(ctx, led, e)
	case domain.PaymentCaptured:
		return s.onCaptured(ctx, led, e)
	case domain.PaymentFailed:
		return s.onFailed(ctx, led, e)
	case domain.OrderPaid:
		return s.onOrderPaid(ctx, led, e)
	case domain.RefundCreated:
		return s.onRefund(ctx, led, e)
	case domain.PayoutProcessed:
		return s.onPayoutProcessed(ctx, led, e)
	case domain.PayoutReversed:
		return s.onPayoutReversed(ctx, led, e)
	case domain.Unknown:
		log.Printf("[settlement] ignoring webhook kind=%s id=%s", e.RawKind, e.ID)
		return nil
	default:
		return apperr.Invariantf("unhandled gateway event type %T", ev)
	}
}

func (s *SettlementSvc) onAuthorized(ctx context.Context, led domain.Ledger, e domain.PaymentAuthorized) error {
	p, err := led.PaymentByOrderID(ctx, e.OrderID)
	if err != nil {
		if apperr.IsValidation(err) {
			log.Printf("[settlement] authorized for unknown order %s, dropping", e.OrderID)
			return nil
		}
		return err
	}
	if p.Status == domain.PaymentStatusCompleted {
		return nil
	}
	if err := led.MarkPaymentProcessing(ctx, e.OrderID, e.PaymentID, e.Method); err != nil {
		return err
	}
	// capture immediately; the capture confirmation arrives as its own
	// payment.captured webhook, so a failure here only delays settlement
	if err := s.gw.CapturePayment(ctx, e.PaymentID, e.Amount, "INR"); err != nil {
		log.Printf("[settlement] auto-capture %s failed: %v", e.PaymentID, err)
	}
	return nil
}

func (s *SettlementSvc) onCaptured(ctx context.Context, led domain.Ledger, e domain.PaymentCaptured) error {
	p, err := led.PaymentByOrderID(ctx, e.OrderID)
	if err != nil {
		if apperr.IsValidation(err) {
			log.Printf("[settlement] captured for unknown order %s, dropping", e.OrderID)
			return nil
		}
		return err
	}
	if p.Status == domain.PaymentStatusCompleted {
		return nil
	}

	// the commission terms were frozen on the contract at winner selection; a
	// policy change between selection and capture must not move the split
	c, err := led.ContractByID(ctx, p.ContractID)
	if err != nil {
		return err
	}
	paidAt := s.now().UTC()
	payoutAt := paidAt.Add(s.payoutDelay)
	if err := led.MarkPaymentCaptured(ctx, p.ID, e.PaymentID, e.Method, c.CommissionAmount, c.VendorPayout, paidAt, payoutAt); err != nil {
		return err
	}
	if err := led.RecordRevenue(ctx, domain.CommissionRevenue{
		ContractID:        c.ID,
		PaymentID:         p.ID,
		ProjectValue:      c.ProjectValue,
		CommissionRateBps: c.CommissionRateBps,
		CommissionAmount:  c.CommissionAmount,
		PlatformFee:       c.PlatformFee,
		TotalRevenue:      c.CommissionAmount + c.PlatformFee,
		CommissionTier:    c.CommissionTier,
		CollectedAt:       paidAt,
	}); err != nil {
		return err
	}
	if err := led.SetContractStatus(ctx, c.ID, domain.ContractCommissioned); err != nil {
		return err
	}
	if err := led.SetEventForgeStatus(ctx, c.EventID, domain.ForgeCommissioned); err != nil {
		return err
	}

	if perr := s.pub.PublishJSON(ctx, "payment.captured", map[string]any{
		"payment_id":     p.ID,
		"contract_id":    c.ID,
		"event_id":       c.EventID,
		"vendor_id":      c.VendorID,
		"client_user_id": c.ClientUserID,
		"amount":         e.Amount,
		"vendor_payable": c.VendorPayout,
	}); perr != nil {
		log.Printf("[settlement] publish payment.captured failed: %v", perr)
	}
	return nil
}

func (s *SettlementSvc) onFailed(ctx context.Context, led domain.Ledger, e domain.PaymentFailed) error {
	err := led.MarkPaymentFailed(ctx, e.OrderID, e.Reason)
	if apperr.IsValidation(err) {
		log.Printf("[settlement] failure for unknown order %s, dropping", e.OrderID)
		return nil
	}
	return err
}

func (s *SettlementSvc) onOrderPaid(ctx context.Context, led domain.Ledger, e domain.OrderPaid) error {
	err := led.MarkOrderPaid(ctx, e.OrderID)
	if apperr.IsValidation(err) {
		log.Printf("[settlement] order.paid for unknown order %s, dropping", e.OrderID)
		return nil
	}
	return err
}

func (s *SettlementSvc) onRefund(ctx context.Context, led domain.Ledger, e domain.RefundCreated) error {
	p, err := led.PaymentByGatewayPaymentID(ctx, e.PaymentID)
	if err != nil {
		if apperr.IsValidation(err) {
			log.Printf("[settlement] refund for unknown payment %s, dropping", e.PaymentID)
			return nil
		}
		return err
	}
	if p.RefundedAmount+e.Amount > p.Amount {
		return apperr.Invariantf("refund %s of %d exceeds captured %d (already refunded %d) on payment %s",
			e.RefundID, e.Amount, p.Amount, p.RefundedAmount, p.ID)
	}
	return led.AddRefund(ctx, p.ID, e.Amount)
}

func (s *SettlementSvc) onPayoutProcessed(ctx context.Context, led domain.Ledger, e domain.PayoutProcessed) error {
	po, err := led.PayoutByGatewayID(ctx, e.PayoutID)
	if err != nil {
		if apperr.IsValidation(err) {
			log.Printf("[settlement] processed for unknown payout %s, dropping", e.PayoutID)
			return nil
		}
		return err
	}
	if err := led.TransitionPayout(ctx, po.ID, domain.PayoutStatusPaid, ""); err != nil {
		return err
	}
	if err := led.MarkVendorPaid(ctx, po.PaymentID, e.PayoutID, s.now().UTC()); err != nil {
		return err
	}
	if perr := s.pub.PublishJSON(ctx, "payout.processed", map[string]any{
		"payout_id":  po.ID,
		"payment_id": po.PaymentID,
		"vendor_id":  po.VendorID,
		"amount":     po.Amount,
		"utr":        e.UTR,
	}); perr != nil {
		log.Printf("[settlement] publish payout.processed failed: %v", perr)
	}
	return nil
}

func (s *SettlementSvc) onPayoutReversed(ctx context.Context, led domain.Ledger, e domain.PayoutReversed) error {
	po, err := led.PayoutByGatewayID(ctx, e.PayoutID)
	if err != nil {
		if apperr.IsValidation(err) {
			log.Printf("[settlement] reversal for unknown payout %s, dropping", e.PayoutID)
			return nil
		}
		return err
	}
	return led.TransitionPayout(ctx, po.ID, domain.PayoutStatusReversed, e.Reason)
}

// InitiatePayout pushes one vendor payout through RazorpayX. The payment must
// be captured, not yet paid out, and past its scheduled payout time. The
// payment is claimed with a conditional update before the gateway is called,
// so concurrent sweeps and retries after a partial failure cannot move real
// money twice for the same payment.
func (s *SettlementSvc) InitiatePayout(ctx context.Context, paymentID string) (*domain.VendorPayout, error) {
	p, err := s.store.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentStatusCompleted {
		return nil, apperr.Conflictf("payment %s is %s, payouts need COMPLETED", p.ID, p.Status)
	}
	if p.VendorPayoutID != "" || p.VendorPaidAt != nil {
		return nil, apperr.Conflictf("payment %s already has payout %s", p.ID, p.VendorPayoutID)
	}
	if p.PayoutScheduledAt == nil || s.now().Before(*p.PayoutScheduledAt) {
		return nil, apperr.Conflictf("payout for payment %s not due yet", p.ID)
	}

	c, err := s.store.ContractByID(ctx, p.ContractID)
	if err != nil {
		return nil, err
	}
	fundAccount, err := s.accounts.FundAccountID(ctx, c.VendorID)
	if err != nil {
		return nil, err
	}

	po := &domain.VendorPayout{
		ID:        uuid.NewString(),
		PaymentID: p.ID,
		VendorID:  c.VendorID,
		Amount:    p.VendorPayable,
		Status:    domain.PayoutStatusProcessing,
	}
	if err := s.store.ClaimForPayout(ctx, p.ID, po.ID); err != nil {
		return nil, err
	}
	gwID, err := s.gw.CreatePayout(ctx, razorpay.PayoutRequest{
		AccountNumber: s.payoutAccount,
		FundAccountID: fundAccount,
		Amount:        p.VendorPayable,
		Currency:      "INR",
		Mode:          "IMPS",
		Purpose:       "payout",
		ReferenceID:   p.ID,
		Narration:     fmt.Sprintf("contract %s settlement", c.ID),
	})
	if err != nil {
		// no money moved; free the claim so a later sweep can retry
		if rerr := s.store.ReleasePayoutClaim(ctx, p.ID, po.ID); rerr != nil {
			log.Printf("[settlement] release claim on payment %s failed: %v", p.ID, rerr)
		}
		return nil, apperr.Transientf(err, "create payout for payment %s", p.ID)
	}
	po.RazorpayPayoutID = gwID
	if err := s.store.CreatePayout(ctx, po); err != nil {
		return nil, err
	}
	// swap the claim reference for the gateway payout id; the paid-at
	// timestamp lands when the payout.processed webhook arrives
	if err := s.store.MarkVendorPaid(ctx, p.ID, gwID, time.Time{}); err != nil {
		return nil, err
	}
	return po, nil
}

// InitiateRefund pushes a refund to the gateway. The ledger records it when
// the refund.created webhook comes back, keeping webhooks the single mutation
// path for gateway state.
func (s *SettlementSvc) InitiateRefund(ctx context.Context, paymentID string, amount int64) (string, error) {
	if amount <= 0 {
		return "", apperr.Validationf("refund amount must be positive, got %d", amount)
	}
	p, err := s.store.PaymentByID(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if p.Status != domain.PaymentStatusCompleted && p.Status != domain.PaymentStatusRefunded {
		return "", apperr.Conflictf("payment %s is %s, refunds need a captured payment", p.ID, p.Status)
	}
	if p.RefundedAmount+amount > p.Amount {
		return "", apperr.Invariantf("refund of %d exceeds captured %d (already refunded %d) on payment %s",
			amount, p.Amount, p.RefundedAmount, p.ID)
	}
	refundID, err := s.gw.CreateRefund(ctx, p.RazorpayPaymentID, amount)
	if err != nil {
		return "", apperr.Transientf(err, "create refund for payment %s", p.ID)
	}
	return refundID, nil
}

// RunDuePayouts sweeps captured payments whose payout delay elapsed. Failures
// are per-payment; one bad payout does not block the rest.
func (s *SettlementSvc) RunDuePayouts(ctx context.Context) (initiated int, err error) {
	due, err := s.store.DuePayments(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, p := range due {
		if ctx.Err() != nil {
			return initiated, ctx.Err()
		}
		if _, err := s.InitiatePayout(ctx, p.ID); err != nil {
			log.Printf("[settlement] payout for payment %s failed: %v", p.ID, err)
			continue
		}
		initiated++
	}
	return initiated, nil
}
