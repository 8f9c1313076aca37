package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/services/settlement-service/internal/domain"
)

type SettlementRepo struct{ db *gorm.DB }

func NewSettlementRepo(db *gorm.DB) *SettlementRepo {
	return &SettlementRepo{db: db}
}

func (r *SettlementRepo) Migrate() error {
	// contracts and events tables are owned and migrated by bidding-service
	return r.db.AutoMigrate(
		&domain.Payment{},
		&domain.CommissionRevenue{},
		&domain.VendorPayout{},
		&domain.PayoutEvent{},
		&domain.WebhookDelivery{},
	)
}

// ---------- delivery idempotency ----------

// RecordDelivery inserts the audit row on first sight. Redelivery of a known
// id is a no-op, not an error.
func (r *SettlementRepo) RecordDelivery(ctx context.Context, id, kind string, payload []byte) error {
	rec := domain.WebhookDelivery{
		GatewayEventID: id,
		Kind:           kind,
		Payload:        payload,
		ReceivedAt:     time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return apperr.Transientf(err, "record delivery %s", id)
	}
	return nil
}

// ProcessDelivery runs apply under a row lock on the delivery record, so two
// simultaneous deliveries of the same gateway event id cannot both pass the
// not-yet-processed check. The processed flag commits with the handler's
// mutations; on failure everything rolls back and the gateway's retry gets a
// clean re-attempt.
func (r *SettlementRepo) ProcessDelivery(ctx context.Context, id string, apply func(led domain.Ledger) error) (bool, error) {
	var already bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d domain.WebhookDelivery
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, "gateway_event_id = ?", id).Error; err != nil {
			return err
		}
		if d.Processed {
			already = true
			return nil
		}
		if err := apply(&SettlementRepo{db: tx}); err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Model(&domain.WebhookDelivery{}).
			Where("gateway_event_id = ?", id).
			Updates(map[string]any{"processed": true, "processed_at": now}).Error
	})
	if err != nil {
		return false, err
	}
	return already, nil
}

// ---------- payments ----------

func (r *SettlementRepo) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperr.Transientf(err, "create payment for contract %s", p.ContractID)
	}
	return nil
}

func (r *SettlementRepo) PaymentExistsForContract(ctx context.Context, contractID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("contract_id = ?", contractID).Count(&n).Error; err != nil {
		return false, apperr.Transientf(err, "count payments for contract %s", contractID)
	}
	return n > 0, nil
}

func (r *SettlementRepo) PaymentByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.onePayment(ctx, "id = ?", id)
}

func (r *SettlementRepo) PaymentByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.onePayment(ctx, "razorpay_order_id = ?", orderID)
}

func (r *SettlementRepo) PaymentByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	return r.onePayment(ctx, "razorpay_payment_id = ?", gatewayPaymentID)
}

func (r *SettlementRepo) onePayment(ctx context.Context, cond string, arg any) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).First(&p, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("payment not found (%s %v)", cond, arg)
		}
		return nil, apperr.Transientf(err, "load payment")
	}
	return &p, nil
}

func (r *SettlementRepo) MarkPaymentProcessing(ctx context.Context, orderID, gatewayPaymentID, method string) error {
	return r.updatePayments(ctx, "razorpay_order_id = ?", orderID, map[string]any{
		"status":              domain.PaymentStatusProcessing,
		"razorpay_payment_id": gatewayPaymentID,
		"payment_method":      method,
	})
}

func (r *SettlementRepo) MarkPaymentCaptured(ctx context.Context, paymentID, gatewayPaymentID, method string, commission, vendorPayable int64, paidAt, payoutAt time.Time) error {
	return r.updatePayments(ctx, "id = ?", paymentID, map[string]any{
		"status":              domain.PaymentStatusCompleted,
		"razorpay_payment_id": gatewayPaymentID,
		"payment_method":      method,
		"commission_collected": commission,
		"vendor_payable":       vendorPayable,
		"client_paid_at":       paidAt,
		"payout_scheduled_at":  payoutAt,
	})
}

func (r *SettlementRepo) MarkPaymentFailed(ctx context.Context, orderID, reason string) error {
	return r.updatePayments(ctx, "razorpay_order_id = ?", orderID, map[string]any{
		"status":         domain.PaymentStatusFailed,
		"failure_reason": reason,
	})
}

func (r *SettlementRepo) MarkOrderPaid(ctx context.Context, orderID string) error {
	return r.updatePayments(ctx, "razorpay_order_id = ?", orderID, map[string]any{"order_paid": true})
}

func (r *SettlementRepo) AddRefund(ctx context.Context, paymentID string, amount int64) error {
	return r.updatePayments(ctx, "id = ?", paymentID, map[string]any{
		"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
		"status":          domain.PaymentStatusRefunded,
	})
}

// ClaimForPayout records the payout reference on the payment before the
// gateway call. The conditional update serializes overlapping sweeps: exactly
// one caller gets a row back, everyone else conflicts.
func (r *SettlementRepo) ClaimForPayout(ctx context.Context, paymentID, ref string) error {
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND vendor_payout_id = '' AND vendor_paid_at IS NULL", paymentID).
		Update("vendor_payout_id", ref)
	if res.Error != nil {
		return apperr.Transientf(res.Error, "claim payment %s for payout", paymentID)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflictf("payment %s already claimed for a payout", paymentID)
	}
	return nil
}

// ReleasePayoutClaim undoes a claim whose gateway call failed so a later
// sweep can retry. Only the holder's own reference is released.
func (r *SettlementRepo) ReleasePayoutClaim(ctx context.Context, paymentID, ref string) error {
	err := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND vendor_payout_id = ? AND vendor_paid_at IS NULL", paymentID, ref).
		Update("vendor_payout_id", "").Error
	if err != nil {
		return apperr.Transientf(err, "release payout claim on payment %s", paymentID)
	}
	return nil
}

// MarkVendorPaid with a zero time only records the gateway payout id over the
// claim reference; the paid-at timestamp lands when the payout.processed
// webhook arrives.
func (r *SettlementRepo) MarkVendorPaid(ctx context.Context, paymentID, gatewayPayoutID string, at time.Time) error {
	fields := map[string]any{"vendor_payout_id": gatewayPayoutID}
	if !at.IsZero() {
		fields["vendor_paid_at"] = at
	}
	return r.updatePayments(ctx, "id = ?", paymentID, fields)
}

func (r *SettlementRepo) updatePayments(ctx context.Context, cond string, arg any, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).Where(cond, arg).Updates(fields)
	if res.Error != nil {
		return apperr.Transientf(res.Error, "update payment")
	}
	if res.RowsAffected == 0 {
		return apperr.Validationf("payment not found (%s %v)", cond, arg)
	}
	return nil
}

// ---------- revenue / contract / event ----------

// RecordRevenue is idempotent per payment: replays after a partial failure
// hit the unique index and are dropped.
func (r *SettlementRepo) RecordRevenue(ctx context.Context, rev domain.CommissionRevenue) error {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rev).Error
	if err != nil {
		return apperr.Transientf(err, "record revenue for payment %s", rev.PaymentID)
	}
	return nil
}

func (r *SettlementRepo) ContractByID(ctx context.Context, id string) (*domain.Contract, error) {
	var c domain.Contract
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("contract %s not found", id)
		}
		return nil, apperr.Transientf(err, "load contract %s", id)
	}
	return &c, nil
}

func (r *SettlementRepo) SetContractStatus(ctx context.Context, contractID, status string) error {
	if err := r.db.WithContext(ctx).Model(&domain.Contract{}).Where("id = ?", contractID).Update("status", status).Error; err != nil {
		return apperr.Transientf(err, "update contract %s", contractID)
	}
	return nil
}

func (r *SettlementRepo) SetEventForgeStatus(ctx context.Context, eventID, status string) error {
	if err := r.db.WithContext(ctx).Model(&domain.Event{}).Where("id = ?", eventID).Update("forge_status", status).Error; err != nil {
		return apperr.Transientf(err, "update event %s", eventID)
	}
	return nil
}

// ---------- payouts ----------

func (r *SettlementRepo) CreatePayout(ctx context.Context, p *domain.VendorPayout) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(&domain.PayoutEvent{
			ID:       uuid.NewString(),
			PayoutID: p.ID,
			ToStatus: p.Status,
		}).Error
	})
	if err != nil {
		return apperr.Transientf(err, "create payout for payment %s", p.PaymentID)
	}
	return nil
}

func (r *SettlementRepo) PayoutByGatewayID(ctx context.Context, gatewayPayoutID string) (*domain.VendorPayout, error) {
	var p domain.VendorPayout
	if err := r.db.WithContext(ctx).First(&p, "razorpay_payout_id = ?", gatewayPayoutID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("payout %s not found", gatewayPayoutID)
		}
		return nil, apperr.Transientf(err, "load payout %s", gatewayPayoutID)
	}
	return &p, nil
}

// TransitionPayout updates the status and appends the history row. Replays
// with an unchanged status append nothing.
func (r *SettlementRepo) TransitionPayout(ctx context.Context, payoutID string, to domain.PayoutStatus, reason string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.VendorPayout
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", payoutID).Error; err != nil {
			return err
		}
		if p.Status == to {
			return nil
		}
		if err := tx.Model(&domain.VendorPayout{}).Where("id = ?", payoutID).
			Updates(map[string]any{"status": to, "failure_reason": reason}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.PayoutEvent{
			ID:         uuid.NewString(),
			PayoutID:   payoutID,
			FromStatus: p.Status,
			ToStatus:   to,
			Reason:     reason,
		}).Error
	})
	if err != nil {
		return apperr.Transientf(err, "transition payout %s", payoutID)
	}
	return nil
}

// DuePayments lists completed payments whose payout schedule elapsed and that
// have not been paid out yet.
func (r *SettlementRepo) DuePayments(ctx context.Context, now time.Time) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.PaymentStatusCompleted).
		Where("vendor_paid_at IS NULL AND vendor_payout_id = ''").
		Where("payout_scheduled_at IS NOT NULL AND payout_scheduled_at <= ?", now).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Transientf(err, "scan due payouts")
	}
	return out, nil
}
