package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "CREATED"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Payment tracks a contract's client payment through the gateway. Amounts are
// integer paise; the gateway order id is the join key for webhook events.
type Payment struct {
	ID                string        `gorm:"primaryKey"`
	ContractID        string        `gorm:"index"`
	RazorpayOrderID   string        `gorm:"uniqueIndex"`
	RazorpayPaymentID string        `gorm:"index"`
	Status            PaymentStatus `gorm:"index"`
	Amount            int64
	PaymentMethod     string

	CommissionCollected int64
	VendorPayable       int64
	RefundedAmount      int64
	OrderPaid           bool

	ClientPaidAt      *time.Time
	PayoutScheduledAt *time.Time `gorm:"index"`
	VendorPaidAt      *time.Time
	VendorPayoutID    string
	FailureReason     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CommissionRevenue is the append-only platform revenue ledger, written once
// per captured payment.
type CommissionRevenue struct {
	ID                string `gorm:"primaryKey"`
	ContractID        string `gorm:"index"`
	PaymentID         string `gorm:"uniqueIndex"` // one revenue row per payment
	ProjectValue      int64
	CommissionRateBps int64
	CommissionAmount  int64
	PlatformFee       int64
	TotalRevenue      int64
	CommissionTier    string
	CollectedAt       time.Time
}
