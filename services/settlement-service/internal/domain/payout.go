package domain

import "time"

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusPaid       PayoutStatus = "PAID"
	PayoutStatusReversed   PayoutStatus = "REVERSED"
)

// VendorPayout is one payout attempt toward a vendor. A reversal flips the
// status but the row survives; every transition appends a PayoutEvent.
type VendorPayout struct {
	ID               string       `gorm:"primaryKey"`
	PaymentID        string       `gorm:"index"`
	VendorID         string       `gorm:"index"`
	Amount           int64
	RazorpayPayoutID string       `gorm:"uniqueIndex"`
	Status           PayoutStatus `gorm:"index"`
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PayoutEvent is the append-only payout history.
type PayoutEvent struct {
	ID         string `gorm:"primaryKey"`
	PayoutID   string `gorm:"index"`
	FromStatus PayoutStatus
	ToStatus   PayoutStatus
	Reason     string
	CreatedAt  time.Time
}
