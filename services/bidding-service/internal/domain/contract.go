package domain

import (
	"time"

	"github.com/you/eventfoundry/pkg/apperr"
)

type ContractStatus string

const (
	ContractDraft        ContractStatus = "DRAFT"
	ContractActive       ContractStatus = "ACTIVE"
	ContractCommissioned ContractStatus = "COMMISSIONED"
)

// Contract is created exactly once per event, in the same transaction as the
// winner's bid/event transitions. The commission fields are a snapshot of the
// policy at selection time; settlement reads them instead of recomputing.
type Contract struct {
	ID           string         `gorm:"primaryKey"`
	EventID      string         `gorm:"uniqueIndex"`
	BidID        string         `gorm:"index"`
	VendorID     string         `gorm:"index"`
	ClientUserID string         `gorm:"index"`
	Status       ContractStatus `gorm:"index"`
	DocumentURL  string

	ProjectValue      int64 // paise
	CommissionRateBps int64
	CommissionAmount  int64
	PlatformFee       int64
	VendorPayout      int64
	CommissionTier    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateWinnerSelection is the precondition check for committing a winner.
// Called inside the commit transaction with the freshly locked rows.
func ValidateWinnerSelection(ev Event, bid Bid, hasContract bool) error {
	if hasContract {
		return apperr.Conflictf("contract already exists for event %s", ev.ID)
	}
	if ev.ForgeStatus != ForgeBiddingClosed {
		return apperr.Conflictf("event %s is %s, want %s", ev.ID, ev.ForgeStatus, ForgeBiddingClosed)
	}
	if bid.EventID != ev.ID {
		return apperr.Validationf("bid %s does not belong to event %s", bid.ID, ev.ID)
	}
	if bid.Status != BidShortlisted {
		return apperr.Conflictf("bid %s is %s, only shortlisted bids can win", bid.ID, bid.Status)
	}
	return nil
}
