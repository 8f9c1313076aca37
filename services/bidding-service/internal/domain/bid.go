package domain

import (
	"sort"
	"time"
)

type BidStatus string

const (
	BidPending     BidStatus = "PENDING"
	BidShortlisted BidStatus = "SHORTLISTED"
	BidRejected    BidStatus = "REJECTED" // terminal
	BidAccepted    BidStatus = "ACCEPTED" // terminal, at most one per event
)

type Bid struct {
	ID          string    `gorm:"primaryKey"`
	EventID     string    `gorm:"index"`
	VendorID    string    `gorm:"index"`
	Amount      int64     // paise
	Status      BidStatus `gorm:"index"`
	VendorNotes string
	CreatedAt   time.Time // submission time, used for tie-breaks
	UpdatedAt   time.Time
}

// Shortlist splits bids into the top-k by lowest amount and the rest.
// Ties break by earliest submission, then id, so the result is deterministic
// for concurrent sweeps. Fewer than k bids shortlists them all.
func Shortlist(bids []Bid, k int) (shortlisted, rejected []Bid) {
	if k < 0 {
		k = 0
	}
	sorted := make([]Bid, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Amount != b.Amount {
			return a.Amount < b.Amount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k], sorted[k:]
}
