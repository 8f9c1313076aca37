package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys this worker reacts to, across the bidding and settlement
// exchanges.
const (
	RKBiddingClosed  = "bidding.closed"
	RKBidShortlisted = "bid.shortlisted"
	RKBidRejected    = "bid.rejected"
	RKWinnerSelected = "winner.selected"

	RKPaymentCaptured = "payment.captured"
	RKPayoutProcessed = "payout.processed"
)

type BiddingClosed struct {
	EventID     string `json:"event_id"`
	Shortlisted int    `json:"shortlisted"`
	Rejected    int    `json:"rejected"`
}

type BidShortlisted struct {
	EventID  string `json:"event_id"`
	BidID    string `json:"bid_id"`
	VendorID string `json:"vendor_id"`
	Amount   int64  `json:"amount"`
}

type BidRejected struct {
	EventID  string `json:"event_id"`
	BidID    string `json:"bid_id"`
	VendorID string `json:"vendor_id"`
}

type WinnerSelected struct {
	EventID  string `json:"event_id"`
	BidID    string `json:"bid_id"`
	VendorID string `json:"vendor_id"`
}

type PaymentCaptured struct {
	PaymentID     string `json:"payment_id"`
	ContractID    string `json:"contract_id"`
	EventID       string `json:"event_id"`
	VendorID      string `json:"vendor_id"`
	ClientUserID  string `json:"client_user_id"`
	Amount        int64  `json:"amount"`
	VendorPayable int64  `json:"vendor_payable"`
}

type PayoutProcessed struct {
	PayoutID  string `json:"payout_id"`
	PaymentID string `json:"payment_id"`
	VendorID  string `json:"vendor_id"`
	Amount    int64  `json:"amount"`
	UTR       string `json:"utr"`
}

func MustUnmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
