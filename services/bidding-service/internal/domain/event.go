package domain

import "time"

// ForgeStatus is the event's commissioning lifecycle stage. It only moves
// forward along forgeOrder, except cancellation, which is reachable from any
// non-terminal stage.
type ForgeStatus string

const (
	ForgeDraft          ForgeStatus = "DRAFT"
	ForgeOpenForBids    ForgeStatus = "OPEN_FOR_BIDS"
	ForgeBiddingClosed  ForgeStatus = "BIDDING_CLOSED"
	ForgeWinnerSelected ForgeStatus = "WINNER_SELECTED"
	ForgeCommissioned   ForgeStatus = "COMMISSIONED"
	ForgeCancelled      ForgeStatus = "CANCELLED"
)

var forgeOrder = map[ForgeStatus]int{
	ForgeDraft:          0,
	ForgeOpenForBids:    1,
	ForgeBiddingClosed:  2,
	ForgeWinnerSelected: 3,
	ForgeCommissioned:   4,
}

// CanAdvanceTo reports whether the transition s -> next is legal.
func (s ForgeStatus) CanAdvanceTo(next ForgeStatus) bool {
	if s == ForgeCancelled || s == ForgeCommissioned {
		return false
	}
	if next == ForgeCancelled {
		return true
	}
	from, ok := forgeOrder[s]
	if !ok {
		return false
	}
	to, ok := forgeOrder[next]
	if !ok {
		return false
	}
	return to > from
}

func (s ForgeStatus) Terminal() bool {
	return s == ForgeCancelled || s == ForgeCommissioned
}

type Event struct {
	ID              string `gorm:"primaryKey"`
	Title           string
	EventType       string      `gorm:"index"`
	OwnerUserID     string      `gorm:"index"`
	ForgeStatus     ForgeStatus `gorm:"index"`
	BiddingClosesAt *time.Time  `gorm:"index"`
	WinnerBidID     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
