package domain

// Contract and Event are read/advance models over the tables the bidding
// service owns. Settlement reads the commission snapshot and advances both to
// COMMISSIONED once the payment is captured.

type Contract struct {
	ID                string `gorm:"primaryKey"`
	EventID           string
	BidID             string
	VendorID          string
	ClientUserID      string
	Status            string
	ProjectValue      int64
	CommissionRateBps int64
	CommissionAmount  int64
	PlatformFee       int64
	VendorPayout      int64
	CommissionTier    string
}

func (Contract) TableName() string { return "contracts" }

const ContractCommissioned = "COMMISSIONED"

type Event struct {
	ID          string `gorm:"primaryKey"`
	ForgeStatus string
}

func (Event) TableName() string { return "events" }

const ForgeCommissioned = "COMMISSIONED"
