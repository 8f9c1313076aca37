package domain

import "time"

// WebhookDelivery is the idempotency ledger for gateway webhooks: one row per
// gateway event id, created on first sight, never deleted. A delivery's
// effects apply at most once; Processed flips only after the handler
// succeeded, so gateway retries can re-attempt failed deliveries.
type WebhookDelivery struct {
	GatewayEventID string     `gorm:"primaryKey"`
	Kind           string     `gorm:"index"`
	Payload        []byte
	Processed      bool       `gorm:"index"`
	ReceivedAt     time.Time
	ProcessedAt    *time.Time
}
