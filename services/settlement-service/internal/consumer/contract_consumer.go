package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/you/eventfoundry/pkg/mq"
	"github.com/you/eventfoundry/services/settlement-service/internal/domain"
	"github.com/you/eventfoundry/services/settlement-service/internal/razorpay"
)

type ContractCreated struct {
	Event   string `json:"event"` // "contract.created"
	Version int    `json:"version"`
	Data    struct {
		ContractID   string `json:"contract_id"`
		EventID      string `json:"event_id"`
		BidID        string `json:"bid_id"`
		VendorID     string `json:"vendor_id"`
		ClientUserID string `json:"client_user_id"`
		ProjectValue int64  `json:"project_value"`
		VendorPayout int64  `json:"vendor_payout"`
	} `json:"data"`
}

// ContractConsumer opens a gateway order for each freshly created contract so
// the client can pay it. Redelivered contracts are skipped once a payment row
// exists.
type ContractConsumer struct {
	store domain.SettlementStore
	gw    razorpay.Gateway
	cons  *mq.Consumer
}

func NewContractConsumer(store domain.SettlementStore, gw razorpay.Gateway, cons *mq.Consumer) *ContractConsumer {
	return &ContractConsumer{store: store, gw: gw, cons: cons}
}

func (cc *ContractConsumer) Run(ctx context.Context) error {
	msgs, err := cc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for d := range msgs {
			switch d.RoutingKey {
			case "contract.created":
				var evt ContractCreated
				if err := json.Unmarshal(d.Body, &evt); err != nil {
					log.Printf("[settlement-consumer] unmarshal error: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				if evt.Data.ContractID == "" || evt.Data.ProjectValue <= 0 {
					log.Printf("[settlement-consumer] invalid contract.created payload")
					_ = d.Ack(false)
					continue
				}
				if err := cc.openOrder(ctx, evt); err != nil {
					log.Printf("[settlement-consumer] open order for contract %s: %v", evt.Data.ContractID, err)
					_ = d.Nack(false, true)
					continue
				}
				_ = d.Ack(false)
			default:
				// ignore others
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}

func (cc *ContractConsumer) openOrder(ctx context.Context, evt ContractCreated) error {
	exists, err := cc.store.PaymentExistsForContract(ctx, evt.Data.ContractID)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("[settlement-consumer] contract %s already has a payment, skipping", evt.Data.ContractID)
		return nil
	}

	orderID, err := cc.gw.CreateOrder(ctx, evt.Data.ProjectValue, "INR", evt.Data.ContractID, map[string]string{
		"contract_id": evt.Data.ContractID,
		"event_id":    evt.Data.EventID,
		"vendor_id":   evt.Data.VendorID,
	})
	if err != nil {
		return err
	}

	return cc.store.CreatePayment(ctx, &domain.Payment{
		ContractID:      evt.Data.ContractID,
		RazorpayOrderID: orderID,
		Status:          domain.PaymentStatusCreated,
		Amount:          evt.Data.ProjectValue,
	})
}
