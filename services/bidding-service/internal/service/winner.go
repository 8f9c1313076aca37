package service

import (
	"context"
	"log"

	"github.com/you/eventfoundry/pkg/commission"
	"github.com/you/eventfoundry/services/bidding-service/internal/docgen"
	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
)

// WinnerSvc commits the client's winner decision: bid statuses, event status
// and the contract row move in one transaction in the store. Notification and
// document generation run after commit and are non-fatal.
type WinnerSvc struct {
	store ForgeStore
	pub   Publisher
	docs  docgen.Generator
	pol   commission.Policy
}

func NewWinnerSvc(store ForgeStore, pub Publisher, docs docgen.Generator, pol commission.Policy) *WinnerSvc {
	return &WinnerSvc{store: store, pub: pub, docs: docs, pol: pol}
}

func (s *WinnerSvc) SelectWinner(ctx context.Context, eventID, bidID string) (*domain.Contract, error) {
	contract, err := s.store.CommitWinner(ctx, eventID, bidID, s.pol)
	if err != nil {
		return nil, err
	}

	if s.pub != nil {
		if err := s.pub.PublishJSON(ctx, "winner.selected", map[string]any{
			"event_id": eventID, "bid_id": bidID, "vendor_id": contract.VendorID,
		}); err != nil {
			log.Printf("[bidding] publish winner.selected: %v", err)
		}
		if err := s.pub.PublishJSON(ctx, "contract.created", ContractCreated{
			Event:   "contract.created",
			Version: 1,
			Data: ContractCreatedData{
				ContractID:   contract.ID,
				EventID:      contract.EventID,
				BidID:        contract.BidID,
				VendorID:     contract.VendorID,
				ClientUserID: contract.ClientUserID,
				ProjectValue: contract.ProjectValue,
				VendorPayout: contract.VendorPayout,
			},
		}); err != nil {
			log.Printf("[bidding] publish contract.created: %v", err)
		}
	}

	if s.docs != nil {
		url, err := s.docs.Generate(ctx, *contract)
		if err != nil {
			log.Printf("[bidding] contract document generation: %v", err)
		} else if url != "" {
			if err := s.store.AttachDocument(ctx, contract.ID, url); err != nil {
				log.Printf("[bidding] attach contract document: %v", err)
			} else {
				contract.DocumentURL = url
			}
		}
	}

	return contract, nil
}

// ContractCreated is the envelope the settlement service consumes to open the
// payment order for a freshly committed contract.
type ContractCreated struct {
	Event   string              `json:"event"`
	Version int                 `json:"version"`
	Data    ContractCreatedData `json:"data"`
}

type ContractCreatedData struct {
	ContractID   string `json:"contract_id"`
	EventID      string `json:"event_id"`
	BidID        string `json:"bid_id"`
	VendorID     string `json:"vendor_id"`
	ClientUserID string `json:"client_user_id"`
	ProjectValue int64  `json:"project_value"`
	VendorPayout int64  `json:"vendor_payout"`
}
