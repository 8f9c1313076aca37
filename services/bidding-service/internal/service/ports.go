package service

import (
	"context"
	"time"

	"github.com/you/eventfoundry/pkg/commission"
	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
)

// ForgeStore is the storage capability the lifecycle services are handed.
// *repository.ForgeRepo implements it; tests use in-memory fakes.
type ForgeStore interface {
	ExpiredOpenEvents(ctx context.Context, now time.Time) ([]domain.Event, error)
	CloseWindow(ctx context.Context, eventID string) (bool, error)
	ShortlistPending(ctx context.Context, eventID string, k int) (shortlisted, rejected []domain.Bid, err error)
	CommitWinner(ctx context.Context, eventID, bidID string, pol commission.Policy) (*domain.Contract, error)
	AttachDocument(ctx context.Context, contractID, url string) error
	EventByID(ctx context.Context, id string) (*domain.Event, error)
	BidsByEvent(ctx context.Context, eventID string, status domain.BidStatus) ([]domain.Bid, error)
	ContractByEvent(ctx context.Context, eventID string) (*domain.Contract, error)
}

// Publisher is satisfied by *mq.Publisher. Publish failures never fail the
// state mutation that preceded them; they are logged and dropped.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}
