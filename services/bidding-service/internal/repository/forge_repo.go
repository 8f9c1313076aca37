package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/pkg/commission"
	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
)

type ForgeRepo struct{ db *gorm.DB }

func NewForgeRepo(db *gorm.DB) *ForgeRepo {
	return &ForgeRepo{db: db}
}

func (r *ForgeRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Event{}, &domain.Bid{}, &domain.Contract{})
}

// ExpiredOpenEvents lists events still open for bids whose deadline elapsed.
func (r *ForgeRepo) ExpiredOpenEvents(ctx context.Context, now time.Time) ([]domain.Event, error) {
	var out []domain.Event
	err := r.db.WithContext(ctx).
		Where("forge_status = ?", domain.ForgeOpenForBids).
		Where("bidding_closes_at IS NOT NULL AND bidding_closes_at <= ?", now).
		Order("bidding_closes_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Transientf(err, "scan expired events")
	}
	return out, nil
}

// CloseWindow transitions OPEN_FOR_BIDS -> BIDDING_CLOSED with a conditional
// update, so overlapping sweeps cannot close the same window twice. Returns
// false when the event was no longer open.
func (r *ForgeRepo) CloseWindow(ctx context.Context, eventID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Event{}).
		Where("id = ? AND forge_status = ?", eventID, domain.ForgeOpenForBids).
		Update("forge_status", domain.ForgeBiddingClosed)
	if res.Error != nil {
		return false, apperr.Transientf(res.Error, "close window for event %s", eventID)
	}
	return res.RowsAffected > 0, nil
}

// ShortlistPending applies the shortlist policy over the event's PENDING bids
// in one transaction: top-k become SHORTLISTED, the rest REJECTED.
func (r *ForgeRepo) ShortlistPending(ctx context.Context, eventID string, k int) (shortlisted, rejected []domain.Bid, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []domain.Bid
		if err := tx.Where("event_id = ? AND status = ?", eventID, domain.BidPending).Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		shortlisted, rejected = domain.Shortlist(pending, k)
		if err := updateBidStatuses(tx, shortlisted, domain.BidShortlisted); err != nil {
			return err
		}
		return updateBidStatuses(tx, rejected, domain.BidRejected)
	})
	if err != nil {
		return nil, nil, apperr.Transientf(err, "shortlist event %s", eventID)
	}
	return shortlisted, rejected, nil
}

func updateBidStatuses(tx *gorm.DB, bids []domain.Bid, to domain.BidStatus) error {
	if len(bids) == 0 {
		return nil
	}
	ids := make([]string, len(bids))
	for i := range bids {
		ids[i] = bids[i].ID
		bids[i].Status = to
	}
	return tx.Model(&domain.Bid{}).Where("id IN ?", ids).Update("status", to).Error
}

// CommitWinner performs the whole winner selection as one transaction: the
// chosen bid becomes ACCEPTED, every sibling REJECTED, the event advances to
// WINNER_SELECTED and the contract row is created with the commission
// snapshot. The event row is locked so a concurrent second call either sees
// the contract or waits and then fails the precondition check.
func (r *ForgeRepo) CommitWinner(ctx context.Context, eventID, bidID string, pol commission.Policy) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev domain.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validationf("event %s not found", eventID)
			}
			return err
		}
		var bid domain.Bid
		if err := tx.First(&bid, "id = ?", bidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validationf("bid %s not found", bidID)
			}
			return err
		}
		var contracts int64
		if err := tx.Model(&domain.Contract{}).Where("event_id = ?", eventID).Count(&contracts).Error; err != nil {
			return err
		}
		if err := domain.ValidateWinnerSelection(ev, bid, contracts > 0); err != nil {
			return err
		}

		bd, err := pol.Breakdown(bid.Amount)
		if err != nil {
			return err
		}

		if err := tx.Model(&domain.Bid{}).Where("id = ?", bidID).Update("status", domain.BidAccepted).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Bid{}).
			Where("event_id = ? AND id <> ?", eventID, bidID).
			Update("status", domain.BidRejected).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Event{}).Where("id = ?", eventID).
			Updates(map[string]any{"forge_status": domain.ForgeWinnerSelected, "winner_bid_id": bidID}).Error; err != nil {
			return err
		}

		contract = domain.Contract{
			ID:                uuid.NewString(),
			EventID:           eventID,
			BidID:             bidID,
			VendorID:          bid.VendorID,
			ClientUserID:      ev.OwnerUserID,
			Status:            domain.ContractDraft,
			ProjectValue:      bd.ProjectValue,
			CommissionRateBps: bd.RateBps,
			CommissionAmount:  bd.Commission,
			PlatformFee:       bd.PlatformFee,
			VendorPayout:      bd.VendorShare,
			CommissionTier:    bd.Tier,
		}
		return tx.Create(&contract).Error
	})
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// AttachDocument records the generated contract artifact. Document generation
// runs after commit, so this is a plain update outside the winner transaction.
func (r *ForgeRepo) AttachDocument(ctx context.Context, contractID, url string) error {
	return r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("id = ?", contractID).Update("document_url", url).Error
}

func (r *ForgeRepo) EventByID(ctx context.Context, id string) (*domain.Event, error) {
	var ev domain.Event
	if err := r.db.WithContext(ctx).First(&ev, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("event %s not found", id)
		}
		return nil, apperr.Transientf(err, "load event %s", id)
	}
	return &ev, nil
}

// BidsByEvent lists an event's bids, optionally filtered by status.
func (r *ForgeRepo) BidsByEvent(ctx context.Context, eventID string, status domain.BidStatus) ([]domain.Bid, error) {
	qb := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if status != "" {
		qb = qb.Where("status = ?", status)
	}
	var out []domain.Bid
	if err := qb.Order("amount ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, apperr.Transientf(err, "list bids for event %s", eventID)
	}
	return out, nil
}

func (r *ForgeRepo) ContractByEvent(ctx context.Context, eventID string) (*domain.Contract, error) {
	var c domain.Contract
	if err := r.db.WithContext(ctx).First(&c, "event_id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validationf("no contract for event %s", eventID)
		}
		return nil, apperr.Transientf(err, "load contract for event %s", eventID)
	}
	return &c, nil
}
