package service

import (
	"context"
	"log"
	"time"

	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
)

// SweepReport summarizes one expiry sweep. Per-event failures are isolated
// here instead of aborting the batch.
type SweepReport struct {
	Examined int           `json:"examined"`
	Closed   int           `json:"closed"`
	Results  []SweepResult `json:"results"`
}

type SweepResult struct {
	EventID     string `json:"event_id"`
	Closed      bool   `json:"closed"`
	Shortlisted int    `json:"shortlisted"`
	Rejected    int    `json:"rejected"`
	Error       string `json:"error,omitempty"`
}

// WindowCloser sweeps events whose bidding deadline elapsed, closes them and
// runs automatic shortlisting. Safe to run concurrently and to re-run: events
// no longer OPEN_FOR_BIDS are skipped via the conditional close.
type WindowCloser struct {
	store ForgeStore
	pub   Publisher
	topK  int
	now   func() time.Time
}

func NewWindowCloser(store ForgeStore, pub Publisher, topK int) *WindowCloser {
	if topK <= 0 {
		topK = 5
	}
	return &WindowCloser{store: store, pub: pub, topK: topK, now: time.Now}
}

func (w *WindowCloser) CloseExpiredWindows(ctx context.Context) (SweepReport, error) {
	now := w.now().UTC()
	events, err := w.store.ExpiredOpenEvents(ctx, now)
	if err != nil {
		return SweepReport{}, err
	}

	rep := SweepReport{Examined: len(events)}
	for _, ev := range events {
		// a cancelled sweep stops scheduling work but keeps what committed
		if ctx.Err() != nil {
			break
		}
		res := w.closeOne(ctx, ev)
		if res.Closed {
			rep.Closed++
		}
		rep.Results = append(rep.Results, res)
	}
	return rep, nil
}

func (w *WindowCloser) closeOne(ctx context.Context, ev domain.Event) SweepResult {
	res := SweepResult{EventID: ev.ID}

	closed, err := w.store.CloseWindow(ctx, ev.ID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if !closed {
		// another sweep got there first
		return res
	}
	res.Closed = true

	shortlisted, rejected, err := w.store.ShortlistPending(ctx, ev.ID, w.topK)
	if err != nil {
		// window is closed and stays closed; shortlisting is reported failed
		res.Error = err.Error()
		return res
	}
	res.Shortlisted = len(shortlisted)
	res.Rejected = len(rejected)

	w.publishClosed(ctx, ev, shortlisted, rejected)
	return res
}

func (w *WindowCloser) publishClosed(ctx context.Context, ev domain.Event, shortlisted, rejected []domain.Bid) {
	if w.pub == nil {
		return
	}
	if err := w.pub.PublishJSON(ctx, "bidding.closed", map[string]any{
		"event_id": ev.ID, "shortlisted": len(shortlisted), "rejected": len(rejected),
	}); err != nil {
		log.Printf("[bidding] publish bidding.closed: %v", err)
	}
	for _, b := range shortlisted {
		if err := w.pub.PublishJSON(ctx, "bid.shortlisted", map[string]any{
			"event_id": ev.ID, "bid_id": b.ID, "vendor_id": b.VendorID, "amount": b.Amount,
		}); err != nil {
			log.Printf("[bidding] publish bid.shortlisted: %v", err)
		}
	}
	for _, b := range rejected {
		if err := w.pub.PublishJSON(ctx, "bid.rejected", map[string]any{
			"event_id": ev.ID, "bid_id": b.ID, "vendor_id": b.VendorID,
		}); err != nil {
			log.Printf("[bidding] publish bid.rejected: %v", err)
		}
	}
}
