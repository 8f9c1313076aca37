package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/eventfoundry/pkg/apperr"
	"github.com/you/eventfoundry/pkg/commission"
	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
)

// fakeStore is an in-memory ForgeStore with the same conditional-transition
// semantics as the real repository.
type fakeStore struct {
	events    map[string]*domain.Event
	bids      map[string]*domain.Bid
	contracts map[string]*domain.Contract // by event id
	docs      map[string]string

	failShortlist map[string]error
	failClose     map[string]error
	commits       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:        map[string]*domain.Event{},
		bids:          map[string]*domain.Bid{},
		contracts:     map[string]*domain.Contract{},
		docs:          map[string]string{},
		failShortlist: map[string]error{},
		failClose:     map[string]error{},
	}
}

func (f *fakeStore) addEvent(id string, status domain.ForgeStatus, closesAt time.Time) {
	f.events[id] = &domain.Event{ID: id, ForgeStatus: status, BiddingClosesAt: &closesAt, OwnerUserID: "client-1"}
}

func (f *fakeStore) addBid(id, eventID string, amount int64, status domain.BidStatus, at time.Time) {
	f.bids[id] = &domain.Bid{ID: id, EventID: eventID, VendorID: "v-" + id, Amount: amount, Status: status, CreatedAt: at}
}

func (f *fakeStore) ExpiredOpenEvents(_ context.Context, now time.Time) ([]domain.Event, error) {
	var out []domain.Event
	for _, ev := range f.events {
		if ev.ForgeStatus == domain.ForgeOpenForBids && ev.BiddingClosesAt != nil && !ev.BiddingClosesAt.After(now) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeStore) CloseWindow(_ context.Context, eventID string) (bool, error) {
	if err := f.failClose[eventID]; err != nil {
		return false, err
	}
	ev, ok := f.events[eventID]
	if !ok || ev.ForgeStatus != domain.ForgeOpenForBids {
		return false, nil
	}
	ev.ForgeStatus = domain.ForgeBiddingClosed
	return true, nil
}

func (f *fakeStore) ShortlistPending(_ context.Context, eventID string, k int) ([]domain.Bid, []domain.Bid, error) {
	if err := f.failShortlist[eventID]; err != nil {
		return nil, nil, err
	}
	var pending []domain.Bid
	for _, b := range f.bids {
		if b.EventID == eventID && b.Status == domain.BidPending {
			pending = append(pending, *b)
		}
	}
	short, rej := domain.Shortlist(pending, k)
	for _, b := range short {
		f.bids[b.ID].Status = domain.BidShortlisted
	}
	for _, b := range rej {
		f.bids[b.ID].Status = domain.BidRejected
	}
	return short, rej, nil
}

func (f *fakeStore) CommitWinner(_ context.Context, eventID, bidID string, pol commission.Policy) (*domain.Contract, error) {
	f.commits++
	ev, ok := f.events[eventID]
	if !ok {
		return nil, apperr.Validationf("event %s not found", eventID)
	}
	bid, ok := f.bids[bidID]
	if !ok {
		return nil, apperr.Validationf("bid %s not found", bidID)
	}
	_, hasContract := f.contracts[eventID]
	if err := domain.ValidateWinnerSelection(*ev, *bid, hasContract); err != nil {
		return nil, err
	}
	bd, err := pol.Breakdown(bid.Amount)
	if err != nil {
		return nil, err
	}
	bid.Status = domain.BidAccepted
	for _, b := range f.bids {
		if b.EventID == eventID && b.ID != bidID && b.Status == domain.BidShortlisted {
			b.Status = domain.BidRejected
		}
	}
	ev.ForgeStatus = domain.ForgeWinnerSelected
	ev.WinnerBidID = bidID
	c := &domain.Contract{
		ID: "c-" + eventID, EventID: eventID, BidID: bidID,
		VendorID: bid.VendorID, ClientUserID: ev.OwnerUserID,
		Status:       domain.ContractDraft,
		ProjectValue: bd.ProjectValue, CommissionRateBps: bd.RateBps,
		CommissionAmount: bd.Commission, PlatformFee: bd.PlatformFee,
		VendorPayout: bd.VendorShare, CommissionTier: bd.Tier,
	}
	f.contracts[eventID] = c
	out := *c
	return &out, nil
}

func (f *fakeStore) AttachDocument(_ context.Context, contractID, url string) error {
	f.docs[contractID] = url
	return nil
}

func (f *fakeStore) EventByID(_ context.Context, id string) (*domain.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, apperr.Validationf("event %s not found", id)
	}
	out := *ev
	return &out, nil
}

func (f *fakeStore) BidsByEvent(_ context.Context, eventID string, status domain.BidStatus) ([]domain.Bid, error) {
	var out []domain.Bid
	for _, b := range f.bids {
		if b.EventID == eventID && (status == "" || b.Status == status) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ContractByEvent(_ context.Context, eventID string) (*domain.Contract, error) {
	c, ok := f.contracts[eventID]
	if !ok {
		return nil, apperr.Validationf("no contract for event %s", eventID)
	}
	out := *c
	return &out, nil
}

type capturingPub struct {
	keys []string
	fail bool
}

func (p *capturingPub) PublishJSON(_ context.Context, key string, _ any) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.keys = append(p.keys, key)
	return nil
}

func countKeys(keys []string, want string) int {
	n := 0
	for _, k := range keys {
		if k == want {
			n++
		}
	}
	return n
}

func TestSweepClosesExpiredAndShortlists(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Hour)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	store.addEvent("e1", domain.ForgeOpenForBids, past)
	// B1 ₹50,000 earliest, B2 ₹40,000 later
	store.addBid("b1", "e1", 5_000_000, domain.BidPending, t0)
	store.addBid("b2", "e1", 4_000_000, domain.BidPending, t0.Add(time.Minute))

	pub := &capturingPub{}
	w := NewWindowCloser(store, pub, 1)

	rep, err := w.CloseExpiredWindows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Examined)
	assert.Equal(t, 1, rep.Closed)

	assert.Equal(t, domain.ForgeBiddingClosed, store.events["e1"].ForgeStatus)
	assert.Equal(t, domain.BidShortlisted, store.bids["b2"].Status)
	assert.Equal(t, domain.BidRejected, store.bids["b1"].Status)

	assert.Equal(t, 1, countKeys(pub.keys, "bidding.closed"))
	assert.Equal(t, 1, countKeys(pub.keys, "bid.shortlisted"))
	assert.Equal(t, 1, countKeys(pub.keys, "bid.rejected"))
}

func TestSweepLeavesNoPendingBids(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Minute)
	t0 := time.Now().Add(-24 * time.Hour)

	store.addEvent("e1", domain.ForgeOpenForBids, past)
	for i, amt := range []int64{700, 100, 400, 300, 600, 200, 500} {
		store.addBid(string(rune('a'+i)), "e1", amt, domain.BidPending, t0.Add(time.Duration(i)*time.Minute))
	}

	w := NewWindowCloser(store, nil, 5)
	_, err := w.CloseExpiredWindows(context.Background())
	require.NoError(t, err)

	short, rej := 0, 0
	for _, b := range store.bids {
		switch b.Status {
		case domain.BidPending:
			t.Fatalf("bid %s still pending after sweep", b.ID)
		case domain.BidShortlisted:
			short++
		case domain.BidRejected:
			rej++
		}
	}
	assert.Equal(t, 5, short)
	assert.Equal(t, 2, rej)
}

func TestSweepSkipsAlreadyClosedEvents(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Hour)
	store.addEvent("e1", domain.ForgeBiddingClosed, past)
	store.addEvent("e2", domain.ForgeOpenForBids, time.Now().Add(time.Hour))

	w := NewWindowCloser(store, nil, 5)
	rep, err := w.CloseExpiredWindows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Examined)
	assert.Equal(t, 0, rep.Closed)
}

func TestSweepIsolatesPerEventFailures(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Hour)
	store.addEvent("e1", domain.ForgeOpenForBids, past)
	store.addEvent("e2", domain.ForgeOpenForBids, past)
	store.failShortlist["e1"] = errors.New("deadlock")
	store.failShortlist["e2"] = nil

	w := NewWindowCloser(store, nil, 5)
	rep, err := w.CloseExpiredWindows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Examined)
	assert.Equal(t, 2, rep.Closed) // both windows closed even though one shortlist failed

	failed := 0
	for _, r := range rep.Results {
		if r.Error != "" {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	// a failed shortlist does not reopen the window
	assert.Equal(t, domain.ForgeBiddingClosed, store.events["e1"].ForgeStatus)
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Hour)
	store.addEvent("e1", domain.ForgeOpenForBids, past)
	store.addEvent("e2", domain.ForgeOpenForBids, past)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWindowCloser(store, nil, 5)
	rep, err := w.CloseExpiredWindows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Closed)
	assert.Equal(t, domain.ForgeOpenForBids, store.events["e1"].ForgeStatus)
	assert.Equal(t, domain.ForgeOpenForBids, store.events["e2"].ForgeStatus)
}

func TestSweepPublishFailureDoesNotFailSweep(t *testing.T) {
	store := newFakeStore()
	past := time.Now().Add(-time.Hour)
	store.addEvent("e1", domain.ForgeOpenForBids, past)
	store.addBid("b1", "e1", 100, domain.BidPending, time.Now())

	w := NewWindowCloser(store, &capturingPub{fail: true}, 5)
	rep, err := w.CloseExpiredWindows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Closed)
	assert.Empty(t, rep.Results[0].Error)
}
