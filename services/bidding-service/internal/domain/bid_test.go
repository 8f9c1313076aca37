package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bid(id string, amount int64, at time.Time) Bid {
	return Bid{ID: id, Amount: amount, Status: BidPending, CreatedAt: at}
}

func ids(bids []Bid) []string {
	out := make([]string, len(bids))
	for i, b := range bids {
		out[i] = b.ID
	}
	return out
}

func TestShortlistLowestAmountsWin(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bids := []Bid{
		bid("b1", 5_000_000, t0),
		bid("b2", 4_000_000, t0.Add(time.Hour)),
		bid("b3", 6_000_000, t0.Add(2*time.Hour)),
		bid("b4", 4_500_000, t0.Add(3*time.Hour)),
	}

	short, rej := Shortlist(bids, 2)
	assert.Equal(t, []string{"b2", "b4"}, ids(short))
	assert.Equal(t, []string{"b1", "b3"}, ids(rej))
}

// K=1 with B1=₹50,000 earliest and B2=₹40,000: B2 wins on amount alone.
func TestShortlistCheaperBeatsEarlier(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bids := []Bid{
		bid("b1", 5_000_000, t0),
		bid("b2", 4_000_000, t0.Add(time.Hour)),
	}

	short, rej := Shortlist(bids, 1)
	require.Len(t, short, 1)
	assert.Equal(t, "b2", short[0].ID)
	require.Len(t, rej, 1)
	assert.Equal(t, "b1", rej[0].ID)
}

func TestShortlistTieBreaksByEarliestThenID(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bids := []Bid{
		bid("b3", 4_000_000, t0.Add(time.Hour)),
		bid("b2", 4_000_000, t0),
		bid("b1", 4_000_000, t0.Add(time.Hour)), // same time as b3, lower id
	}

	short, _ := Shortlist(bids, 2)
	assert.Equal(t, []string{"b2", "b1"}, ids(short))
}

func TestShortlistFewerThanK(t *testing.T) {
	t0 := time.Now()
	bids := []Bid{bid("b1", 100, t0), bid("b2", 200, t0)}

	short, rej := Shortlist(bids, 5)
	assert.Len(t, short, 2)
	assert.Empty(t, rej)
}

func TestShortlistEmptyAndNonPositiveK(t *testing.T) {
	short, rej := Shortlist(nil, 5)
	assert.Empty(t, short)
	assert.Empty(t, rej)

	short, rej = Shortlist([]Bid{bid("b1", 100, time.Now())}, 0)
	assert.Empty(t, short)
	assert.Len(t, rej, 1)
}

func TestShortlistDoesNotMutateInput(t *testing.T) {
	t0 := time.Now()
	bids := []Bid{bid("b2", 200, t0), bid("b1", 100, t0)}

	Shortlist(bids, 1)
	assert.Equal(t, "b2", bids[0].ID)
}
