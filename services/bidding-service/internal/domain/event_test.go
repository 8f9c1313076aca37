package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForgeStatusAdvancesForwardOnly(t *testing.T) {
	assert.True(t, ForgeDraft.CanAdvanceTo(ForgeOpenForBids))
	assert.True(t, ForgeOpenForBids.CanAdvanceTo(ForgeBiddingClosed))
	assert.True(t, ForgeBiddingClosed.CanAdvanceTo(ForgeWinnerSelected))
	assert.True(t, ForgeWinnerSelected.CanAdvanceTo(ForgeCommissioned))

	assert.False(t, ForgeBiddingClosed.CanAdvanceTo(ForgeOpenForBids))
	assert.False(t, ForgeWinnerSelected.CanAdvanceTo(ForgeBiddingClosed))
	assert.False(t, ForgeOpenForBids.CanAdvanceTo(ForgeOpenForBids))
}

func TestForgeStatusCancellation(t *testing.T) {
	assert.True(t, ForgeDraft.CanAdvanceTo(ForgeCancelled))
	assert.True(t, ForgeWinnerSelected.CanAdvanceTo(ForgeCancelled))

	// terminal states stay put
	assert.False(t, ForgeCancelled.CanAdvanceTo(ForgeOpenForBids))
	assert.False(t, ForgeCommissioned.CanAdvanceTo(ForgeCancelled))
}

func TestForgeStatusTerminal(t *testing.T) {
	assert.True(t, ForgeCancelled.Terminal())
	assert.True(t, ForgeCommissioned.Terminal())
	assert.False(t, ForgeOpenForBids.Terminal())
}
