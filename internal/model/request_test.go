package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextProgressState(t *testing.T) {
	assert.Equal(t, RequestStatusApproved, NextProgressState(RequestStatusPurchased))
	assert.Equal(t, RequestStatusPurchased, NextProgressState(RequestStatusDelivered))
	assert.Equal(t, RequestStatusDelivered, NextProgressState(RequestStatusCompleted))

	// Non-progress states have no predecessor in the chain
	assert.Empty(t, NextProgressState(RequestStatusApproved))
	assert.Empty(t, NextProgressState(RequestStatusPending))
	assert.Empty(t, NextProgressState("shipped"))
}

func TestAdvanceable(t *testing.T) {
	assert.True(t, Advanceable(RequestTypeLogisticsItem))
	assert.True(t, Advanceable(RequestTypeDocumentApproval))
	assert.False(t, Advanceable(RequestTypeLeave))
	assert.False(t, Advanceable(RequestTypeRegistration))
}

func TestUrgencyRank(t *testing.T) {
	assert.Greater(t, UrgencyRank(UrgencyUrgent), UrgencyRank(UrgencyHigh))
	assert.Greater(t, UrgencyRank(UrgencyHigh), UrgencyRank(UrgencyMedium))
	assert.Greater(t, UrgencyRank(UrgencyMedium), UrgencyRank(UrgencyLow))
	assert.Equal(t, UrgencyRank(UrgencyLow), UrgencyRank("unknown"))
}

func TestTerminalStatus(t *testing.T) {
	assert.True(t, TerminalStatus(RequestStatusRejected))
	assert.True(t, TerminalStatus(RequestStatusCompleted))
	assert.False(t, TerminalStatus(RequestStatusApproved), "approved logistics requests keep moving")
	assert.False(t, TerminalStatus(RequestStatusPending))
}
