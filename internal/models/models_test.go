package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future expiration", time.Now().Add(1 * time.Hour), false},
		{"just expired", time.Now().Add(-1 * time.Second), true},
		{"expired yesterday", time.Now().Add(-24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{ID: "test-session", UserID: 1, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, session.IsExpired())
		})
	}
}

func TestInvitationIsValid(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Minute)

	assert.True(t, (&Invitation{ExpiresAt: now.Add(time.Hour)}).IsValid())
	assert.False(t, (&Invitation{ExpiresAt: now.Add(-time.Hour)}).IsValid())
	assert.False(t, (&Invitation{ExpiresAt: now.Add(time.Hour), UsedAt: &used}).IsValid())
}

func TestClaimTransitions(t *testing.T) {
	tests := []struct {
		name    string
		source  ClaimSource
		from    ClaimStatus
		to      ClaimStatus
		wantErr bool
	}{
		{"reward approve", SourceReward, StatusPending, StatusApproved, false},
		{"reward deny", SourceReward, StatusPending, StatusDenied, false},
		{"reward fulfil", SourceReward, StatusPending, StatusFulfilled, true},
		{"reward re-approve", SourceReward, StatusApproved, StatusApproved, true},
		{"reward approve after deny", SourceReward, StatusDenied, StatusApproved, true},
		{"shop fulfil", SourceShop, StatusUnfulfilled, StatusFulfilled, false},
		{"shop approve", SourceShop, StatusUnfulfilled, StatusApproved, true},
		{"shop fulfil twice", SourceShop, StatusFulfilled, StatusFulfilled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := Claim{ID: 1, Source: tt.source, Status: tt.from}
			next, err := claim.Transition(tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.Equal(t, tt.from, next.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, next.Status)
		})
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusPending, InitialStatus(SourceReward))
	assert.Equal(t, StatusUnfulfilled, InitialStatus(SourceShop))
}

func TestClaimProjection(t *testing.T) {
	at := time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC)

	r := Redemption{ID: 4, KidID: 2, RewardID: 9, Cost: 10, Status: StatusPending, RedeemedAt: at, RewardName: "Movie night"}
	c := r.Claim()
	assert.Equal(t, SourceReward, c.Source)
	assert.Equal(t, "9", c.ItemID)
	assert.Equal(t, ClaimDisplay{Name: "Movie night", Emoji: DefaultRewardEmoji, Cost: 10}, c.Reward)
	assert.Equal(t, "reward:4", c.Key())

	p := Purchase{ID: 4, KidID: 2, ItemID: "night-owl", Cost: 15, Status: StatusUnfulfilled, PurchasedAt: at}
	c = p.Claim()
	assert.Equal(t, SourceShop, c.Source)
	assert.Equal(t, "Shop Item", c.Reward.Name)
	assert.Equal(t, "shop:4", c.Key())
}
