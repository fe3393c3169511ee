package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ClaimSource says which subsystem a claim came from
type ClaimSource string

const (
	SourceReward ClaimSource = "reward"
	SourceShop   ClaimSource = "shop"
)

// ClaimStatus is the lifecycle state of a claim
type ClaimStatus string

const (
	StatusPending     ClaimStatus = "pending"
	StatusApproved    ClaimStatus = "approved"
	StatusDenied      ClaimStatus = "denied"
	StatusUnfulfilled ClaimStatus = "unfulfilled"
	StatusFulfilled   ClaimStatus = "fulfilled"
)

// ErrInvalidTransition is returned when a claim cannot move to the requested status
var ErrInvalidTransition = errors.New("invalid claim status transition")

// transitions is the single resolution state machine shared by reward
// redemptions and shop purchases.
var transitions = map[ClaimSource]map[ClaimStatus][]ClaimStatus{
	SourceReward: {
		StatusPending: {StatusApproved, StatusDenied},
	},
	SourceShop: {
		StatusUnfulfilled: {StatusFulfilled},
	},
}

// InitialStatus is the status a new claim of the given source starts in
func InitialStatus(source ClaimSource) ClaimStatus {
	if source == SourceShop {
		return StatusUnfulfilled
	}
	return StatusPending
}

// ClaimDisplay is the normalized reward shape shown to parents
type ClaimDisplay struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Cost  int    `json:"cost"`
}

// Claim is a redeemable claim on moons, tagged with its source
type Claim struct {
	ID         int64        `json:"id"`
	Source     ClaimSource  `json:"source"`
	KidID      int64        `json:"kidId"`
	ItemID     string       `json:"itemId"`
	Status     ClaimStatus  `json:"status"`
	ClaimedAt  time.Time    `json:"claimedAt"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty"`
	Reward     ClaimDisplay `json:"reward"`
}

// Key identifies a claim across both sources
func (c Claim) Key() string {
	return string(c.Source) + ":" + strconv.FormatInt(c.ID, 10)
}

// Transition validates a move to the given status and returns the updated claim
func (c Claim) Transition(to ClaimStatus) (Claim, error) {
	allowed := transitions[c.Source][c.Status]
	for _, s := range allowed {
		if s == to {
			c.Status = to
			return c, nil
		}
	}
	return c, fmt.Errorf("%w: %s claim %d is %s, cannot become %s", ErrInvalidTransition, c.Source, c.ID, c.Status, to)
}

// Claim projects a redemption into the shared claim shape
func (r Redemption) Claim() Claim {
	emoji := r.RewardEmoji
	if emoji == "" {
		emoji = DefaultRewardEmoji
	}
	return Claim{
		ID:         r.ID,
		Source:     SourceReward,
		KidID:      r.KidID,
		ItemID:     strconv.FormatInt(r.RewardID, 10),
		Status:     r.Status,
		ClaimedAt:  r.RedeemedAt,
		ResolvedAt: r.ResolvedAt,
		Reward:     ClaimDisplay{Name: r.RewardName, Emoji: emoji, Cost: r.Cost},
	}
}

// Claim projects a shop purchase into the shared claim shape
func (p Purchase) Claim() Claim {
	name := p.ItemName
	if name == "" {
		name = "Shop Item"
	}
	return Claim{
		ID:         p.ID,
		Source:     SourceShop,
		KidID:      p.KidID,
		ItemID:     p.ItemID,
		Status:     p.Status,
		ClaimedAt:  p.PurchasedAt,
		ResolvedAt: p.FulfilledAt,
		Reward:     ClaimDisplay{Name: name, Emoji: DefaultRewardEmoji, Cost: p.Cost},
	}
}
