package models

import "time"

// Reward categories
const (
	CategoryScreenTime  = "screen_time"
	CategoryActivities  = "activities"
	CategoryTreats      = "treats"
	CategoryPrivileges  = "privileges"
	CategoryExperiences = "experiences"
	CategoryCustom      = "custom"
)

// RewardCategories lists every accepted reward category
var RewardCategories = []string{
	CategoryScreenTime, CategoryActivities, CategoryTreats,
	CategoryPrivileges, CategoryExperiences, CategoryCustom,
}

// DefaultRewardEmoji is used when a reward or shop item has no emoji
const DefaultRewardEmoji = "🎁"

// Reward is a parent-defined reward a kid can redeem moons for
type Reward struct {
	ID          int64     `json:"id"`
	KidID       int64     `json:"kidId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	Category    string    `json:"category"`
	MoonCost    int       `json:"moonCost"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Redemption is a kid's request to exchange moons for a reward
type Redemption struct {
	ID             int64       `json:"id"`
	KidID          int64       `json:"kidId"`
	RewardID       int64       `json:"rewardId"`
	Cost           int         `json:"cost"`
	Status         ClaimStatus `json:"status"`
	IdempotencyKey string      `json:"-"`
	RedeemedAt     time.Time   `json:"redeemedAt"`
	ResolvedAt     *time.Time  `json:"resolvedAt,omitempty"`

	// Populated via JOIN
	RewardName  string `json:"rewardName,omitempty"`
	RewardEmoji string `json:"rewardEmoji,omitempty"`
}

// Purchase is a shop item bought with moons
type Purchase struct {
	ID             int64       `json:"id"`
	KidID          int64       `json:"kidId"`
	ItemID         string      `json:"itemId"`
	ItemName       string      `json:"itemName"`
	Cost           int         `json:"cost"`
	Status         ClaimStatus `json:"status"`
	IdempotencyKey string      `json:"-"`
	OwnershipKey   string      `json:"-"`
	PurchasedAt    time.Time   `json:"purchasedAt"`
	FulfilledAt    *time.Time  `json:"fulfilledAt,omitempty"`
}
