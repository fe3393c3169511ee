package models

import "time"

// TransactionKind classifies a balance change
type TransactionKind string

const (
	TransactionAward  TransactionKind = "award"
	TransactionBonus  TransactionKind = "bonus"
	TransactionSpend  TransactionKind = "spend"
	TransactionRefund TransactionKind = "refund"
	TransactionAdjust TransactionKind = "adjust"
)

// MoonTransaction is one row of the append-only balance ledger
type MoonTransaction struct {
	ID             int64           `json:"id"`
	KidID          int64           `json:"kidId"`
	Delta          int             `json:"delta"`
	Kind           TransactionKind `json:"kind"`
	Reference      string          `json:"reference,omitempty"`
	IdempotencyKey string          `json:"-"`
	Note           string          `json:"note,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Award sources
const (
	AwardSourceActivity   = "activity"
	AwardSourceJournal    = "journal"
	AwardSourceDailyBonus = "daily_bonus"
	AwardSourceBonus      = "bonus"
)

// Award is an award ledger entry: moons granted for an item on a day
type Award struct {
	ID        int64     `json:"id"`
	KidID     int64     `json:"kidId"`
	Date      string    `json:"date"`
	ItemID    string    `json:"itemId"`
	Moons     int       `json:"moons"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
	AwardedAt time.Time `json:"awardedAt"`
}
