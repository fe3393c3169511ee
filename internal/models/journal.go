package models

import "time"

// JournalEntry is a kid's journal for one day
type JournalEntry struct {
	ID        int64     `json:"id"`
	KidID     int64     `json:"kidId"`
	Date      string    `json:"date"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Skipped   bool      `json:"skipped"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Completion is one finished lesson or activity
type Completion struct {
	ID          int64     `json:"id"`
	KidID       int64     `json:"kidId"`
	CompletedOn string    `json:"completedOn"`
	ItemID      string    `json:"itemId"`
	Subject     string    `json:"subject"`
	Minutes     int       `json:"minutes"`
	CreatedAt   time.Time `json:"createdAt"`
}
