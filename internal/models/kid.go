package models

import "time"

// Kid represents a child profile in the system
type Kid struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"familyId"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	PinHash     string    `json:"-"`
	AvatarColor string    `json:"avatarColor"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// KidCredentials is returned once when a kid is created or their PIN is reset
type KidCredentials struct {
	Kid      *Kid   `json:"kid"`
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// Progress is the per-kid balance and streak record
type Progress struct {
	KidID             int64     `json:"kidId"`
	TotalMoons        int       `json:"totalMoons"`
	CurrentStreak     int       `json:"currentStreak"`
	BestStreak        int       `json:"bestStreak"`
	LastCompletedDate string    `json:"lastCompletedDate,omitempty"`
	SchoolDays        []int     `json:"schoolDays"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
