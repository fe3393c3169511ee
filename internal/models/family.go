package models

import "time"

// Family represents a group of parents managing kids together
type Family struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FamilyCode string    `json:"familyCode"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FamilyMember represents the relationship between a user and a family
type FamilyMember struct {
	ID       int64     `json:"id"`
	FamilyID int64     `json:"familyId"`
	UserID   int64     `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"` // 'parent' or 'admin'
	JoinedAt time.Time `json:"joinedAt"`
}
