package service

// Access is the level of data access granted to a caller for one kid
type Access int

const (
	// AccessRestricted is a family parent acting on one of their kids
	AccessRestricted Access = iota
	// AccessElevated is the kid acting on their own records
	AccessElevated
)

func (a Access) String() string {
	if a == AccessElevated {
		return "elevated"
	}
	return "restricted"
}

// Caller identifies who is making a request. Either field may be zero.
type Caller struct {
	UserID   int64
	KidID    int64
	FamilyID int64
}

// IsKid reports whether the caller holds a kid session for kidID
func (c Caller) IsKid(kidID int64) bool {
	return c.KidID != 0 && c.KidID == kidID
}

// IsParent reports whether the caller holds a parent session
func (c Caller) IsParent() bool {
	return c.UserID != 0
}
