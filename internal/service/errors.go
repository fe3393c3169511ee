package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientFunds  = errors.New("not enough moons")
	ErrPersistence        = errors.New("persistence failure")
	ErrUnauthorized       = errors.New("authentication required")
	ErrNotFamilyMember    = errors.New("user is not a member of this family")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidKidLogin    = errors.New("invalid username or PIN")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidFamilyCode  = errors.New("invalid family code")
	ErrInvalidInvitation  = errors.New("invitation is invalid or expired")
)

// NotFoundError reports a missing resource by name
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// InsufficientFundsError carries the numbers the client shows the kid
type InsufficientFundsError struct {
	CurrentMoons int
	Cost         int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Not enough moons: have %d, need %d", e.CurrentMoons, e.Cost)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// PersistenceError wraps a failed database write. It matches both
// ErrPersistence and the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
