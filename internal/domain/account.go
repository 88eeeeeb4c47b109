// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyExists indicates that the owner already has an account.
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrAccountLookup indicates a storage failure while resolving or mutating an account.
	ErrAccountLookup = errors.New("account lookup failure")
	// ErrInvalidOwner indicates an empty or malformed owner id.
	ErrInvalidOwner = errors.New("invalid owner")
)

// OwnerID is an opaque identity of an account owner supplied by the identity collaborator.
type OwnerID string

// Valid reports whether the owner id can key an account.
func (o OwnerID) Valid() bool {
	return o != ""
}

// Account holds the current balance of one owner.
type Account struct {
	ID        int64           `json:"id"`
	OwnerID   OwnerID         `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"` // never negative
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
