package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates a non-positive or malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance indicates that the debit would drive the balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConcurrencyConflict indicates that the account was modified concurrently too many times.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrInvalidDirection indicates an unknown entry direction.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrMissingReference indicates that an idempotent mutation has no reference id.
	ErrMissingReference = errors.New("missing reference id")
	// ErrEntryNotFound indicates that the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidPage indicates out of range pagination parameters.
	ErrInvalidPage = errors.New("invalid page")
)

// Direction tells whether an entry adds to or subtracts from the balance.
type Direction string

// Entry directions.
const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

// Entry categories used by the built-in callers.
const (
	CategoryTopUp      = "top-up"
	CategoryDeduction  = "deduction"
	CategoryCommission = "commission"
)

// EntryRecord is the persisted shape of an entry.
//
// Repositories scan rows into it and turn it into an Entry with NewEntry.
type EntryRecord struct {
	ID          int64
	AccountID   int64
	Direction   Direction
	Amount      decimal.Decimal
	Category    string
	Description string
	ReferenceID string
	CreatedAt   time.Time
}

// Entry is an immutable balance change of one account.
type Entry struct {
	id          int64
	accountID   int64
	direction   Direction
	amount      decimal.Decimal
	category    string
	description string
	referenceID string
	createdAt   time.Time
}

// NewEntry freezes the record into an Entry.
func NewEntry(r EntryRecord) Entry {
	return Entry{
		id:          r.ID,
		accountID:   r.AccountID,
		direction:   r.Direction,
		amount:      r.Amount,
		category:    r.Category,
		description: r.Description,
		referenceID: r.ReferenceID,
		createdAt:   r.CreatedAt,
	}
}

func (e Entry) ID() int64               { return e.id }
func (e Entry) AccountID() int64        { return e.accountID }
func (e Entry) Direction() Direction    { return e.direction }
func (e Entry) Amount() decimal.Decimal { return e.amount }
func (e Entry) Category() string        { return e.category }
func (e Entry) Description() string     { return e.description }
func (e Entry) ReferenceID() string     { return e.referenceID }
func (e Entry) CreatedAt() time.Time    { return e.createdAt }

// IsZero reports whether e was never persisted.
func (e Entry) IsZero() bool {
	return e.id == 0
}

// Signed returns the amount as it contributes to the balance.
func (e Entry) Signed() decimal.Decimal {
	if e.direction == Debit {
		return e.amount.Neg()
	}

	return e.amount
}

// Record returns a copy of the entry data.
func (e Entry) Record() EntryRecord {
	return EntryRecord{
		ID:          e.id,
		AccountID:   e.accountID,
		Direction:   e.direction,
		Amount:      e.amount,
		Category:    e.category,
		Description: e.description,
		ReferenceID: e.referenceID,
		CreatedAt:   e.createdAt,
	}
}

type entryJSON struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ReferenceID string          `json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON(e.Record()))
}

// UnmarshalJSON implements json.Unmarshaler so API clients can decode entries.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var v entryJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*e = NewEntry(EntryRecord(v))

	return nil
}

// SumSigned adds up the signed amounts of the entries.
func SumSigned(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Signed())
	}

	return sum
}

// NextBalance returns the balance after applying amount in the given direction.
func NextBalance(balance decimal.Decimal, d Direction, amount decimal.Decimal) (decimal.Decimal, error) {
	switch d {
	case Credit:
		return balance.Add(amount), nil
	case Debit:
		if amount.GreaterThan(balance) {
			return balance, ErrInsufficientBalance
		}

		return balance.Sub(amount), nil
	}

	return balance, ErrInvalidDirection
}
