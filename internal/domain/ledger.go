package domain

import "github.com/shopspring/decimal"

// MutationParams is the input data for a credit or a debit.
type MutationParams struct {
	OwnerID     OwnerID         `json:"owner_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ReferenceID string          `json:"reference_id"`
}

// ApplyParams is the input data for a single atomic balance mutation.
type ApplyParams struct {
	AccountID   int64
	Direction   Direction
	Amount      decimal.Decimal
	Category    string
	Description string
	ReferenceID string
	// Idempotent skips the mutation when the account already has an entry
	// with the same Category and ReferenceID.
	Idempotent bool
}

// ApplyResult is the result of the balance mutation.
type ApplyResult struct {
	Account Account `json:"account"`
	Entry   Entry   `json:"entry"`
	Applied bool    `json:"applied"`
}

// Reconciliation compares the live balance with the replayed entry log.
type Reconciliation struct {
	OwnerID    OwnerID         `json:"owner_id"`
	Balance    decimal.Decimal `json:"balance"`
	EntriesSum decimal.Decimal `json:"entries_sum"`
	Consistent bool            `json:"consistent"`
}
