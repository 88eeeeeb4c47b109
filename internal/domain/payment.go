package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCompleted is emitted by the order service once an order is marked paid.
type PaymentCompleted struct {
	OrderID           string          `json:"order_id"`
	PayerOwnerID      OwnerID         `json:"payer_owner_id"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PayerDesignations []string        `json:"payer_designations"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// CommissionOutcome tells what the commission trigger did with a payment.
type CommissionOutcome string

// Commission outcomes.
const (
	CommissionApplied           CommissionOutcome = "applied"
	CommissionAlreadyApplied    CommissionOutcome = "already_applied"
	CommissionNotQualified      CommissionOutcome = "not_qualified"
	CommissionNonPositiveAmount CommissionOutcome = "non_positive_amount"
	CommissionZero              CommissionOutcome = "zero_commission"
)

// CommissionResult is the result of handling a payment completion.
type CommissionResult struct {
	Outcome    CommissionOutcome `json:"outcome"`
	Commission decimal.Decimal   `json:"commission"`
	Entry      *Entry            `json:"entry,omitempty"`
}
