// Package commission credits qualifying payers a share of their completed payments.
package commission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/pkg/configpkg"
	"github.com/go-petr/wallet-ledger/pkg/moneypkg"
)

var (
	// ErrInvalidRate indicates a commission rate outside (0, 1].
	ErrInvalidRate = errors.New("invalid commission rate")
	// ErrMissingDesignation indicates an empty COMMISSION_DESIGNATION.
	ErrMissingDesignation = errors.New("missing commission designation")
)

// Ledger provides the idempotent credit needed by the trigger.
//
//go:generate mockgen -source trigger.go -destination trigger_mock.go -package commission
type Ledger interface {
	CreditOnce(ctx context.Context, arg domain.MutationParams) (domain.ApplyResult, error)
}

// Trigger converts completed payments into commission credits.
type Trigger struct {
	ledger      Ledger
	rate        decimal.Decimal
	designation string
	scale       int32
}

// New returns commission Trigger configured by COMMISSION_RATE and COMMISSION_DESIGNATION.
func New(ledger Ledger, config configpkg.Config) (*Trigger, error) {
	rate, err := decimal.NewFromString(config.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRate, config.CommissionRate)
	}

	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}

	designation := strings.TrimSpace(config.CommissionDesignation)
	if designation == "" {
		return nil, ErrMissingDesignation
	}

	scale, err := moneypkg.Scale(config.LedgerScale)
	if err != nil {
		return nil, err
	}

	return &Trigger{
		ledger:      ledger,
		rate:        rate,
		designation: designation,
		scale:       scale,
	}, nil
}

// Qualifies reports whether the payer carries the commission designation.
func (t *Trigger) Qualifies(designations []string) bool {
	for _, d := range designations {
		if strings.EqualFold(strings.TrimSpace(d), t.designation) {
			return true
		}
	}

	return false
}

// Commission returns the commission for the paid amount rounded half-up to the ledger scale.
func (t *Trigger) Commission(paid decimal.Decimal) decimal.Decimal {
	return moneypkg.RoundHalfUp(paid.Mul(t.rate), t.scale)
}

// Handle credits the payer once per order when the payer qualifies.
//
// Skipped payments are reported through the result outcome, not as errors.
func (t *Trigger) Handle(ctx context.Context, event domain.PaymentCompleted) (domain.CommissionResult, error) {
	l := zerolog.Ctx(ctx).With().
		Str("order_id", event.OrderID).
		Str("payer_owner_id", string(event.PayerOwnerID)).
		Logger()

	if !event.PayerOwnerID.Valid() {
		return domain.CommissionResult{}, domain.ErrInvalidOwner
	}

	if event.OrderID == "" {
		return domain.CommissionResult{}, domain.ErrMissingReference
	}

	if !t.Qualifies(event.PayerDesignations) {
		l.Debug().Msg("payer does not qualify for commission")
		return domain.CommissionResult{Outcome: domain.CommissionNotQualified}, nil
	}

	if !event.PaidAmount.IsPositive() {
		l.Info().Str("paid_amount", event.PaidAmount.String()).Msg("skipping non-positive payment")
		return domain.CommissionResult{Outcome: domain.CommissionNonPositiveAmount}, nil
	}

	commission := t.Commission(event.PaidAmount)
	if !commission.IsPositive() {
		l.Info().Str("paid_amount", event.PaidAmount.String()).Msg("commission rounds to zero")
		return domain.CommissionResult{Outcome: domain.CommissionZero, Commission: commission}, nil
	}

	res, err := t.ledger.CreditOnce(ctx, domain.MutationParams{
		OwnerID:     event.PayerOwnerID,
		Amount:      commission,
		Category:    domain.CategoryCommission,
		Description: "commission for order " + event.OrderID,
		ReferenceID: event.OrderID,
	})
	if err != nil {
		l.Error().Err(err).Msg("cannot credit commission")
		return domain.CommissionResult{}, err
	}

	result := domain.CommissionResult{
		Outcome:    domain.CommissionApplied,
		Commission: commission,
		Entry:      &res.Entry,
	}

	if !res.Applied {
		l.Info().Int64("entry_id", res.Entry.ID()).Msg("commission already applied")
		result.Outcome = domain.CommissionAlreadyApplied
		result.Commission = res.Entry.Amount()
	}

	return result, nil
}
