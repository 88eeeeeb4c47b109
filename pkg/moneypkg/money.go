// Package moneypkg provides fixed-point money helpers shared by the ledger layers.
package moneypkg

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultScale is the number of fractional digits of the ledger minimum unit.
const DefaultScale int32 = 2

// MaxScale is the number of fractional digits the amount columns store.
const MaxScale int32 = 4

// ErrInvalidScale indicates a ledger scale the storage cannot hold exactly.
var ErrInvalidScale = errors.New("invalid ledger scale")

// Scale returns the configured ledger scale, DefaultScale when unset.
func Scale(configured int32) (int32, error) {
	switch {
	case configured <= 0:
		return DefaultScale, nil
	case configured > MaxScale:
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidScale, configured, MaxScale)
	}

	return configured, nil
}

// Valid reports whether d is strictly positive and has no digits finer than scale.
func Valid(d decimal.Decimal, scale int32) bool {
	return d.IsPositive() && d.Equal(d.Truncate(scale))
}

// RoundHalfUp rounds a non-negative d to scale fractional digits.
func RoundHalfUp(d decimal.Decimal, scale int32) decimal.Decimal {
	// decimal.Round rounds halves away from zero, which is half-up for non-negative values.
	return d.Round(scale)
}

// ValidMoney validates that a string field holds a positive decimal number.
var ValidMoney validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := decimal.NewFromString(s)

	return err == nil && d.IsPositive()
}
