// Package ledgerservice manages business logic layer of balance mutations.
package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/pkg/configpkg"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
	"github.com/go-petr/wallet-ledger/pkg/moneypkg"
)

// Repo provides data access layer interface needed by ledger service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	Apply(ctx context.Context, arg domain.ApplyParams) (domain.ApplyResult, error)
}

// Registry resolves the account of an owner.
type Registry interface {
	GetOrCreate(ctx context.Context, owner domain.OwnerID) (domain.Account, error)
}

// Service facilitates ledger service layer logic.
type Service struct {
	repo       Repo
	registry   Registry
	scale      int32
	maxRetries int
	backoff    time.Duration
}

// New returns ledger service struct to manage balance mutations.
//
// It returns moneypkg.ErrInvalidScale when LEDGER_SCALE is finer than the stored amounts.
func New(lr Repo, r Registry, config configpkg.Config) (*Service, error) {
	scale, err := moneypkg.Scale(config.LedgerScale)
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:       lr,
		registry:   r,
		scale:      scale,
		maxRetries: config.LedgerMaxRetries,
		backoff:    config.LedgerRetryBackoff,
	}, nil
}

// Credit increases the owner balance by arg.Amount and records a CREDIT entry.
func (s *Service) Credit(ctx context.Context, arg domain.MutationParams) (domain.Entry, error) {
	if arg.Category == "" {
		arg.Category = domain.CategoryTopUp
	}

	res, err := s.mutate(ctx, domain.Credit, arg, false)

	return res.Entry, err
}

// Debit decreases the owner balance by arg.Amount and records a DEBIT entry.
//
// It returns domain.ErrInsufficientBalance, leaving the account untouched,
// when the amount exceeds the balance.
func (s *Service) Debit(ctx context.Context, arg domain.MutationParams) (domain.Entry, error) {
	if arg.Category == "" {
		arg.Category = domain.CategoryDeduction
	}

	res, err := s.mutate(ctx, domain.Debit, arg, false)

	return res.Entry, err
}

// CreditOnce credits the owner unless the account already has an entry with
// the same category and reference id. In that case it returns the existing
// entry with Applied set to false.
func (s *Service) CreditOnce(ctx context.Context, arg domain.MutationParams) (domain.ApplyResult, error) {
	if arg.ReferenceID == "" {
		return domain.ApplyResult{}, domain.ErrMissingReference
	}

	if arg.Category == "" {
		arg.Category = domain.CategoryTopUp
	}

	return s.mutate(ctx, domain.Credit, arg, true)
}

func (s *Service) mutate(ctx context.Context, d domain.Direction, arg domain.MutationParams, idempotent bool) (domain.ApplyResult, error) {
	l := zerolog.Ctx(ctx).With().
		Str("owner_id", string(arg.OwnerID)).
		Str("direction", string(d)).
		Str("amount", arg.Amount.String()).
		Logger()

	if !moneypkg.Valid(arg.Amount, s.scale) {
		l.Info().Msg("invalid amount")
		return domain.ApplyResult{}, domain.ErrInvalidAmount
	}

	account, err := s.registry.GetOrCreate(ctx, arg.OwnerID)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	apply := domain.ApplyParams{
		AccountID:   account.ID,
		Direction:   d,
		Amount:      arg.Amount,
		Category:    arg.Category,
		Description: arg.Description,
		ReferenceID: arg.ReferenceID,
		Idempotent:  idempotent,
	}

	for attempt := 0; ; attempt++ {
		res, err := s.repo.Apply(ctx, apply)

		switch {
		case err == nil:
			if res.Applied {
				l.Info().Int64("entry_id", res.Entry.ID()).Str("balance", res.Account.Balance.String()).Msg("balance mutated")
			}

			return res, nil
		case errors.Is(err, domain.ErrConcurrencyConflict):
			if attempt >= s.maxRetries {
				l.Warn().Int("attempts", attempt+1).Msg("giving up on concurrent mutation")
				return domain.ApplyResult{}, domain.ErrConcurrencyConflict
			}
		case errors.Is(err, errorspkg.ErrInternal), errors.Is(err, domain.ErrAccountNotFound):
			return domain.ApplyResult{}, fmt.Errorf("%w: %w", domain.ErrAccountLookup, err)
		default:
			return domain.ApplyResult{}, err
		}

		select {
		case <-ctx.Done():
			return domain.ApplyResult{}, ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt+1)):
		}
	}
}
