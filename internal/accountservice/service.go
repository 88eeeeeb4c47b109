// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/go-petr/wallet-ledger/internal/domain"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, owner domain.OwnerID) (domain.Account, error)
	GetByOwner(ctx context.Context, owner domain.OwnerID) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// GetOrCreate returns the account of the owner, creating a zero balance one on first access.
//
// Concurrent first access is resolved by the unique owner constraint: the
// losing insert re-reads the account created by the winner.
func (s *Service) GetOrCreate(ctx context.Context, owner domain.OwnerID) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !owner.Valid() {
		return domain.Account{}, domain.ErrInvalidOwner
	}

	account, err := s.repo.GetByOwner(ctx, owner)
	if err == nil {
		return account, nil
	}

	if !errors.Is(err, domain.ErrAccountNotFound) {
		l.Error().Err(err).Str("owner_id", string(owner)).Msg("cannot get account")
		return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrAccountLookup, err)
	}

	account, err = s.repo.Create(ctx, owner)
	switch {
	case err == nil:
		l.Info().Str("owner_id", string(owner)).Int64("account_id", account.ID).Msg("account created")
		return account, nil
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		account, err = s.repo.GetByOwner(ctx, owner)
		if err == nil {
			return account, nil
		}
	}

	l.Error().Err(err).Str("owner_id", string(owner)).Msg("cannot create account")

	return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrAccountLookup, err)
}

// Get returns the account of the owner without creating it.
func (s *Service) Get(ctx context.Context, owner domain.OwnerID) (domain.Account, error) {
	if !owner.Valid() {
		return domain.Account{}, domain.ErrInvalidOwner
	}

	account, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Account{}, err
		}

		return domain.Account{}, fmt.Errorf("%w: %w", domain.ErrAccountLookup, err)
	}

	return account, nil
}
