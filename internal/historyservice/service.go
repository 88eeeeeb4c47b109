// Package historyservice reads the entry log of accounts.
package historyservice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
)

// MaxPageSize is the largest accepted page size.
const MaxPageSize = 100

// Repo provides data access layer interface needed by history service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package historyservice
type Repo interface {
	List(ctx context.Context, accountID int64, limit, offset int64) ([]domain.Entry, error)
	// Totals reads the balance and the signed entry sum as of one instant.
	Totals(ctx context.Context, accountID int64) (balance, sum decimal.Decimal, err error)
}

// Registry resolves the account of an owner.
type Registry interface {
	GetOrCreate(ctx context.Context, owner domain.OwnerID) (domain.Account, error)
}

// Service facilitates history service layer logic.
type Service struct {
	repo     Repo
	registry Registry
}

// New returns history service struct.
func New(er Repo, r Registry) *Service {
	return &Service{
		repo:     er,
		registry: r,
	}
}

// ListTransactions returns a page of the owner entries, newest first.
func (s *Service) ListTransactions(ctx context.Context, owner domain.OwnerID, pageID, pageSize int32) ([]domain.Entry, error) {
	if pageID < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, domain.ErrInvalidPage
	}

	account, err := s.registry.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	limit := int64(pageSize)
	offset := (int64(pageID) - 1) * limit

	entries, err := s.repo.List(ctx, account.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAccountLookup, err)
	}

	return entries, nil
}

// GetBalance returns the current balance of the owner.
func (s *Service) GetBalance(ctx context.Context, owner domain.OwnerID) (decimal.Decimal, error) {
	account, err := s.registry.GetOrCreate(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}

	return account.Balance, nil
}

// Reconcile compares the owner balance with the signed sum of every entry of the account.
func (s *Service) Reconcile(ctx context.Context, owner domain.OwnerID) (domain.Reconciliation, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.registry.GetOrCreate(ctx, owner)
	if err != nil {
		return domain.Reconciliation{}, err
	}

	balance, sum, err := s.repo.Totals(ctx, account.ID)
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("%w: %w", domain.ErrAccountLookup, err)
	}

	res := domain.Reconciliation{
		OwnerID:    owner,
		Balance:    balance,
		EntriesSum: sum,
		Consistent: balance.Equal(sum),
	}

	if !res.Consistent {
		l.Error().
			Str("owner_id", string(owner)).
			Str("balance", balance.String()).
			Str("entries_sum", sum.String()).
			Msg("balance does not match entry log")
	}

	return res, nil
}
