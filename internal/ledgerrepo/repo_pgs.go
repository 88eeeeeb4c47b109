// Package ledgerrepo applies balance mutations atomically.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/go-petr/wallet-ledger/internal/accountrepo"
	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/internal/entryrepo"
	"github.com/go-petr/wallet-ledger/pkg/dbpkg"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns ledger RepoPGS wiht connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{conn: db}
}

// Apply performs a single credit or debit of one account.
//
// Within one database transaction it locks the account row, checks the
// idempotency key, validates the resulting balance, writes the balance guarded
// by the account version and appends the entry. Either all of it commits or
// nothing does.
func (r *RepoPGS) Apply(ctx context.Context, arg domain.ApplyParams) (domain.ApplyResult, error) {
	l := zerolog.Ctx(ctx).With().
		Int64("account_id", arg.AccountID).
		Str("direction", string(arg.Direction)).
		Str("amount", arg.Amount.String()).
		Logger()

	var result domain.ApplyResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	accountRepo := accountrepo.NewRepoPGS(tx)
	entryRepo := entryrepo.NewRepoPGS(tx)

	account, err := accountRepo.GetForUpdate(ctx, arg.AccountID)
	if err != nil {
		return result, err
	}

	if arg.Idempotent {
		existing, err := entryRepo.GetByReference(ctx, arg.AccountID, arg.Category, arg.ReferenceID)

		switch {
		case err == nil:
			l.Info().Str("reference_id", arg.ReferenceID).Msg("mutation already applied")

			if err := tx.Commit(); err != nil {
				l.Error().Err(err).Send()
				return result, errorspkg.ErrInternal
			}

			return domain.ApplyResult{Account: account, Entry: existing}, nil
		case !errors.Is(err, domain.ErrEntryNotFound):
			return result, err
		}
	}

	balance, err := domain.NextBalance(account.Balance, arg.Direction, arg.Amount)
	if err != nil {
		l.Info().Err(err).Str("balance", account.Balance.String()).Send()
		return result, err
	}

	result.Account, err = accountRepo.UpdateBalance(ctx, account.ID, balance, account.Version)
	if err != nil {
		return result, err
	}

	result.Entry, err = entryRepo.Create(ctx, domain.EntryRecord{
		AccountID:   account.ID,
		Direction:   arg.Direction,
		Amount:      arg.Amount,
		Category:    arg.Category,
		Description: arg.Description,
		ReferenceID: arg.ReferenceID,
	})
	if err != nil {
		return domain.ApplyResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()

		if dbpkg.IsRetryable(err) {
			return domain.ApplyResult{}, domain.ErrConcurrencyConflict
		}

		return domain.ApplyResult{}, errorspkg.ErrInternal
	}

	result.Applied = true

	return result, nil
}
