// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/pkg/dbpkg"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
)

const (
	constraintOwnerKey     = "accounts_owner_id_key"
	constraintBalanceCheck = "accounts_balance_check"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, owner_id, balance, version, created_at, updated_at`

func scan(row *sql.Row) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

const createQuery = `
INSERT INTO
    accounts (owner_id)
VALUES
    ($1)
RETURNING ` + accountColumns

// Create creates a zero balance account for the owner and then returns it.
func (r *RepoPGS) Create(ctx context.Context, owner domain.OwnerID) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, createQuery, owner))
	if err != nil {
		if dbpkg.Constraint(err) == constraintOwnerKey {
			l.Info().Err(err).Str("owner_id", string(owner)).Msg("account already exists")
			return domain.Account{}, domain.ErrAccountAlreadyExists
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getByOwnerQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE owner_id = $1
`

// GetByOwner returns the account of the given owner.
func (r *RepoPGS) GetByOwner(ctx context.Context, owner domain.OwnerID) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, getByOwnerQuery, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getForUpdateQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the account with the given id and locks its row
// until the enclosing transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, getForUpdateQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		if dbpkg.IsRetryable(err) {
			l.Warn().Err(err).Int64("account_id", id).Msg("lock conflict")
			return domain.Account{}, domain.ErrConcurrencyConflict
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const updateBalanceQuery = `
UPDATE accounts
SET balance = $1, version = version + 1, updated_at = now()
WHERE id = $2 AND version = $3
RETURNING ` + accountColumns

// UpdateBalance sets the balance if the account is still at the expected version.
//
// It returns domain.ErrConcurrencyConflict when another writer advanced the version.
func (r *RepoPGS) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal, version int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scan(r.db.QueryRowContext(ctx, updateBalanceQuery, balance, id, version))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			l.Warn().Int64("account_id", id).Int64("version", version).Msg("stale account version")
			return domain.Account{}, domain.ErrConcurrencyConflict
		case dbpkg.IsRetryable(err):
			l.Warn().Err(err).Int64("account_id", id).Msg("update conflict")
			return domain.Account{}, domain.ErrConcurrencyConflict
		case dbpkg.Constraint(err) == constraintBalanceCheck:
			return domain.Account{}, domain.ErrInsufficientBalance
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}
