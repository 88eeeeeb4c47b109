// Package entryrepo manages repository layer of entries.
//
// Entries are append-only: the repository exposes no update or delete.
package entryrepo

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
	constraintAccountFKey  = "entries_account_id_fkey"
	constraintAmountCheck  = "entries_amount_check"
	constraintDirectionChk = "entries_direction_check"
)

// RepoPGS facilitates entry repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns entry RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const entryColumns = `id, account_id, direction, amount, category, description, reference_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (domain.Entry, error) {
	var (
		r   domain.EntryRecord
		ref sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&r.AccountID,
		&r.Direction,
		&r.Amount,
		&r.Category,
		&r.Description,
		&ref,
		&r.CreatedAt,
	)
	if err != nil {
		return domain.Entry{}, err
	}

	r.ReferenceID = ref.String

	return domain.NewEntry(r), nil
}

const createQuery = `
INSERT INTO
    entries (account_id, direction, amount, category, description, reference_id)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING ` + entryColumns

// Create appends the entry and then returns it. ID and CreatedAt of arg are ignored.
func (r *RepoPGS) Create(ctx context.Context, arg domain.EntryRecord) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	ref := sql.NullString{String: arg.ReferenceID, Valid: arg.ReferenceID != ""}

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.AccountID,
		arg.Direction,
		arg.Amount,
		arg.Category,
		arg.Description,
		ref,
	)

	e, err := scan(row)
	if err != nil {
		switch dbpkg.Constraint(err) {
		case constraintAccountFKey:
			return e, domain.ErrAccountNotFound
		case constraintAmountCheck:
			return e, domain.ErrInvalidAmount
		case constraintDirectionChk:
			return e, domain.ErrInvalidDirection
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Msgf("Create(ctx context.Context, %+v)", arg)

		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const getByReferenceQuery = `
SELECT ` + entryColumns + `
FROM entries
WHERE account_id = $1 AND category = $2 AND reference_id = $3
ORDER BY id
LIMIT 1
`

// GetByReference returns the first entry of the account with the given category and reference id.
func (r *RepoPGS) GetByReference(ctx context.Context, accountID int64, category, referenceID string) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	e, err := scan(r.db.QueryRowContext(ctx, getByReferenceQuery, accountID, category, referenceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, domain.ErrEntryNotFound
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()

		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const listQuery = `
SELECT ` + entryColumns + `
FROM entries
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

// List returns the specified number of entries for the given accountID, newest first.
func (r *RepoPGS) List(ctx context.Context, accountID int64, limit, offset int64) ([]domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, accountID, limit, offset)
	if err != nil {
		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Entry{}

	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

// totalsQuery reads the balance and the entry sum in one statement, so both
// come from the same snapshot even under READ COMMITTED.
const totalsQuery = `
SELECT a.balance,
       COALESCE(SUM(CASE WHEN e.direction = 'DEBIT' THEN -e.amount ELSE e.amount END), 0)
FROM accounts a
LEFT JOIN entries e ON e.account_id = a.id
WHERE a.id = $1
GROUP BY a.id, a.balance
`

// Totals returns the account balance and the signed sum of all its entries.
func (r *RepoPGS) Totals(ctx context.Context, accountID int64) (balance, sum decimal.Decimal, err error) {
	l := zerolog.Ctx(ctx)

	err = r.db.QueryRowContext(ctx, totalsQuery, accountID).Scan(&balance, &sum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, domain.ErrAccountNotFound
		}

		l.Error().Stack().Err(pkgerrors.WithStack(err)).Send()

		return decimal.Zero, decimal.Zero, errorspkg.ErrInternal
	}

	return balance, sum, nil
}
