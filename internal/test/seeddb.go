// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/accountrepo"
	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/internal/entryrepo"
	"github.com/go-petr/wallet-ledger/pkg/dbpkg"
	"github.com/go-petr/wallet-ledger/pkg/randompkg"
)

// RandomAccount returns random account owned by the given owner.
func RandomAccount(owner domain.OwnerID) domain.Account {
	return domain.Account{
		ID:        randompkg.IntBetween(1, 100),
		OwnerID:   owner,
		Balance:   randompkg.MoneyBetween(1000, 10_000),
		Version:   randompkg.IntBetween(0, 10),
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
		UpdatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

// RandomEntry returns random entry of the given account.
func RandomEntry(accountID int64, d domain.Direction) domain.Entry {
	return domain.NewEntry(domain.EntryRecord{
		ID:          randompkg.IntBetween(1, 1000),
		AccountID:   accountID,
		Direction:   d,
		Amount:      randompkg.MoneyBetween(1, 100),
		Category:    domain.CategoryTopUp,
		Description: randompkg.String(12),
		CreatedAt:   time.Now().Truncate(time.Second).UTC(),
	})
}

// SeedAccount creates zero balance Account for a random owner.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface) domain.Account {
	t.Helper()

	owner := domain.OwnerID(randompkg.Owner())
	accountRepo := accountrepo.NewRepoPGS(db)

	account, err := accountRepo.Create(context.Background(), owner)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %v) returned error: %v", owner, err)
	}

	return account
}

// SeedEntry appends a credit or debit Entry to the account log without touching the balance.
func SeedEntry(t *testing.T, db dbpkg.SQLInterface, accountID int64, d domain.Direction, amount decimal.Decimal, ref string) domain.Entry {
	t.Helper()

	entryRepo := entryrepo.NewRepoPGS(db)

	arg := domain.EntryRecord{
		AccountID:   accountID,
		Direction:   d,
		Amount:      amount,
		Category:    domain.CategoryTopUp,
		Description: randompkg.String(12),
		ReferenceID: ref,
	}

	entry, err := entryRepo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("entryRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return entry
}
