// Package memstore keeps accounts and entries in process memory.
//
// It serves DB_DRIVER=memory and the ledger property tests. Mutations of one
// account are serialized by a per-account mutex and guarded by the account
// version, the same discipline the Postgres repositories follow.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
)

type refKey struct {
	category    string
	referenceID string
}

type account struct {
	domain.Account
	entries []domain.Entry // oldest first, appended in place
	sum     decimal.Decimal
	refs    map[refKey]domain.Entry
}

// Store is an in-memory implementation of the account, ledger and history repositories.
type Store struct {
	mu       sync.RWMutex // guards every field below
	accounts map[int64]*account
	byOwner  map[domain.OwnerID]int64
	lastID   int64
	lastEID  int64

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[int64]*account),
		byOwner:  make(map[domain.OwnerID]int64),
		locks:    make(map[int64]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) accountLock(id int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}

	return s.locks[id]
}

// Create creates a zero balance account for the owner and then returns it.
func (s *Store) Create(_ context.Context, owner domain.OwnerID) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOwner[owner]; ok {
		return domain.Account{}, domain.ErrAccountAlreadyExists
	}

	s.lastID++
	now := s.now()

	a := &account{
		Account: domain.Account{
			ID:        s.lastID,
			OwnerID:   owner,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		},
		sum:  decimal.Zero,
		refs: make(map[refKey]domain.Entry),
	}

	s.accounts[a.ID] = a
	s.byOwner[owner] = a.ID

	return a.Account, nil
}

// GetByOwner returns the account of the given owner.
func (s *Store) GetByOwner(_ context.Context, owner domain.OwnerID) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byOwner[owner]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.accounts[id].Account, nil
}

// snapshot returns the account with its entries and their signed sum as of one instant.
// The entries slice is capped at its length so later appends never show through it.
func (s *Store) snapshot(id int64) (domain.Account, []domain.Entry, decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, nil, decimal.Zero, false
	}

	n := len(a.entries)

	return a.Account, a.entries[:n:n], a.sum, true
}

func (s *Store) applied(id int64, key refKey) (domain.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.accounts[id].refs[key]

	return e, ok
}

// Apply performs a single credit or debit of one account atomically.
func (s *Store) Apply(ctx context.Context, arg domain.ApplyParams) (domain.ApplyResult, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Amount.IsPositive() {
		return domain.ApplyResult{}, domain.ErrInvalidAmount
	}

	lock := s.accountLock(arg.AccountID)
	lock.Lock()
	defer lock.Unlock()

	current, _, _, ok := s.snapshot(arg.AccountID)
	if !ok {
		return domain.ApplyResult{}, domain.ErrAccountNotFound
	}

	key := refKey{category: arg.Category, referenceID: arg.ReferenceID}

	if arg.Idempotent {
		if e, ok := s.applied(arg.AccountID, key); ok {
			l.Info().Str("reference_id", arg.ReferenceID).Msg("mutation already applied")
			return domain.ApplyResult{Account: current, Entry: e}, nil
		}
	}

	balance, err := domain.NextBalance(current.Balance, arg.Direction, arg.Amount)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.accounts[arg.AccountID]
	if a.Version != current.Version {
		return domain.ApplyResult{}, domain.ErrConcurrencyConflict
	}

	s.lastEID++
	now := s.now()

	entry := domain.NewEntry(domain.EntryRecord{
		ID:          s.lastEID,
		AccountID:   a.ID,
		Direction:   arg.Direction,
		Amount:      arg.Amount,
		Category:    arg.Category,
		Description: arg.Description,
		ReferenceID: arg.ReferenceID,
		CreatedAt:   now,
	})

	a.Balance = balance
	a.Version++
	a.UpdatedAt = now
	a.entries = append(a.entries, entry)
	a.sum = a.sum.Add(entry.Signed())

	if _, ok := a.refs[key]; !ok && arg.ReferenceID != "" {
		a.refs[key] = entry
	}

	return domain.ApplyResult{Account: a.Account, Entry: entry, Applied: true}, nil
}

// List returns the specified number of entries for the given accountID, newest first.
//
// An offset past the last entry yields an empty page.
func (s *Store) List(_ context.Context, accountID int64, limit, offset int64) ([]domain.Entry, error) {
	_, entries, _, _ := s.snapshot(accountID)

	items := []domain.Entry{}

	n := int64(len(entries))
	if offset < 0 || offset >= n || limit <= 0 {
		return items, nil
	}

	for i := n - 1 - offset; i >= 0 && int64(len(items)) < limit; i-- {
		items = append(items, entries[i])
	}

	return items, nil
}

// Totals returns the account balance and the signed sum of its entries read together.
func (s *Store) Totals(_ context.Context, accountID int64) (balance, sum decimal.Decimal, err error) {
	a, _, sum, ok := s.snapshot(accountID)
	if !ok {
		return decimal.Zero, decimal.Zero, domain.ErrAccountNotFound
	}

	return a.Balance, sum, nil
}
