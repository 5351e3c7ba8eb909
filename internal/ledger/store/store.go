// Package store holds the in-memory record sets backing the ledger engine:
// accounts, transactions and entries. The contract is append and read only;
// update and delete simply do not exist, which is how the append-only
// invariant is enforced.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rvaz/eqledger/internal/ledger"
)

// Store owns the three record sets. Mutations happen only inside the
// coordinator's exclusive region; the RWMutex lets read-only callers run
// concurrently with it.
type Store struct {
	mu           sync.RWMutex
	accounts     []ledger.Account
	transactions []ledger.Transaction
	entries      []ledger.Entry
}

func New() *Store {
	return &Store{}
}

// Store implements the engine's persistence contract.
var _ ledger.Store = (*Store)(nil)

// snapshot is a deep copy of the store's full state at one instant. It
// leaves this package only as the opaque ledger.Snapshot token.
type snapshot struct {
	accounts     []ledger.Account
	transactions []ledger.Transaction
	entries      []ledger.Entry
}

func (s *Store) Accounts() []ledger.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Account, len(s.accounts))
	copy(out, s.accounts)

	return out
}

// Account returns the account with the given id, reporting absence via the
// second return value rather than an error.
func (s *Store) Account(id uuid.UUID) (ledger.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}

	return ledger.Account{}, false
}

func (s *Store) AddAccount(a ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = append(s.accounts, a)
}

func (s *Store) Transactions() []ledger.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Transaction, len(s.transactions))
	copy(out, s.transactions)

	return out
}

func (s *Store) AddTransaction(tx ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions = append(s.transactions, tx)
}

func (s *Store) Entries() []ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

// EntriesForAccount returns the account's entries in append order.
func (s *Store) EntriesForAccount(id uuid.UUID) []ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Entry

	for _, e := range s.entries {
		if e.AccountID == id {
			out = append(out, e)
		}
	}

	return out
}

// AddEntries appends a batch of entries as one unit. A transfer's debit and
// credit legs always arrive together through this path.
func (s *Store) AddEntries(entries ...ledger.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entries...)
}

// Snapshot captures the current state of all three record sets.
func (s *Store) Snapshot() ledger.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		accounts:     make([]ledger.Account, len(s.accounts)),
		transactions: make([]ledger.Transaction, len(s.transactions)),
		entries:      make([]ledger.Entry, len(s.entries)),
	}
	copy(snap.accounts, s.accounts)
	copy(snap.transactions, s.transactions)
	copy(snap.entries, s.entries)

	return snap
}

// Restore rewinds the store to a previously captured snapshot. Records are
// immutable once written, so copying the slices restores identical state.
func (s *Store) Restore(token ledger.Snapshot) {
	snap, ok := token.(snapshot)
	if !ok {
		panic("store: snapshot was not produced by this store type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make([]ledger.Account, len(snap.accounts))
	s.transactions = make([]ledger.Transaction, len(snap.transactions))
	s.entries = make([]ledger.Entry, len(snap.entries))
	copy(s.accounts, snap.accounts)
	copy(s.transactions, snap.transactions)
	copy(s.entries, snap.entries)
}
