package ledger

import "github.com/google/uuid"

// Store is the persistence boundary of the engine: three append-only record
// sets with whole-state capture for the coordinator's rollback path. No
// update or delete methods exist, which is how the append-only invariant is
// enforced.
type Store interface {
	Accounts() []Account
	Account(id uuid.UUID) (Account, bool)
	AddAccount(a Account)

	Transactions() []Transaction
	AddTransaction(tx Transaction)

	Entries() []Entry
	EntriesForAccount(id uuid.UUID) []Entry
	AddEntries(entries ...Entry)

	Snapshot() Snapshot
	Restore(snap Snapshot)
}

// Snapshot is an opaque capture of a store's full state. Only the store that
// produced a snapshot can restore it.
type Snapshot any
