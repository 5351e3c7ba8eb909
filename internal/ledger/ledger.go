package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AccountKind represents the product type of an account.
type AccountKind string

const (
	KindChecking AccountKind = "CHECKING"
	KindSavings  AccountKind = "SAVINGS"
)

// AccountStatus represents the lifecycle state of an account.
// FROZEN exists in the data model but no freeze operation is exposed yet;
// mutating operations reject any account that is not ACTIVE.
type AccountStatus string

const (
	StatusActive AccountStatus = "ACTIVE"
	StatusFrozen AccountStatus = "FROZEN"
)

// TransactionKind represents the kind of financial movement.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
	KindTransfer   TransactionKind = "TRANSFER"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Only COMPLETED transactions are ever written to the store: a failed
// operation writes nothing, so PENDING and FAILED are never durable.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// EntryType represents the direction of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Account is a customer account. Accounts are created once and never
// deleted; balance is not a field here, it is always derived from entries.
type Account struct {
	ID        uuid.UUID
	Owner     string
	Kind      AccountKind
	Currency  string // ISO 4217 code
	Status    AccountStatus
	CreatedAt time.Time
}

// Transaction is one completed financial movement. DEPOSIT carries only a
// destination, WITHDRAWAL only a source, TRANSFER both. Amount is always
// positive and in minor currency units.
type Transaction struct {
	ID                   uuid.UUID
	Kind                 TransactionKind
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	Amount               int64
	Currency             string
	Status               TransactionStatus
	Description          string
	CreatedAt            time.Time
}

// Entry is one signed movement of value against a single account.
// Amount is negative for DEBIT and positive for CREDIT. Entries are
// append-only: no code path anywhere mutates or removes one.
type Entry struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Type          EntryType
	Amount        int64
	Timestamp     time.Time
}

// AccountWithBalance joins an account with its derived balance.
type AccountWithBalance struct {
	Account
	Balance int64
}
