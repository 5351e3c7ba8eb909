package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=archiver_mock.go -package=ledger

// Archiver persists committed records to durable storage. It is invoked
// only after an operation has committed, so the engine's rollback semantics
// never depend on it. A nil Archiver means memory-only operation.
type Archiver interface {
	SaveAccount(ctx context.Context, a Account) error
	SaveTransaction(ctx context.Context, tx Transaction) error
	SaveEntries(ctx context.Context, entries []Entry) error
}

// Service implements the financial operations of the ledger engine. All
// mutating operations run through the coordinator's exclusive queue; reads
// go straight to the store.
type Service struct {
	store    Store
	coord    *Coordinator
	archiver Archiver
}

func NewService(st Store, archiver Archiver) *Service {
	return &Service{
		store:    st,
		coord:    NewCoordinator(st),
		archiver: archiver,
	}
}

// Store exposes the backing store for read-only callers.
func (s *Service) Store() Store {
	return s.store
}

// CreateAccount opens a new ACTIVE account. Account creation spans no
// balance invariant, so it does not enter the exclusive queue; uniqueness of
// the generated id linearizes it against concurrent creations.
func (s *Service) CreateAccount(ctx context.Context, owner string, kind AccountKind, currency string) (Account, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Account{}, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	if kind != KindChecking && kind != KindSavings {
		return Account{}, fmt.Errorf("%w: unknown account kind %q", ErrValidation, kind)
	}

	cur, err := normalizeCurrency(currency)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		ID:        uuid.New(),
		Owner:     owner,
		Kind:      kind,
		Currency:  cur,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}

	s.store.AddAccount(account)
	s.archiveAccount(ctx, account)

	return account, nil
}

// Deposit credits an account with a positive amount in minor units.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	tx, err := runExclusive(s.coord, func() (Transaction, error) {
		account, err := s.activeAccount(accountID)
		if err != nil {
			return Transaction{}, err
		}

		tx := Transaction{
			ID:                   uuid.New(),
			Kind:                 KindDeposit,
			DestinationAccountID: &accountID,
			Amount:               amount,
			Currency:             account.Currency,
			Status:               StatusCompleted,
			Description:          description,
			CreatedAt:            time.Now().UTC(),
		}

		entry := Entry{
			ID:            uuid.New(),
			AccountID:     accountID,
			TransactionID: tx.ID,
			Type:          EntryCredit,
			Amount:        amount,
			Timestamp:     tx.CreatedAt,
		}

		s.store.AddTransaction(tx)
		s.store.AddEntries(entry)

		return tx, nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.archiveTransaction(ctx, tx)

	return tx, nil
}

// Withdraw debits an account. The overdraft check runs inside the exclusive
// region, so the balance it reads cannot change before the entry is written.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount int64, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	tx, err := runExclusive(s.coord, func() (Transaction, error) {
		account, err := s.activeAccount(accountID)
		if err != nil {
			return Transaction{}, err
		}

		balance := BalanceOf(s.store, accountID)
		if balance < amount {
			return Transaction{}, &InsufficientFundsError{Requested: amount, Available: balance}
		}

		tx := Transaction{
			ID:              uuid.New(),
			Kind:            KindWithdrawal,
			SourceAccountID: &accountID,
			Amount:          amount,
			Currency:        account.Currency,
			Status:          StatusCompleted,
			Description:     description,
			CreatedAt:       time.Now().UTC(),
		}

		entry := Entry{
			ID:            uuid.New(),
			AccountID:     accountID,
			TransactionID: tx.ID,
			Type:          EntryDebit,
			Amount:        -amount,
			Timestamp:     tx.CreatedAt,
		}

		s.store.AddTransaction(tx)
		s.store.AddEntries(entry)

		return tx, nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.archiveTransaction(ctx, tx)

	return tx, nil
}

// Transfer moves value between two accounts as a balanced debit/credit pair
// appended in one batch. The pair is asserted to sum to zero before it is
// written; a non-zero sum aborts the operation and rolls back.
func (s *Service) Transfer(ctx context.Context, sourceID, destID uuid.UUID, amount int64, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}

	if sourceID == destID {
		return Transaction{}, ErrSelfTransfer
	}

	tx, err := runExclusive(s.coord, func() (Transaction, error) {
		source, err := s.activeAccount(sourceID)
		if err != nil {
			return Transaction{}, fmt.Errorf("source: %w", err)
		}

		if _, err := s.activeAccount(destID); err != nil {
			return Transaction{}, fmt.Errorf("destination: %w", err)
		}

		balance := BalanceOf(s.store, sourceID)
		if balance < amount {
			return Transaction{}, &InsufficientFundsError{Requested: amount, Available: balance}
		}

		tx := Transaction{
			ID:                   uuid.New(),
			Kind:                 KindTransfer,
			SourceAccountID:      &sourceID,
			DestinationAccountID: &destID,
			Amount:               amount,
			Currency:             source.Currency,
			Status:               StatusCompleted,
			Description:          description,
			CreatedAt:            time.Now().UTC(),
		}

		debit := Entry{
			ID:            uuid.New(),
			AccountID:     sourceID,
			TransactionID: tx.ID,
			Type:          EntryDebit,
			Amount:        -amount,
			Timestamp:     tx.CreatedAt,
		}

		credit := Entry{
			ID:            uuid.New(),
			AccountID:     destID,
			TransactionID: tx.ID,
			Type:          EntryCredit,
			Amount:        amount,
			Timestamp:     tx.CreatedAt,
		}

		if debit.Amount+credit.Amount != 0 {
			return Transaction{}, fmt.Errorf("%w: transfer legs sum to %d", ErrLedgerCorruption, debit.Amount+credit.Amount)
		}

		s.store.AddTransaction(tx)
		s.store.AddEntries(debit, credit)

		return tx, nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.archiveTransaction(ctx, tx)

	return tx, nil
}

// AccountWithBalance joins an account with its derived balance. This is a
// pure read and does not enter the exclusive queue.
func (s *Service) AccountWithBalance(ctx context.Context, accountID uuid.UUID) (AccountWithBalance, error) {
	account, ok := s.store.Account(accountID)
	if !ok {
		return AccountWithBalance{}, ErrAccountNotFound
	}

	return AccountWithBalance{
		Account: account,
		Balance: BalanceOf(s.store, accountID),
	}, nil
}

func (s *Service) ListAccounts(ctx context.Context) []Account {
	return s.store.Accounts()
}

func (s *Service) ListTransactions(ctx context.Context) []Transaction {
	return s.store.Transactions()
}

func (s *Service) EntriesForAccount(ctx context.Context, accountID uuid.UUID) ([]Entry, error) {
	if _, ok := s.store.Account(accountID); !ok {
		return nil, ErrAccountNotFound
	}

	return s.store.EntriesForAccount(accountID), nil
}

// activeAccount loads an account and checks it may take part in a mutating
// operation. Must be called inside the exclusive region.
func (s *Service) activeAccount(id uuid.UUID) (Account, error) {
	account, ok := s.store.Account(id)
	if !ok {
		return Account{}, ErrAccountNotFound
	}

	if account.Status != StatusActive {
		return Account{}, ErrAccountInactive
	}

	return account, nil
}

func normalizeCurrency(currency string) (string, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		cur = "USD"
	}

	if len(cur) != 3 {
		return "", fmt.Errorf("%w: invalid currency code %q", ErrValidation, currency)
	}

	return cur, nil
}

// archiveAccount and archiveTransaction run outside the exclusive region and
// only after commit. Archive failures are logged, not surfaced: the in-memory
// store stays canonical for the process lifetime.
func (s *Service) archiveAccount(ctx context.Context, account Account) {
	if s.archiver == nil {
		return
	}

	if err := s.archiver.SaveAccount(ctx, account); err != nil {
		slog.Error("archiving account", "account_id", account.ID, "error", err)
	}
}

func (s *Service) archiveTransaction(ctx context.Context, tx Transaction) {
	if s.archiver == nil {
		return
	}

	if err := s.archiver.SaveTransaction(ctx, tx); err != nil {
		slog.Error("archiving transaction", "transaction_id", tx.ID, "error", err)
		return
	}

	entries := s.entriesForTransaction(tx.ID)
	if err := s.archiver.SaveEntries(ctx, entries); err != nil {
		slog.Error("archiving entries", "transaction_id", tx.ID, "error", err)
	}
}

func (s *Service) entriesForTransaction(txID uuid.UUID) []Entry {
	var out []Entry

	for _, e := range s.store.Entries() {
		if e.TransactionID == txID {
			out = append(out, e)
		}
	}

	return out
}
