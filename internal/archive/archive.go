// Package archive persists committed ledger records to Postgres. It is a
// write-behind consumer of the engine: rows are only ever inserted after an
// operation has committed in memory, and the tables are append-only (no
// UPDATE or DELETE is issued anywhere in this package).
package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rvaz/eqledger/internal/ledger"
)

type Archive struct {
	db *sql.DB
}

func New(db *sql.DB) *Archive {
	return &Archive{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	owner TEXT NOT NULL,
	kind TEXT NOT NULL,
	currency CHAR(3) NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	source_account_id UUID REFERENCES accounts(id),
	destination_account_id UUID REFERENCES accounts(id),
	amount BIGINT NOT NULL CHECK (amount > 0),
	currency CHAR(3) NOT NULL,
	status TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	seq BIGSERIAL,
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id),
	transaction_id UUID NOT NULL REFERENCES transactions(id),
	entry_type TEXT NOT NULL,
	amount BIGINT NOT NULL CHECK (amount <> 0),
	ts TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS entries_account_idx ON entries(account_id);
`

// Migrate applies the archive schema. Safe to run on every startup.
func (a *Archive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying archive schema: %w", err)
	}

	return nil
}

func (a *Archive) SaveAccount(ctx context.Context, acc ledger.Account) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO accounts (id, owner, kind, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		acc.ID, acc.Owner, acc.Kind, acc.Currency, acc.Status, acc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archiving account: %w", err)
	}

	return nil
}

func (a *Archive) SaveTransaction(ctx context.Context, tx ledger.Transaction) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO transactions (id, kind, source_account_id, destination_account_id, amount, currency, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.Kind, tx.SourceAccountID, tx.DestinationAccountID,
		tx.Amount, tx.Currency, tx.Status, tx.Description, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archiving transaction: %w", err)
	}

	return nil
}

// SaveEntries inserts a transaction's entry batch in one database
// transaction, so the archive never holds half a transfer.
func (a *Archive) SaveEntries(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dbTx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning entry batch: %w", err)
	}
	defer dbTx.Rollback()

	for _, e := range entries {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO entries (id, account_id, transaction_id, entry_type, amount, ts)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.AccountID, e.TransactionID, e.Type, e.Amount, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("archiving entry: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing entry batch: %w", err)
	}

	return nil
}

// Load reads the full archive in insertion order so the in-memory store can
// be reseeded at startup.
func (a *Archive) Load(ctx context.Context) ([]ledger.Account, []ledger.Transaction, []ledger.Entry, error) {
	accounts, err := a.loadAccounts(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	transactions, err := a.loadTransactions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	entries, err := a.loadEntries(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	return accounts, transactions, entries, nil
}

func (a *Archive) loadAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, owner, kind, currency, status, created_at
		FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Account

	for rows.Next() {
		var (
			acc          ledger.Account
			kind, status string
		)

		if err := rows.Scan(&acc.ID, &acc.Owner, &kind, &acc.Currency, &status, &acc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		acc.Kind = ledger.AccountKind(kind)
		acc.Status = ledger.AccountStatus(status)
		out = append(out, acc)
	}

	return out, rows.Err()
}

func (a *Archive) loadTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, kind, source_account_id, destination_account_id, amount, currency, status, description, created_at
		FROM transactions ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction

	for rows.Next() {
		var (
			tx           ledger.Transaction
			kind, status string
			source, dest *uuid.UUID
		)

		if err := rows.Scan(&tx.ID, &kind, &source, &dest, &tx.Amount, &tx.Currency, &status, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		tx.Kind = ledger.TransactionKind(kind)
		tx.Status = ledger.TransactionStatus(status)
		tx.SourceAccountID = source
		tx.DestinationAccountID = dest
		out = append(out, tx)
	}

	return out, rows.Err()
}

func (a *Archive) loadEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, account_id, transaction_id, entry_type, amount, ts
		FROM entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry

	for rows.Next() {
		var (
			e         ledger.Entry
			entryType string
		)

		if err := rows.Scan(&e.ID, &e.AccountID, &e.TransactionID, &entryType, &e.Amount, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		e.Type = ledger.EntryType(entryType)
		out = append(out, e)
	}

	return out, rows.Err()
}
