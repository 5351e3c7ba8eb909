package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/rvaz/eqledger/internal/ledger"
)

type accountResponse struct {
	ID        uuid.UUID            `json:"id"`
	Owner     string               `json:"owner"`
	Kind      ledger.AccountKind   `json:"kind"`
	Currency  string               `json:"currency"`
	Status    ledger.AccountStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	Balance   *int64               `json:"balance,omitempty"`
}

type transactionResponse struct {
	ID                   uuid.UUID                `json:"id"`
	Kind                 ledger.TransactionKind   `json:"kind"`
	SourceAccountID      *uuid.UUID               `json:"source_account_id,omitempty"`
	DestinationAccountID *uuid.UUID               `json:"destination_account_id,omitempty"`
	Amount               int64                    `json:"amount"`
	Currency             string                   `json:"currency"`
	Status               ledger.TransactionStatus `json:"status"`
	Description          string                   `json:"description"`
	CreatedAt            time.Time                `json:"created_at"`
}

type entryResponse struct {
	ID            uuid.UUID        `json:"id"`
	AccountID     uuid.UUID        `json:"account_id"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	Type          ledger.EntryType `json:"type"`
	Amount        int64            `json:"amount"`
	Timestamp     time.Time        `json:"timestamp"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Owner:     a.Owner,
		Kind:      a.Kind,
		Currency:  a.Currency,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}

func toAccountWithBalanceResponse(a ledger.AccountWithBalance) accountResponse {
	resp := toAccountResponse(a.Account)
	resp.Balance = &a.Balance

	return resp
}

func toAccountResponseList(accounts []ledger.Account) []accountResponse {
	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toAccountResponse(a)
	}

	return resp
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   tx.ID,
		Kind:                 tx.Kind,
		SourceAccountID:      tx.SourceAccountID,
		DestinationAccountID: tx.DestinationAccountID,
		Amount:               tx.Amount,
		Currency:             tx.Currency,
		Status:               tx.Status,
		Description:          tx.Description,
		CreatedAt:            tx.CreatedAt,
	}
}

func toTransactionResponseList(txs []ledger.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toTransactionResponse(tx)
	}

	return resp
}

func toEntryResponseList(entries []ledger.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = entryResponse{
			ID:            e.ID,
			AccountID:     e.AccountID,
			TransactionID: e.TransactionID,
			Type:          e.Type,
			Amount:        e.Amount,
			Timestamp:     e.Timestamp,
		}
	}

	return resp
}
