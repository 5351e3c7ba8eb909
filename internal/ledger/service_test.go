package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rvaz/eqledger/internal/ledger"
	"github.com/rvaz/eqledger/internal/ledger/store"
)

func newTestService(t *testing.T) (*ledger.Service, *store.Store) {
	t.Helper()

	st := store.New()

	return ledger.NewService(st, nil), st
}

func mustCreateAccount(t *testing.T, svc *ledger.Service) ledger.Account {
	t.Helper()

	account, err := svc.CreateAccount(context.Background(), "alice", ledger.KindChecking, "EUR")
	require.NoError(t, err)

	return account
}

func TestService_CreateAccount(t *testing.T) {
	type args struct {
		owner    string
		kind     ledger.AccountKind
		currency string
	}

	type testCase struct {
		name         string
		args         args
		wantCurrency string
		wantErr      bool
	}

	tests := []testCase{
		{
			name:         "Success",
			args:         args{owner: "alice", kind: ledger.KindChecking, currency: "EUR"},
			wantCurrency: "EUR",
		},
		{
			name:         "CurrencyNormalized",
			args:         args{owner: "bob", kind: ledger.KindSavings, currency: " usd "},
			wantCurrency: "USD",
		},
		{
			name:         "CurrencyDefaulted",
			args:         args{owner: "carol", kind: ledger.KindChecking, currency: ""},
			wantCurrency: "USD",
		},
		{
			name:    "EmptyOwner",
			args:    args{owner: "  ", kind: ledger.KindChecking, currency: "EUR"},
			wantErr: true,
		},
		{
			name:    "UnknownKind",
			args:    args{owner: "dave", kind: "MONEY_MARKET", currency: "EUR"},
			wantErr: true,
		},
		{
			name:    "BadCurrency",
			args:    args{owner: "erin", kind: ledger.KindChecking, currency: "EURO"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t)

			got, err := svc.CreateAccount(context.Background(), tt.args.owner, tt.args.kind, tt.args.currency)

			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrValidation)
				assert.Empty(t, st.Accounts())

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.Equal(t, ledger.StatusActive, got.Status)
			assert.Equal(t, tt.wantCurrency, got.Currency)

			stored, ok := st.Account(got.ID)
			require.True(t, ok)
			assert.Equal(t, got, stored)
		})
	}
}

func TestService_Deposit(t *testing.T) {
	svc, st := newTestService(t)
	account := mustCreateAccount(t, svc)

	tx, err := svc.Deposit(context.Background(), account.ID, 100000, "initial funding")
	require.NoError(t, err)

	assert.Equal(t, ledger.KindDeposit, tx.Kind)
	assert.Equal(t, ledger.StatusCompleted, tx.Status)
	require.NotNil(t, tx.DestinationAccountID)
	assert.Equal(t, account.ID, *tx.DestinationAccountID)
	assert.Nil(t, tx.SourceAccountID)
	assert.Equal(t, "EUR", tx.Currency)

	assert.Equal(t, int64(100000), ledger.BalanceOf(st, account.ID))

	entries := st.EntriesForAccount(account.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.EntryCredit, entries[0].Type)
	assert.Equal(t, int64(100000), entries[0].Amount)
	assert.Equal(t, tx.ID, entries[0].TransactionID)
}

func TestService_Deposit_Errors(t *testing.T) {
	svc, st := newTestService(t)
	account := mustCreateAccount(t, svc)

	frozen := ledger.Account{ID: uuid.New(), Owner: "frosty", Kind: ledger.KindSavings, Currency: "EUR", Status: ledger.StatusFrozen}
	st.AddAccount(frozen)

	type testCase struct {
		name      string
		accountID uuid.UUID
		amount    int64
		wantErr   error
	}

	tests := []testCase{
		{name: "ZeroAmount", accountID: account.ID, amount: 0, wantErr: ledger.ErrInvalidAmount},
		{name: "NegativeAmount", accountID: account.ID, amount: -5, wantErr: ledger.ErrInvalidAmount},
		{name: "UnknownAccount", accountID: uuid.New(), amount: 100, wantErr: ledger.ErrAccountNotFound},
		{name: "FrozenAccount", accountID: frozen.ID, amount: 100, wantErr: ledger.ErrAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Deposit(context.Background(), tt.accountID, tt.amount, "x")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// No failed attempt left any record behind.
	assert.Empty(t, st.Transactions())
	assert.Empty(t, st.Entries())
}

func TestService_Withdraw(t *testing.T) {
	svc, st := newTestService(t)
	account := mustCreateAccount(t, svc)

	_, err := svc.Deposit(context.Background(), account.ID, 100000, "funding")
	require.NoError(t, err)

	tx, err := svc.Withdraw(context.Background(), account.ID, 50000, "rent")
	require.NoError(t, err)

	assert.Equal(t, ledger.KindWithdrawal, tx.Kind)
	assert.Equal(t, ledger.StatusCompleted, tx.Status)
	require.NotNil(t, tx.SourceAccountID)
	assert.Equal(t, account.ID, *tx.SourceAccountID)
	assert.Nil(t, tx.DestinationAccountID)

	assert.Equal(t, int64(50000), ledger.BalanceOf(st, account.ID))

	entries := st.EntriesForAccount(account.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.EntryDebit, entries[1].Type)
	assert.Equal(t, int64(-50000), entries[1].Amount)
}

func TestService_Withdraw_InsufficientFunds(t *testing.T) {
	svc, st := newTestService(t)
	account := mustCreateAccount(t, svc)

	_, err := svc.Deposit(context.Background(), account.ID, 100000, "funding")
	require.NoError(t, err)

	_, err = svc.Withdraw(context.Background(), account.ID, 150000, "too much")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var fundsErr *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, int64(150000), fundsErr.Requested)
	assert.Equal(t, int64(100000), fundsErr.Available)

	// Balance untouched, nothing written.
	assert.Equal(t, int64(100000), ledger.BalanceOf(st, account.ID))
	assert.Len(t, st.Transactions(), 1)
	assert.Len(t, st.Entries(), 1)
}

func TestService_Transfer(t *testing.T) {
	svc, st := newTestService(t)

	a := mustCreateAccount(t, svc)

	b, err := svc.CreateAccount(context.Background(), "bob", ledger.KindSavings, "EUR")
	require.NoError(t, err)

	_, err = svc.Deposit(context.Background(), a.ID, 100000, "funding")
	require.NoError(t, err)

	tx, err := svc.Transfer(context.Background(), a.ID, b.ID, 25000, "shared rent")
	require.NoError(t, err)

	assert.Equal(t, ledger.KindTransfer, tx.Kind)
	assert.Equal(t, ledger.StatusCompleted, tx.Status)

	assert.Equal(t, int64(75000), ledger.BalanceOf(st, a.ID))
	assert.Equal(t, int64(25000), ledger.BalanceOf(st, b.ID))

	// Conservation: the two legs of the transfer sum to exactly zero.
	var sum int64

	var legs int

	for _, e := range st.Entries() {
		if e.TransactionID == tx.ID {
			sum += e.Amount
			legs++
		}
	}

	assert.Equal(t, 2, legs)
	assert.Equal(t, int64(0), sum)

	assert.Len(t, st.Transactions(), 2) // funding deposit + transfer
}

func TestService_Transfer_Errors(t *testing.T) {
	svc, st := newTestService(t)

	a := mustCreateAccount(t, svc)

	b, err := svc.CreateAccount(context.Background(), "bob", ledger.KindSavings, "EUR")
	require.NoError(t, err)

	_, err = svc.Deposit(context.Background(), a.ID, 1000, "funding")
	require.NoError(t, err)

	type testCase struct {
		name     string
		sourceID uuid.UUID
		destID   uuid.UUID
		amount   int64
		wantErr  error
	}

	tests := []testCase{
		{name: "SelfTransfer", sourceID: a.ID, destID: a.ID, amount: 100, wantErr: ledger.ErrSelfTransfer},
		{name: "InvalidAmount", sourceID: a.ID, destID: b.ID, amount: 0, wantErr: ledger.ErrInvalidAmount},
		{name: "UnknownSource", sourceID: uuid.New(), destID: b.ID, amount: 100, wantErr: ledger.ErrAccountNotFound},
		{name: "UnknownDestination", sourceID: a.ID, destID: uuid.New(), amount: 100, wantErr: ledger.ErrAccountNotFound},
		{name: "InsufficientFunds", sourceID: a.ID, destID: b.ID, amount: 5000, wantErr: ledger.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(context.Background(), tt.sourceID, tt.destID, tt.amount, "x")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Only the funding deposit exists; no failed transfer left a record.
	assert.Len(t, st.Transactions(), 1)
	assert.Len(t, st.Entries(), 1)
	assert.Equal(t, int64(1000), ledger.BalanceOf(st, a.ID))
	assert.Equal(t, int64(0), ledger.BalanceOf(st, b.ID))
}

// flakyStore passes through to a real store but can be armed to fail the
// next entry append mid-operation.
type flakyStore struct {
	ledger.Store
	failNextEntryAppend bool
}

func (f *flakyStore) AddEntries(entries ...ledger.Entry) {
	if f.failNextEntryAppend {
		f.failNextEntryAppend = false
		panic("entry append failed")
	}

	f.Store.AddEntries(entries...)
}

func TestService_TransferEntryWriteFailure_RollsBack(t *testing.T) {
	flaky := &flakyStore{Store: store.New()}
	svc := ledger.NewService(flaky, nil)

	a, err := svc.CreateAccount(context.Background(), "alice", ledger.KindChecking, "EUR")
	require.NoError(t, err)

	b, err := svc.CreateAccount(context.Background(), "bob", ledger.KindChecking, "EUR")
	require.NoError(t, err)

	_, err = svc.Deposit(context.Background(), a.ID, 10000, "funding")
	require.NoError(t, err)

	wantTransactions := flaky.Transactions()
	wantEntries := flaky.Entries()

	// The transaction record lands, then the entry batch write blows up.
	flaky.failNextEntryAppend = true

	require.Panics(t, func() {
		_, _ = svc.Transfer(context.Background(), a.ID, b.ID, 2500, "doomed")
	})

	// No orphan transaction record, no orphan entry leg.
	assert.Equal(t, wantTransactions, flaky.Transactions())
	assert.Equal(t, wantEntries, flaky.Entries())
	assert.Equal(t, int64(10000), ledger.BalanceOf(flaky, a.ID))
	assert.Equal(t, int64(0), ledger.BalanceOf(flaky, b.ID))
}

func TestService_AccountWithBalance(t *testing.T) {
	svc, _ := newTestService(t)
	account := mustCreateAccount(t, svc)

	_, err := svc.Deposit(context.Background(), account.ID, 4200, "funding")
	require.NoError(t, err)

	got, err := svc.AccountWithBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, int64(4200), got.Balance)

	_, err = svc.AccountWithBalance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestService_EntriesForAccount_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.EntriesForAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestBalanceOf_IdempotentReads(t *testing.T) {
	svc, st := newTestService(t)
	account := mustCreateAccount(t, svc)

	_, err := svc.Deposit(context.Background(), account.ID, 777, "funding")
	require.NoError(t, err)

	first := ledger.BalanceOf(st, account.ID)
	second := ledger.BalanceOf(st, account.ID)
	assert.Equal(t, first, second)
}

func TestService_ConcurrentWithdrawals_ExactlyOneSucceeds(t *testing.T) {
	svc, st := newTestService(t)
	account := mustCreateAccount(t, svc)

	_, err := svc.Deposit(context.Background(), account.ID, 10000, "funding")
	require.NoError(t, err)

	const n = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Balance covers exactly one of these.
			_, err := svc.Withdraw(context.Background(), account.ID, 10000, "race")

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures = append(failures, err)
				return
			}

			succeeded++
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, succeeded)
	require.Len(t, failures, n-1)

	for _, err := range failures {
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	}

	balance := ledger.BalanceOf(st, account.ID)
	assert.Equal(t, int64(0), balance)
	assert.GreaterOrEqual(t, balance, int64(0), "balance may never go negative")
}

func TestService_ArchiverInvokedAfterCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	archiver := ledger.NewMockArchiver(ctrl)

	st := store.New()
	svc := ledger.NewService(st, archiver)

	archiver.EXPECT().SaveAccount(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	a, err := svc.CreateAccount(context.Background(), "alice", ledger.KindChecking, "EUR")
	require.NoError(t, err)

	b, err := svc.CreateAccount(context.Background(), "bob", ledger.KindChecking, "EUR")
	require.NoError(t, err)

	archiver.EXPECT().
		SaveTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx ledger.Transaction) error {
			assert.Equal(t, ledger.KindDeposit, tx.Kind)
			return nil
		})
	archiver.EXPECT().
		SaveEntries(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entries []ledger.Entry) error {
			assert.Len(t, entries, 1)
			return nil
		})

	_, err = svc.Deposit(context.Background(), a.ID, 5000, "funding")
	require.NoError(t, err)

	archiver.EXPECT().
		SaveTransaction(gomock.Any(), gomock.Any()).
		Return(nil)
	archiver.EXPECT().
		SaveEntries(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entries []ledger.Entry) error {
			assert.Len(t, entries, 2)
			return nil
		})

	_, err = svc.Transfer(context.Background(), a.ID, b.ID, 2000, "split")
	require.NoError(t, err)

	// A failed operation must never reach the archiver.
	_, err = svc.Withdraw(context.Background(), a.ID, 999999, "overdraft")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}
