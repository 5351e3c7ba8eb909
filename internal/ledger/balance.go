package ledger

import "github.com/google/uuid"

// BalanceOf derives an account's balance by summing its entries. The result
// is never cached: a balance is always recomputed from the entry log, so it
// cannot drift from the records that define it.
func BalanceOf(st Store, accountID uuid.UUID) int64 {
	var sum int64

	for _, e := range st.EntriesForAccount(accountID) {
		sum += e.Amount
	}

	return sum
}
