package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInactive   = errors.New("account is not active")
	ErrSelfTransfer      = errors.New("source and destination accounts are the same")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLedgerCorruption signals a failed defensive invariant check.
	// It should be unreachable; seeing it means a programming defect.
	ErrLedgerCorruption = errors.New("ledger corruption detected")
)

// InsufficientFundsError carries the attempted amount and the balance that
// was actually available when the overdraft check ran.
type InsufficientFundsError struct {
	Requested int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d", e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientFunds) work for wrapped values.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
