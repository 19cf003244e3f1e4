package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken indicates no on-ramp transaction exists for the supplied token.
	ErrInvalidToken = errors.New("transaction not found")

	// ErrUserMismatch indicates a settlement callback named a user other than the deposit owner.
	ErrUserMismatch = errors.New("user id mismatch")

	// ErrAmountMismatch indicates a settlement callback reported an amount other than
	// the one recorded at initiation.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrAlreadySettled indicates the on-ramp transaction already reached a terminal state.
	ErrAlreadySettled = errors.New("transaction already settled")

	// ErrInsufficientBalance occurs when the sender lacks available funds for a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBalanceNotFound indicates the user has no balance row.
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrDuplicateToken indicates an on-ramp token collided with an existing row.
	ErrDuplicateToken = errors.New("duplicate on-ramp token")

	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer indicates sender and receiver are the same user.
	ErrSelfTransfer = errors.New("cannot transfer to self")

	// ErrNegativeBalance guards the amount >= 0 and locked >= 0 invariant at write time.
	ErrNegativeBalance = errors.New("balance would become negative")
)

// AlreadySettledError carries the terminal status found during settlement.
type AlreadySettledError struct {
	Status Status
}

func (e *AlreadySettledError) Error() string {
	return fmt.Sprintf("transaction already %s", e.Status)
}

// Unwrap lets errors.Is match ErrAlreadySettled.
func (e *AlreadySettledError) Unwrap() error { return ErrAlreadySettled }

// Tx exposes the writes permitted inside a single atomic unit. Values are only valid
// until the enclosing Atomically call returns.
type Tx interface {
	// LockBalances row-locks the balances of the given users in ascending id order.
	LockBalances(ctx context.Context, userIDs ...int64) (map[int64]Balance, error)
	SaveBalance(ctx context.Context, balance Balance) error
	// LockOnRamp row-locks the on-ramp transaction identified by token.
	LockOnRamp(ctx context.Context, token string) (OnRampTransaction, error)
	InsertOnRamp(ctx context.Context, txn OnRampTransaction) (OnRampTransaction, error)
	SetOnRampStatus(ctx context.Context, token string, status Status) error
	InsertTransfer(ctx context.Context, transfer P2PTransfer) (P2PTransfer, error)
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
// Reads never mutate; every mutation goes through Atomically.
type Store interface {
	EnsureBalance(ctx context.Context, userID int64) error
	Balance(ctx context.Context, userID int64) (Balance, error)
	OnRamp(ctx context.Context, token string) (OnRampTransaction, error)
	OnRampsByUser(ctx context.Context, userID int64, limit int) ([]OnRampTransaction, error)
	TransfersByUser(ctx context.Context, userID int64, limit int) ([]P2PTransfer, error)
	StaleOnRamps(ctx context.Context, before time.Time, limit int) ([]OnRampTransaction, error)

	// Atomically runs fn as one all-or-nothing unit. Any error returned by fn discards
	// every write made through tx.
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
