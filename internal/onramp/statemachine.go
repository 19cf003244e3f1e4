package onramp

import (
	"fmt"
	"math"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

// transition reports whether a deposit may move from one status to another.
// Only Processing -> Success and Processing -> Failure exist.
func transition(from, to ledger.Status) error {
	switch from {
	case ledger.StatusProcessing:
		switch to {
		case ledger.StatusSuccess, ledger.StatusFailure:
			return nil
		case ledger.StatusProcessing:
			return fmt.Errorf("illegal transition %s -> %s", from, to)
		default:
			return fmt.Errorf("unknown target status %s", to)
		}
	case ledger.StatusSuccess, ledger.StatusFailure:
		return &ledger.AlreadySettledError{Status: from}
	default:
		return fmt.Errorf("unknown source status %s", from)
	}
}

// applySettlement computes the balance after a deposit of amount reaches to.
// Success moves the reservation into available funds; Failure only drops the
// reservation, so a failed deposit never increases Amount.
func applySettlement(b ledger.Balance, amount int64, to ledger.Status) (ledger.Balance, error) {
	if b.Locked < amount {
		return ledger.Balance{}, fmt.Errorf("locked %d below deposit %d: %w", b.Locked, amount, ledger.ErrNegativeBalance)
	}
	switch to {
	case ledger.StatusSuccess:
		if b.Amount > math.MaxInt64-amount {
			return ledger.Balance{}, fmt.Errorf("available balance overflow")
		}
		b.Amount += amount
		b.Locked -= amount
	case ledger.StatusFailure:
		b.Locked -= amount
	default:
		return ledger.Balance{}, fmt.Errorf("no balance effect defined for %s", to)
	}
	return b, nil
}

// reserve adds a new deposit to the locked funds.
func reserve(b ledger.Balance, amount int64) (ledger.Balance, error) {
	if b.Locked > math.MaxInt64-amount {
		return ledger.Balance{}, fmt.Errorf("locked balance overflow")
	}
	b.Locked += amount
	return b, nil
}
