// Package webhook authenticates and validates bank settlement callbacks before they
// reach the on-ramp state machine.
package webhook

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/onramp"
)

// Confirmation is a bank's claim that a deposit should settle. UserIdentifier and
// Amount are kept as received; Verify decides whether they match.
type Confirmation struct {
	Token          string
	UserIdentifier string
	Amount         string
}

// Verify runs the ordered checks token, owner, amount, status against the deposit the
// confirmation refers to and returns the first failure. It has no side effects.
func Verify(c Confirmation, txn ledger.OnRampTransaction) error {
	if c.Token == "" || txn.Token != c.Token {
		return ledger.ErrInvalidToken
	}
	if !integerEquals(c.UserIdentifier, txn.UserID) {
		return ledger.ErrUserMismatch
	}
	if !integerEquals(c.Amount, txn.Amount) {
		return ledger.ErrAmountMismatch
	}
	if txn.Status != ledger.StatusProcessing {
		return &ledger.AlreadySettledError{Status: txn.Status}
	}
	return nil
}

// integerEquals compares a bank-reported numeric string with a stored integer.
// Non-numeric and fractional values never match.
func integerEquals(reported string, want int64) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(reported))
	if err != nil || !d.IsInteger() {
		return false
	}
	return d.Equal(decimal.NewFromInt(want))
}

// Settler applies settlements under the idempotency guard.
type Settler interface {
	Capture(ctx context.Context, token string, verify onramp.Verifier) (onramp.SettlementResult, error)
	Release(ctx context.Context, token string, verify onramp.Verifier) (onramp.SettlementResult, error)
}

// Gate hands a confirmation to the state machine only when Verify passes. Verify runs
// against the row locked by the settlement, so validation and mutation share one
// atomic unit.
type Gate struct {
	settler Settler
}

// NewGate builds a gate in front of settler.
func NewGate(settler Settler) *Gate {
	return &Gate{settler: settler}
}

// Capture settles the confirmed deposit as Success.
func (g *Gate) Capture(ctx context.Context, c Confirmation) (onramp.SettlementResult, error) {
	if c.Token == "" {
		return onramp.SettlementResult{}, ledger.ErrInvalidToken
	}
	return g.settler.Capture(ctx, c.Token, verifierFor(c))
}

// Release settles the confirmed deposit as Failure.
func (g *Gate) Release(ctx context.Context, c Confirmation) (onramp.SettlementResult, error) {
	if c.Token == "" {
		return onramp.SettlementResult{}, ledger.ErrInvalidToken
	}
	return g.settler.Release(ctx, c.Token, verifierFor(c))
}

func verifierFor(c Confirmation) onramp.Verifier {
	return func(txn ledger.OnRampTransaction) error {
		return Verify(c, txn)
	}
}
