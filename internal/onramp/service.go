package onramp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/metrics"
	"github.com/walletcore/p2p-wallet/internal/notification"
)

// Verifier inspects the locked deposit row before any mutation. Returning an error
// aborts the settlement with no side effects.
type Verifier func(txn ledger.OnRampTransaction) error

// Service runs deposit initiation and the settlement state machine against the ledger.
type Service struct {
	store     ledger.Store
	providers Providers
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds an on-ramp service. notifier and m may be nil.
func NewService(store ledger.Store, providers Providers, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		providers: providers,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// InitiateInput captures a user's request to top up from a bank.
type InitiateInput struct {
	UserID   int64
	Amount   int64
	Provider string
}

// InitiateResult is the created deposit and where to send the user next.
type InitiateResult struct {
	Transaction ledger.OnRampTransaction
	Balance     ledger.Balance
	RedirectURL string
}

// SettlementResult is the deposit and balance as committed by a settlement.
type SettlementResult struct {
	Transaction ledger.OnRampTransaction
	Balance     ledger.Balance
}

// Initiate creates a Processing deposit with a fresh token and reserves its amount
// in the user's locked balance, in one atomic unit.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (InitiateResult, error) {
	if input.Amount <= 0 {
		return InitiateResult{}, ledger.ErrInvalidAmount
	}
	provider, err := s.providers.Lookup(input.Provider)
	if err != nil {
		return InitiateResult{}, err
	}

	var result InitiateResult
	err = s.store.Atomically(ctx, func(tx ledger.Tx) error {
		txn, err := tx.InsertOnRamp(ctx, ledger.OnRampTransaction{
			Token:     uuid.NewString(),
			UserID:    input.UserID,
			Amount:    input.Amount,
			Status:    ledger.StatusProcessing,
			Provider:  provider.Name,
			StartTime: s.now(),
		})
		if err != nil {
			return err
		}

		balances, err := tx.LockBalances(ctx, input.UserID)
		if err != nil {
			return err
		}
		next, err := reserve(balances[input.UserID], input.Amount)
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, next); err != nil {
			return err
		}

		result = InitiateResult{Transaction: txn, Balance: next, RedirectURL: provider.RedirectURL}
		return nil
	})
	if err != nil {
		return InitiateResult{}, err
	}

	s.metrics.DepositInitiated(provider.Name)
	s.logger.Info("onramp.initiated",
		slog.String("token", result.Transaction.Token),
		slog.Int64("user_id", input.UserID),
		slog.Int64("amount", input.Amount),
		slog.String("provider", provider.Name),
	)
	return result, nil
}

// Capture settles a verified deposit as Success: the reserved amount becomes available.
func (s *Service) Capture(ctx context.Context, token string, verify Verifier) (SettlementResult, error) {
	return s.settle(ctx, token, verify, ledger.StatusSuccess)
}

// Release settles a deposit as Failure: the reservation is dropped without crediting
// available funds.
func (s *Service) Release(ctx context.Context, token string, verify Verifier) (SettlementResult, error) {
	return s.settle(ctx, token, verify, ledger.StatusFailure)
}

// settle holds the deposit row lock from lookup to status flip, so two concurrent
// deliveries of one token cannot both observe Processing.
func (s *Service) settle(ctx context.Context, token string, verify Verifier, to ledger.Status) (SettlementResult, error) {
	var result SettlementResult
	err := s.store.Atomically(ctx, func(tx ledger.Tx) error {
		txn, err := tx.LockOnRamp(ctx, token)
		if err != nil {
			return err
		}
		if verify != nil {
			if err := verify(txn); err != nil {
				return err
			}
		}
		if err := transition(txn.Status, to); err != nil {
			return err
		}

		balances, err := tx.LockBalances(ctx, txn.UserID)
		if err != nil {
			return err
		}
		next, err := applySettlement(balances[txn.UserID], txn.Amount, to)
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, next); err != nil {
			return err
		}
		if err := tx.SetOnRampStatus(ctx, txn.Token, to); err != nil {
			return err
		}

		txn.Status = to
		result = SettlementResult{Transaction: txn, Balance: next}
		return nil
	})

	outcome := Outcome(err, to)
	s.metrics.Settlement(outcome)
	if err != nil {
		level := slog.LevelInfo
		if outcome == OutcomeError {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "onramp.settlement rejected",
			slog.String("token", token),
			slog.String("target", to.String()),
			slog.String("reason", outcome),
			slog.Any("error", err),
		)
		return SettlementResult{}, err
	}

	s.logger.Info("onramp.settled",
		slog.String("token", token),
		slog.Int64("user_id", result.Transaction.UserID),
		slog.Int64("amount", result.Transaction.Amount),
		slog.String("status", to.String()),
	)
	s.notify(ctx, result.Transaction)
	return result, nil
}

func (s *Service) notify(ctx context.Context, txn ledger.OnRampTransaction) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{UserID: txn.UserID}
	switch txn.Status {
	case ledger.StatusSuccess:
		msg.Kind = notification.KindDepositCaptured
		msg.Body = fmt.Sprintf("Deposit of %d via %s is now available", txn.Amount, txn.Provider)
	case ledger.StatusFailure:
		msg.Kind = notification.KindDepositReleased
		msg.Body = fmt.Sprintf("Deposit of %d via %s failed and was released", txn.Amount, txn.Provider)
	default:
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("onramp.notify failed", slog.String("token", txn.Token), slog.Any("error", err))
	}
}

// Settlement outcomes reported to metrics and logs.
const (
	OutcomeCaptured       = "captured"
	OutcomeReleased       = "released"
	OutcomeInvalidToken   = "invalid_token"
	OutcomeUserMismatch   = "user_mismatch"
	OutcomeAmountMismatch = "amount_mismatch"
	OutcomeAlreadySettled = "already_settled"
	OutcomeError          = "error"
)

// Outcome classifies a settlement result.
func Outcome(err error, to ledger.Status) string {
	switch {
	case err == nil && to == ledger.StatusSuccess:
		return OutcomeCaptured
	case err == nil:
		return OutcomeReleased
	case errors.Is(err, ledger.ErrInvalidToken):
		return OutcomeInvalidToken
	case errors.Is(err, ledger.ErrUserMismatch):
		return OutcomeUserMismatch
	case errors.Is(err, ledger.ErrAmountMismatch):
		return OutcomeAmountMismatch
	case errors.Is(err, ledger.ErrAlreadySettled):
		return OutcomeAlreadySettled
	default:
		return OutcomeError
	}
}
