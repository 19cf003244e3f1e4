package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/metrics"
	"github.com/walletcore/p2p-wallet/internal/notification"
)

// Service moves available funds between users.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a payment service. notifier and m may be nil.
func NewService(store ledger.Store, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// TransferInput captures the data needed to move funds between users.
type TransferInput struct {
	FromUserID int64
	ToUserID   int64
	Amount     int64
}

// TransferResult describes the committed transfer and both resulting balances.
type TransferResult struct {
	Transfer    ledger.P2PTransfer
	FromBalance ledger.Balance
	ToBalance   ledger.Balance
}

// Transfer debits the sender, credits the receiver and records the transfer as one
// atomic unit. Both balance rows stay locked until commit.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	res, err := s.transfer(ctx, input)
	outcome := transferOutcome(err)
	s.metrics.Transfer(outcome)
	if err != nil {
		level := slog.LevelInfo
		if outcome == "error" {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "payments.p2p rejected",
			slog.Int64("from_user_id", input.FromUserID),
			slog.Int64("to_user_id", input.ToUserID),
			slog.Int64("amount", input.Amount),
			slog.String("reason", outcome),
			slog.Any("error", err),
		)
		return TransferResult{}, err
	}

	s.logger.Info("payments.p2p completed",
		slog.Int64("transfer_id", res.Transfer.ID),
		slog.Int64("from_user_id", input.FromUserID),
		slog.Int64("to_user_id", input.ToUserID),
		slog.Int64("amount", input.Amount),
	)
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:   notification.KindP2PReceived,
			UserID: input.ToUserID,
			Body:   fmt.Sprintf("You received %d from user %d", input.Amount, input.FromUserID),
		}); err != nil {
			s.logger.Warn("payments.notify failed", slog.Any("error", err))
		}
	}
	return res, nil
}

func (s *Service) transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.Amount <= 0 {
		return TransferResult{}, ledger.ErrInvalidAmount
	}
	if input.FromUserID == input.ToUserID {
		return TransferResult{}, ledger.ErrSelfTransfer
	}

	var result TransferResult
	err := s.store.Atomically(ctx, func(tx ledger.Tx) error {
		balances, err := tx.LockBalances(ctx, input.FromUserID, input.ToUserID)
		if err != nil {
			return err
		}
		from, to := balances[input.FromUserID], balances[input.ToUserID]
		if from.Amount < input.Amount {
			return ledger.ErrInsufficientBalance
		}
		if to.Amount > math.MaxInt64-input.Amount {
			return fmt.Errorf("receiver balance overflow")
		}
		from.Amount -= input.Amount
		to.Amount += input.Amount

		if err := tx.SaveBalance(ctx, from); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, to); err != nil {
			return err
		}
		transfer, err := tx.InsertTransfer(ctx, ledger.P2PTransfer{
			FromUserID: input.FromUserID,
			ToUserID:   input.ToUserID,
			Amount:     input.Amount,
			Timestamp:  s.now(),
		})
		if err != nil {
			return err
		}

		result = TransferResult{Transfer: transfer, FromBalance: from, ToBalance: to}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

func transferOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, ledger.ErrBalanceNotFound):
		return "unknown_user"
	default:
		return "error"
	}
}
