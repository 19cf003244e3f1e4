package notification

import (
	"context"
	"log/slog"
)

const (
	// KindP2PReceived tells a receiver that funds arrived from another user.
	KindP2PReceived = "p2p_received"
	// KindDepositCaptured tells a user their bank deposit became spendable.
	KindDepositCaptured = "deposit_captured"
	// KindDepositReleased tells a user a failed deposit released its reservation.
	KindDepositReleased = "deposit_released"
)

// Message describes a notification payload.
type Message struct {
	Kind   string
	UserID int64
	Body   string
}

// Notifier delivers notifications to downstream systems. Delivery happens after the
// ledger commit and its failure never affects the ledger outcome.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "user_id", message.UserID, "body", message.Body)
	return nil
}
