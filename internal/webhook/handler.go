package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/onramp"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
	SignatureHeader = "X-Webhook-Signature"

	// StatusProcessingError is returned for unexpected failures; banks treat it as retryable.
	StatusProcessingError = http.StatusLengthRequired
)

// Handler exposes the bank callbacks.
type Handler struct {
	gate   *Gate
	secret []byte
	logger *slog.Logger
}

// NewHandler constructs a webhook handler. An empty secret disables signature checks.
func NewHandler(gate *Gate, secret string, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, secret: []byte(secret), logger: logger}
}

// Capture confirms a deposit and makes its funds available.
func (h *Handler) Capture(c *fiber.Ctx) error {
	return h.handle(c, "Captured", h.gate.Capture)
}

// Release marks a deposit failed and drops its reservation.
func (h *Handler) Release(c *fiber.Ctx) error {
	return h.handle(c, "Released", h.gate.Release)
}

func (h *Handler) handle(c *fiber.Ctx, okMessage string, settle func(context.Context, Confirmation) (onramp.SettlementResult, error)) error {
	body := c.Body()
	if err := verifySignature(body, c.Get(SignatureHeader), h.secret); err != nil {
		return reply(c, http.StatusUnauthorized, "Invalid signature")
	}
	conf, err := decodeConfirmation(body)
	if err != nil {
		return reply(c, http.StatusBadRequest, "Invalid payload")
	}

	if _, err := settle(c.UserContext(), conf); err != nil {
		status, message := describe(err)
		if status == StatusProcessingError {
			h.logger.Error("webhook processing failed",
				slog.String("token", conf.Token),
				slog.Any("error", err),
			)
		}
		return reply(c, status, message)
	}
	return reply(c, http.StatusOK, okMessage)
}

// describe maps a settlement error to the status and message returned to the bank.
func describe(err error) (int, string) {
	var settled *ledger.AlreadySettledError
	switch {
	case errors.Is(err, ledger.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid token: Transaction not found"
	case errors.Is(err, ledger.ErrUserMismatch):
		return http.StatusBadRequest, "Invalid transaction: User ID mismatch"
	case errors.Is(err, ledger.ErrAmountMismatch):
		return http.StatusBadRequest, "Invalid transaction: Amount mismatch"
	case errors.As(err, &settled):
		return http.StatusBadRequest, fmt.Sprintf("Invalid transaction: Transaction already %s", settled.Status)
	default:
		return StatusProcessingError, "Error while processing webhook"
	}
}

func reply(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}
