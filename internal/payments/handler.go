package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/identity"
	"github.com/walletcore/p2p-wallet/internal/ledger"
)

// RecipientDirectory resolves transfer recipients by phone number.
type RecipientDirectory interface {
	FindByPhone(ctx context.Context, phone string) (identity.User, error)
}

// Handler exposes payment endpoints.
type Handler struct {
	service   *Service
	directory RecipientDirectory
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, directory RecipientDirectory) *Handler {
	return &Handler{service: service, directory: directory}
}

type transferRequest struct {
	ToNumber string `json:"to_number"`
	ToUserID int64  `json:"to_user_id"`
	Amount   int64  `json:"amount"`
}

// P2P sends funds from the authenticated user to another user.
func (h *Handler) P2P(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, ok := c.Locals("user_id").(int64)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	toUserID := req.ToUserID
	if phone := strings.TrimSpace(req.ToNumber); phone != "" {
		user, err := h.directory.FindByPhone(c.UserContext(), phone)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "recipient not found")
		}
		toUserID = user.ID
	}
	if toUserID == 0 {
		return fiber.NewError(http.StatusBadRequest, "recipient is required")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromUserID: uid,
		ToUserID:   toUserID,
		Amount:     req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSelfTransfer):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrBalanceNotFound):
			return fiber.NewError(http.StatusNotFound, "recipient not found")
		default:
			return fiber.NewError(http.StatusInternalServerError, "transfer failed")
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transfer_id":  res.Transfer.ID,
		"to_user_id":   res.Transfer.ToUserID,
		"amount":       res.Transfer.Amount,
		"from_balance": res.FromBalance.Amount,
		"completed_at": res.Transfer.Timestamp,
	})
}
