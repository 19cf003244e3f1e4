package onramp

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

// Handler exposes deposit initiation over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs an on-ramp handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	Amount   int64  `json:"amount"`
	Provider string `json:"provider"`
}

type initiateResponse struct {
	Token       string `json:"token"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Provider    string `json:"provider"`
	RedirectURL string `json:"redirect_url"`
	Locked      int64  `json:"locked"`
}

// Initiate creates a pending deposit for the authenticated user.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	uid, ok := c.Locals("user_id").(int64)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Initiate(c.UserContext(), InitiateInput{UserID: uid, Amount: req.Amount, Provider: req.Provider})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrUnknownProvider):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrBalanceNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, "could not initiate deposit")
		}
	}

	return c.Status(http.StatusCreated).JSON(initiateResponse{
		Token:       res.Transaction.Token,
		Status:      res.Transaction.Status.String(),
		Amount:      res.Transaction.Amount,
		Provider:    res.Transaction.Provider,
		RedirectURL: res.RedirectURL,
		Locked:      res.Balance.Locked,
	})
}
