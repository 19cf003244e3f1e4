package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/ledger"
)

const defaultHistoryLimit = 20

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type overviewResponse struct {
	UserID         int64  `json:"user_id"`
	Available      int64  `json:"available"`
	Locked         int64  `json:"locked"`
	AvailableMajor string `json:"available_display"`
	LockedMajor    string `json:"locked_display"`
	TotalMajor     string `json:"total_display"`
	AsOf           string `json:"as_of"`
}

type entryResponse struct {
	Kind         string `json:"kind"`
	Direction    string `json:"direction"`
	Amount       int64  `json:"amount"`
	AmountMajor  string `json:"amount_display"`
	Status       string `json:"status"`
	Provider     string `json:"provider,omitempty"`
	Counterparty int64  `json:"counterparty_user_id,omitempty"`
	Reference    string `json:"reference,omitempty"`
	At           string `json:"at"`
}

// Balance returns the authenticated user's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, ok := c.Locals("user_id").(int64)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	o, err := h.service.Overview(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ledger.ErrBalanceNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "could not load balance")
	}
	return c.Status(http.StatusOK).JSON(overviewResponse{
		UserID:         o.UserID,
		Available:      o.Available,
		Locked:         o.Locked,
		AvailableMajor: o.AvailableMajor,
		LockedMajor:    o.LockedMajor,
		TotalMajor:     o.TotalMajor,
		AsOf:           o.AsOf.Format(http.TimeFormat),
	})
}

// History returns the authenticated user's deposits and transfers.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, ok := c.Locals("user_id").(int64)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	entries, err := h.service.History(c.UserContext(), uid, c.QueryInt("limit", defaultHistoryLimit))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load history")
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			Kind:         e.Kind,
			Direction:    e.Direction,
			Amount:       e.Amount,
			AmountMajor:  e.AmountMajor,
			Status:       e.Status,
			Provider:     e.Provider,
			Counterparty: e.Counterparty,
			Reference:    e.Reference,
			At:           e.At.Format(http.TimeFormat),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}
