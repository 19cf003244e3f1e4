package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/identity"
	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/wallet"
)

// RegisterWalletRoutes wires the read-only dashboard endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Balance)
	r.Get("/transactions", h.History)
}

// RegisterProfileRoute exposes the current user's profile together with their balance.
func RegisterProfileRoute(r fiber.Router, ids *identity.Service, wallets *wallet.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, ok := c.Locals("user_id").(int64)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		user, err := ids.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		overview, err := wallets.Overview(c.UserContext(), uid)
		if err != nil && !errors.Is(err, ledger.ErrBalanceNotFound) {
			return fiber.NewError(http.StatusInternalServerError, "could not load balance")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"user": fiber.Map{
				"id":         user.ID,
				"phone":      user.Phone,
				"name":       user.Name,
				"email":      user.Email,
				"created_at": user.CreatedAt,
			},
			"balance": fiber.Map{
				"available":         overview.Available,
				"locked":            overview.Locked,
				"available_display": overview.AvailableMajor,
				"locked_display":    overview.LockedMajor,
			},
		})
	})
}
