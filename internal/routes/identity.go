package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/identity"
)

// BalanceProvisioner creates the empty balance row a new user needs before any deposit.
type BalanceProvisioner interface {
	EnsureBalance(ctx context.Context, userID int64) error
}

// RegisterIdentityRoutes wires sign-up and provisions the user's balance.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, balances BalanceProvisioner, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Phone    string `json:"phone"`
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.Registration{
			Phone:    req.Phone,
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			if errors.Is(err, identity.ErrUserExists) {
				return fiber.NewError(http.StatusConflict, "phone number already registered")
			}
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := balances.EnsureBalance(c.UserContext(), user.ID); err != nil {
			logger.Error("provision balance failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "could not provision balance")
		}

		logger.Info("identity.register completed",
			slog.Int64("user_id", user.ID),
			slog.String("phone", user.Phone),
		)
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id": user.ID,
			"phone":   user.Phone,
			"name":    user.Name,
			"email":   user.Email,
		})
	})
}
