package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/onramp"
	"github.com/walletcore/p2p-wallet/internal/payments"
)

// RegisterPaymentRoutes wires P2P transfers behind the idempotency middleware.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, idempotent fiber.Handler) {
	r.Post("/payments/p2p", idempotent, h.P2P)
}

// RegisterOnRampRoutes wires deposit initiation behind the idempotency middleware.
func RegisterOnRampRoutes(r fiber.Router, h *onramp.Handler, idempotent fiber.Handler) {
	r.Post("/onramp", idempotent, h.Initiate)
}
