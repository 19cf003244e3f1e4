package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletcore/p2p-wallet/internal/webhook"
)

// RegisterWebhookRoutes exposes the bank confirmation callbacks at the root path.
func RegisterWebhookRoutes(app *fiber.App, h *webhook.Handler) {
	app.Post("/hdfcWebhook", h.Capture)
	app.Post("/hdfcWebhook/failure", h.Release)
}
