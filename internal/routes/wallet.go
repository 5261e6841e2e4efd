package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/paycore/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints. Registration is a
// collaborator operation and goes through guard.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, guard fiber.Handler) {
	r.Get("/wallets/:currency", h.Get)
	r.Post("/wallets/:currency", guard, h.Create)
}
