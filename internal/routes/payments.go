package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/paycore/internal/orchestrator"
)

// PaymentGuards are the per-route middlewares of the payment group.
type PaymentGuards struct {
	Idempotency  fiber.Handler
	RateLimit    fiber.Handler
	Collaborator fiber.Handler
}

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *orchestrator.Handler, g PaymentGuards) {
	group := r.Group("/payments")
	group.Get("/methods", h.Methods)
	group.Get("/currencies", h.Currencies)
	group.Post("/process", g.RateLimit, g.Idempotency, h.Process)
	group.Get("/:rail/:id/status", h.Status)
	group.Get("/crypto/:id", h.Transaction)

	group.Post("/card/:id/confirm", h.Confirm)
	group.Post("/card/:id/cancel", h.Cancel)
	group.Post("/:rail/:id/refund", h.Refund)

	group.Post("/crypto/:id/confirmations", g.Collaborator, h.Confirmations)
	group.Post("/crypto/:id/fail", g.Collaborator, h.Fail)
}
