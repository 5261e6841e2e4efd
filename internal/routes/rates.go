package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/paycore/internal/pricefeed"
)

// RegisterRateRoutes exposes the price table to readers and the rate feed.
func RegisterRateRoutes(r fiber.Router, h *pricefeed.Handler, guard fiber.Handler) {
	r.Get("/rates/:currency", h.Get)
	r.Put("/rates/:currency", guard, h.Set)
}
