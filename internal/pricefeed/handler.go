package pricefeed

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler lets the rate-feed collaborator push rates over HTTP.
type Handler struct {
	cache    Cache
	validate *validator.Validate
}

// NewHandler constructs a rate handler.
func NewHandler(cache Cache) *Handler {
	return &Handler{cache: cache, validate: validator.New()}
}

type setRateRequest struct {
	Rate string `json:"rate" validate:"required,numeric"`
}

// Get returns the cached rate for a currency.
func (h *Handler) Get(c *fiber.Ctx) error {
	currency := normalize(c.Params("currency"))
	q, ok, err := h.cache.Get(c.UserContext(), currency)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	if !ok {
		return fiber.NewError(http.StatusNotFound, "rate not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"currency":    currency,
		"rate":        q.Rate.String(),
		"observed_at": q.ObservedAt,
	})
}

// Set stores a rate for a currency.
func (h *Handler) Set(c *fiber.Ctx) error {
	var req setRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil || !rate.IsPositive() {
		return fiber.NewError(http.StatusBadRequest, "rate must be a positive number")
	}
	currency := normalize(c.Params("currency"))
	if err := h.cache.Set(c.UserContext(), currency, rate); err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"currency": currency, "rate": rate.String()})
}
