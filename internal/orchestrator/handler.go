package orchestrator

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/paycore/internal/payment"
)

// Handler exposes payment endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Process submits a card or crypto payment.
func (h *Handler) Process(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	domain, err := req.toDomain()
	if err != nil {
		return toHTTPError(err)
	}

	res, err := h.service.ProcessPayment(c.UserContext(), domain)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(res))
}

// Status returns the current status of a settlement.
func (h *Handler) Status(c *fiber.Ctx) error {
	res, err := resultFor(c.Params("rail"), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	status, err := h.service.CheckPaymentStatus(c.UserContext(), res)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"settlement_id": c.Params("id"),
		"status":        payment.ViewOf(status),
	})
}

// Transaction returns the details of a crypto settlement.
func (h *Handler) Transaction(c *fiber.Ctx) error {
	rec, err := h.service.CryptoTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toTransactionResponse(rec))
}

// Confirm confirms a card intent.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	res, err := h.service.ConfirmCardPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(res))
}

// Cancel cancels a card intent.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	res, err := h.service.CancelCardPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(res))
}

// Refund refunds a payment. An empty body refunds the remaining amount.
func (h *Handler) Refund(c *fiber.Ctx) error {
	var req refundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	target, err := resultFor(c.Params("rail"), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	res, err := h.service.RefundPayment(c.UserContext(), target, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(res))
}

// Confirmations receives a block depth observation from a chain watcher.
func (h *Handler) Confirmations(c *fiber.Ctx) error {
	var req confirmationsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	status, err := h.service.UpdateConfirmations(c.UserContext(), c.Params("id"), *req.Observed)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"settlement_id": c.Params("id"),
		"status":        payment.ViewOf(status),
	})
}

// Fail records a dropped or reverted broadcast.
func (h *Handler) Fail(c *fiber.Ctx) error {
	var req failRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	status, err := h.service.FailTransaction(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"settlement_id": c.Params("id"),
		"status":        payment.ViewOf(status),
	})
}

// Methods lists the supported rails.
func (h *Handler) Methods(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"methods": h.service.SupportedMethods()})
}

// Currencies lists the supported currencies per rail.
func (h *Handler) Currencies(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.service.SupportedCurrencies())
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, payment.ErrInvalidRequest),
		errors.Is(err, payment.ErrInvalidAddress),
		errors.Is(err, payment.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrRequestExpired):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, payment.ErrUnknownTransaction):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, payment.ErrDuplicateWallet), errors.Is(err, payment.ErrInsufficientBalance):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrRateUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, payment.ErrRailFailure):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
