package wallet

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/payment"
)

// Accessor is the narrow wallet surface the owning rail exposes to the host.
type Accessor interface {
	AddWallet(ctx context.Context, wallet Info) error
	Wallet(ctx context.Context, currency payment.CryptoCurrency) (Info, error)
}

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	wallets  Accessor
	validate *validator.Validate
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(wallets Accessor) *Handler {
	return &Handler{wallets: wallets, validate: validator.New()}
}

type createRequest struct {
	Network string `json:"network" validate:"required"`
	Address string `json:"address" validate:"required"`
	Balance string `json:"balance"`
}

type walletResponse struct {
	Currency string `json:"currency"`
	Network  string `json:"network"`
	Address  string `json:"address"`
	Balance  string `json:"balance"`
}

func toResponse(w Info) walletResponse {
	return walletResponse{
		Currency: w.Currency.String(),
		Network:  w.Network.String(),
		Address:  w.Address,
		Balance:  w.Balance.String(),
	}
}

// Create registers the receiving wallet for a currency.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		if balance, err = decimal.NewFromString(req.Balance); err != nil {
			return fiber.NewError(http.StatusBadRequest, "balance: "+err.Error())
		}
	}
	w := Info{
		Currency: payment.ParseCryptoCurrency(c.Params("currency")),
		Network:  payment.ParseNetwork(req.Network),
		Address:  req.Address,
		Balance:  balance,
	}
	if err := h.wallets.AddWallet(c.UserContext(), w); err != nil {
		switch {
		case errors.Is(err, payment.ErrDuplicateWallet):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, payment.ErrInvalidAddress), errors.Is(err, payment.ErrInvalidRequest):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Get returns the wallet registered for a currency.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.wallets.Wallet(c.UserContext(), payment.ParseCryptoCurrency(c.Params("currency")))
	if err != nil {
		if errors.Is(err, payment.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}
